package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/cache"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/config"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/core/audio"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/core/stream"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/db"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/logger"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/repository"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/storage"

	"github.com/gorilla/mux"
)

// Start initializes collaborators, wires the delivery core and runs the
// HTTP server until interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: "logs/server.log",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("failed to initialize database", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("failed to connect GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	objects, err := storage.NewMinioStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize MinIO", logger.ErrorField(err))
	}

	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	userRepo := repository.NewMySQLUserRepository(db.DB)
	restrictionRepo := repository.NewMySQLRestrictionRepository(db.DB)
	playEventRepo := repository.NewGormPlayEventRepository(db.GormDB)

	artifacts := cache.NewRedisArtifactCache(db.RedisClient)
	recents := cache.NewRedisRecentList(db.RedisClient)

	recorder := stream.NewRecorder(playEventRepo, trackRepo, recents, 2)
	defer recorder.Stop()

	validator := stream.NewAccessValidator(trackRepo, userRepo, restrictionRepo)
	transcoder := audio.NewFFmpegTranscoder(cfg.FFmpegPath)
	waveform := audio.NewFFmpegWaveform(cfg.FFmpegPath)
	segments := audio.NewSegmentPipeline(cfg.FFmpegPath, cfg.StaticDir, cfg.HLSSegmentTime, 4, artifacts, objects)

	orchestrator := stream.NewOrchestrator(
		validator, trackRepo, objects, artifacts, transcoder, transcoder, waveform, segments, recorder,
		stream.Config{
			StreamTTL:      time.Duration(cfg.StreamCacheTTL) * time.Second,
			HLSTTL:         time.Duration(cfg.HLSCacheTTL) * time.Second,
			WaveformTTL:    time.Duration(cfg.WaveformCacheTTL) * time.Second,
			SegmentTime:    cfg.HLSSegmentTime,
			WaveformPoints: cfg.WaveformPoints,
		},
	)

	handler := NewStreamHandler(orchestrator, segments)
	historyHandler := NewHistoryHandler(recents, playEventRepo)
	libraryHandler := NewLibraryHandler(trackRepo, objects, transcoder)

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/api/stream/{track_id}", handler.HandleStream).Methods(http.MethodGet)
	router.HandleFunc("/api/stream/{track_id}/hls", handler.HandleHLSManifest).Methods(http.MethodGet)
	router.HandleFunc("/stream/hls/{track_id}/{segment}", handler.HandleHLSSegment).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{track_id}/waveform", handler.HandleWaveform).Methods(http.MethodGet)
	router.HandleFunc("/api/me/recent", historyHandler.HandleRecent).Methods(http.MethodGet)
	router.HandleFunc("/api/me/plays/{event_id}/complete", historyHandler.HandleCompleted).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks", libraryHandler.HandleUpload).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{track_id}", libraryHandler.HandleDelete).Methods(http.MethodDelete)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // long-lived audio streams
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", logger.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", logger.ErrorField(err))
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range, X-User-ID")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
