package cmd

import (
	"fmt"
	"os"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/config"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/db"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis connection",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if err := db.ConnectRedis(cfg); err != nil {
			fmt.Fprintln(os.Stderr, "redis connection failed:", err)
			os.Exit(1)
		}
		defer db.CloseRedis()

		if err := db.TestRedis(); err != nil {
			fmt.Fprintln(os.Stderr, "redis check failed:", err)
			os.Exit(1)
		}
		fmt.Println("redis connection OK")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
