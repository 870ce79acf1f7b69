package cmd

import (
	"fmt"
	"os"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/config"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/storage"

	"github.com/spf13/cobra"
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Check the object store connection",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if _, err := storage.NewMinioStore(cfg); err != nil {
			fmt.Fprintln(os.Stderr, "object store check failed:", err)
			os.Exit(1)
		}
		fmt.Println("object store connection OK, bucket:", cfg.MinioBucket)
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
}
