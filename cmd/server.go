package cmd

import (
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the streaming server",
	Long:  `Start the HTTP server exposing the stream, HLS and waveform endpoints.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
