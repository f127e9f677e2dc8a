// tutord - AI tutoring session orchestration service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "tutord",
		Short: "AI tutoring session orchestration service",
		Long: `tutord runs the conversational tutoring engine: a multi-agent
router that resolves subjects, teaches, quizzes, grades answers, and
tracks per-topic mastery with spaced repetition.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional; real environments set variables directly.
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "tutord.yaml", "path to config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the tutord version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("tutord", version)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
