// Package commands provides the CLI commands of the telivi terminal client.
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	userFlag    string
	delayFlag   time.Duration
	modelFlag   string
	logFileFlag string

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "telivi",
	Short: "Terminal client for the Telivi.ai knowledge assistant",
	Long: `telivi talks to your organization's knowledge assistant from the terminal.

Replies come from the configured LLM provider when ANTHROPIC_API_KEY or
OPENAI_API_KEY is set, and from the built-in knowledge base otherwise.

Examples:
  telivi chat                        Start an interactive chat
  telivi ask "What is MCQ PLUS?"     Ask one question and print the answer
  telivi chat --delay 200ms          Shorten the simulated reply delay`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "telivi %s (built %s)\n", Version, BuildTime)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User the workspace belongs to")
	rootCmd.PersistentFlags().DurationVar(&delayFlag, "delay", 0, "Reply delay, 0 replies at once (default from REPLY_DELAY)")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "LLM model (default from LLM_MODEL)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "Log file (default from LOG_FILE)")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
}
