package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"deckhand/pkg/command"
	"deckhand/pkg/logging"
	"deckhand/pkg/pipeline"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const Version = "1.0.0"

var (
	frameworkRoot string
	timeoutSecs   int
	logLevel      string
	jsonOutput    bool

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#01FAC6")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("190"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
)

var rootCmd = &cobra.Command{
	Use:   "deckhand",
	Short: "CI/CD pipeline orchestrator for web frontend applications",
	Long: `Deckhand detects the framework of a frontend repository, resolves its
deployment configuration from layered defaults, and drives the build,
containerize, and deploy stages.

Each stage can run in its own process: analyze writes its results to a
JSON artifact which the later stages read back.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&frameworkRoot, "framework-root", "framework", "directory holding config/global.yaml and defaults/")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 600, "per-command timeout in seconds")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit results as JSON")

	viper.SetEnvPrefix("DECKHAND")
	viper.AutomaticEnv()
	viper.BindPFlag("framework_root", rootCmd.PersistentFlags().Lookup("framework-root"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(runCmd)
}

// newOrchestrator wires the real stage runners behind a shared command
// runner and logger, honoring flag and DECKHAND_* environment overrides.
func newOrchestrator() (*pipeline.Orchestrator, *zap.SugaredLogger, error) {
	logger, err := logging.New(viper.GetString("log_level"))
	if err != nil {
		return nil, nil, err
	}

	timeout := time.Duration(viper.GetInt("timeout")) * time.Second
	commands := command.NewRunner(timeout, logger)

	orch := pipeline.New(pipeline.Options{
		FrameworkRoot: viper.GetString("framework_root"),
		Commands:      commands,
		Logger:        logger,
	})
	return orch, logger, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
