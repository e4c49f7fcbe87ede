package cmd

import (
	"fmt"

	"deckhand/pkg/pipeline"
	"deckhand/pkg/util"

	"github.com/spf13/cobra"
)

var analyzeOutput string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [REPO_PATH]",
	Short: "Detect the framework and resolve the deployment configuration",
	Long: `Analyze inspects the repository, scores it against the known framework
profiles, resolves the layered configuration, and writes the combined
result to a JSON artifact for the build and deploy commands.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", pipeline.ArtifactFileName, "where to write the analysis artifact")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	repoPath, err := util.ValidateProjectPath(argOrDot(args))
	if err != nil {
		return err
	}

	orch, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer logger.Sync()

	result := orch.AnalyzeOnly(repoPath)
	if err := pipeline.WriteArtifact(analyzeOutput, result); err != nil {
		return err
	}

	if jsonOutput {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		printAnalysis(result)
	}

	if !result.Success {
		return fmt.Errorf("analysis failed: %s", result.Error)
	}
	return nil
}

func printAnalysis(result *pipeline.AnalysisResult) {
	if !result.Success {
		fmt.Println(errorStyle.Render("✗ Analysis failed: " + result.Error))
		return
	}

	fmt.Println(successStyle.Render("✓ Analysis complete"))
	fmt.Printf("%s %s (confidence %.2f)\n", labelStyle.Render("Framework:"), result.Framework, result.Confidence)
	if cfg := result.Config; cfg != nil {
		fmt.Printf("%s %s\n", labelStyle.Render("App:"), cfg.App.Name)
		fmt.Printf("%s %s\n", labelStyle.Render("Image:"), cfg.Docker.FullImage)
		fmt.Printf("%s %s/%s\n", labelStyle.Render("Target:"), cfg.Deployment.Namespace, cfg.Deployment.Environment)
		if cfg.BuildStrategy != nil {
			fmt.Printf("%s %s\n", labelStyle.Render("Build:"), cfg.BuildStrategy.Command)
		}
		if cfg.Validation != nil {
			for _, warning := range cfg.Validation.Warnings {
				fmt.Println(warnStyle.Render("⚠ " + warning))
			}
			for _, e := range cfg.Validation.Errors {
				fmt.Println(errorStyle.Render("✗ " + e))
			}
		}
	}
}

func argOrDot(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}
