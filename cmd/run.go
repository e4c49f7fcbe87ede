package cmd

import (
	"fmt"

	"deckhand/pkg/util"

	"github.com/spf13/cobra"
)

var withDeploy bool

var runCmd = &cobra.Command{
	Use:   "run [REPO_PATH]",
	Short: "Run the full pipeline in one process",
	Long: `Run executes analyze, build, and containerize back to back, stopping at
the first failing stage. Pass --deploy to continue into the Kubernetes
deployment as well.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().BoolVar(&withDeploy, "deploy", false, "deploy after a successful image push")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	repoPath, err := util.ValidateProjectPath(argOrDot(args))
	if err != nil {
		return err
	}

	orch, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer logger.Sync()

	result := orch.FullPipeline(cmd.Context(), repoPath, withDeploy)

	if jsonOutput {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		if result.Analysis != nil {
			printAnalysis(result.Analysis)
		}
		if result.Process != nil {
			printProcess(result.Process)
		}
		if result.DeployResult != nil && result.DeployResult.Success {
			fmt.Println(successStyle.Render("✓ Deployment applied"))
		}
		if !result.Success {
			fmt.Println(errorStyle.Render(fmt.Sprintf("✗ Pipeline failed at %s: %s", result.Stage, result.Error)))
		}
	}

	if !result.Success {
		return fmt.Errorf("pipeline failed: %s", result.Error)
	}
	return nil
}
