package cmd

import (
	"fmt"

	"deckhand/pkg/pipeline"

	"github.com/spf13/cobra"
)

var deployArtifact string

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the built image to Kubernetes",
	Long: `Deploy reads the analysis artifact, renders the Kubernetes manifests for
the application, applies them with kubectl, and reports rollout and
health status.`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVarP(&deployArtifact, "artifact", "a", pipeline.ArtifactFileName, "analysis artifact to read")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	analysis, err := pipeline.LoadArtifact(deployArtifact)
	if err != nil {
		return err
	}
	if !analysis.Success || analysis.Config == nil {
		return fmt.Errorf("analysis artifact %s records a failed analysis", deployArtifact)
	}

	orch, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer logger.Sync()

	result := orch.Deploy(cmd.Context(), analysis.Config)

	if jsonOutput {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		if result.Success {
			fmt.Println(successStyle.Render("✓ Deployment applied"))
			fmt.Printf("%s %s\n", labelStyle.Render("Manifest:"), result.ManifestPath)
			if h := result.HealthCheck; h != nil {
				status := successStyle.Render(h.Status)
				if !h.Healthy {
					status = warnStyle.Render(h.Status)
				}
				fmt.Printf("%s %s (%d/%d ready)\n", labelStyle.Render("Health:"),
					status, h.ReadyReplicas, h.DesiredReplicas)
			}
		} else {
			fmt.Println(errorStyle.Render("✗ Deployment failed: " + result.Error))
		}
	}

	if !result.Success {
		return fmt.Errorf("deployment failed: %s", result.Error)
	}
	return nil
}
