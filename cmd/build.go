package cmd

import (
	"fmt"

	"deckhand/pkg/pipeline"
	"deckhand/pkg/util"

	"github.com/spf13/cobra"
)

var buildArtifact string

var buildCmd = &cobra.Command{
	Use:   "build [REPO_PATH]",
	Short: "Build the application and its container image",
	Long: `Build reads the analysis artifact, runs the framework build inside the
repository, and packages the output into a Docker image which is pushed
to the configured registry. A build failure stops before the image
stage.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildArtifact, "artifact", "a", pipeline.ArtifactFileName, "analysis artifact to read")
}

func runBuild(cmd *cobra.Command, args []string) error {
	repoPath, err := util.ValidateProjectPath(argOrDot(args))
	if err != nil {
		return err
	}

	analysis, err := pipeline.LoadArtifact(buildArtifact)
	if err != nil {
		return err
	}
	if !analysis.Success || analysis.Config == nil {
		return fmt.Errorf("analysis artifact %s records a failed analysis", buildArtifact)
	}

	orch, logger, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer logger.Sync()

	result := orch.ProcessRepository(cmd.Context(), analysis.Config, repoPath)

	if jsonOutput {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		printProcess(result)
	}

	if !result.Success {
		return fmt.Errorf("build pipeline failed at %s: %s", result.Stage, result.Error)
	}
	return nil
}

func printProcess(result *pipeline.ProcessResult) {
	if !result.Success {
		fmt.Println(errorStyle.Render(fmt.Sprintf("✗ Failed at %s: %s", result.Stage, result.Error)))
		return
	}

	fmt.Println(successStyle.Render("✓ Build and image push complete"))
	fmt.Printf("%s %s (%s)\n", labelStyle.Render("App:"), result.AppName, result.Framework)
	if b := result.BuildResult; b != nil && b.Artifacts != nil {
		fmt.Printf("%s %s (%d files, %s)\n", labelStyle.Render("Artifacts:"),
			b.Artifacts.OutputDir, b.Artifacts.FileCount, util.FormatSize(b.Artifacts.TotalSize))
	}
	if d := result.DockerResult; d != nil && d.ImageInfo != nil {
		fmt.Printf("%s %s (%s)\n", labelStyle.Render("Image:"),
			d.ImageInfo.Image, util.FormatSize(d.ImageInfo.Size))
	}
	fmt.Printf("%s %.1fs\n", labelStyle.Render("Duration:"), result.Duration)
}
