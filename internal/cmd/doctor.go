package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/metaforge/internal/config"
	"github.com/felixgeelhaar/metaforge/internal/health"
	"github.com/felixgeelhaar/metaforge/internal/ux"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that everything a run needs is in place",
	Long: `Check the dependencies of a generation run: the docker daemon, the
generation image and the API key. A degraded check still allows a run
(a missing image is built when docker.build_context is set). An unhealthy
check makes the command exit non-zero.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

var doctorTimeout time.Duration

func init() {
	doctorCmd.Flags().DurationVar(&doctorTimeout, "check-timeout", health.DefaultTimeout, "timeout per check")

	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, logger, err := cmdCtx.LoadConfig(config.Overrides{})
	if err != nil {
		return err
	}
	docker, err := newDocker(cfg, logger)
	if err != nil {
		return err
	}

	manager := health.NewManager().WithTimeout(doctorTimeout)
	manager.AddChecker(health.NewDockerChecker(docker))
	manager.AddChecker(health.NewImageChecker(docker, docker.ImageRef()))
	manager.AddChecker(health.NewAPIKeyChecker())

	view := ux.NewHealthView(manager.Check(cmd.Context()))
	if err := cmdCtx.Print(view); err != nil {
		return err
	}
	if view.Overall == health.StatusUnhealthy {
		return fmt.Errorf("doctor found unhealthy checks")
	}
	return nil
}
