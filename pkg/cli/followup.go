package cli

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/aegisrisk/pkg/cli/config"
	"github.com/secmon-lab/aegisrisk/pkg/service/scheduler"
	"github.com/secmon-lab/aegisrisk/pkg/utils/safe"
)

// cmdFollowUp runs one follow-up sweep and exits. Intended for cron-style
// deployments where no long-running worker is wanted.
func cmdFollowUp() *cli.Command {
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var weaviateCfg config.Weaviate
	var methodologyCfg config.Methodology

	var flags []cli.Flag
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, weaviateCfg.Flags()...)
	flags = append(flags, methodologyCfg.Flags()...)

	return &cli.Command{
		Name:  "followup",
		Usage: "Run a single follow-up sweep over all due risks",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, repo, err := buildUseCases(ctx, &repoCfg, &geminiCfg, &weaviateCfg, &methodologyCfg)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			worker := scheduler.NewFollowUpWorker(uc, time.Hour)
			if err := worker.Sweep(ctx); err != nil {
				return goerr.Wrap(err, "follow-up sweep failed")
			}
			return nil
		},
	}
}
