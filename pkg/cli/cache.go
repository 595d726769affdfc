package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/aegisrisk/pkg/cli/config"
	"github.com/secmon-lab/aegisrisk/pkg/usecase"
	"github.com/secmon-lab/aegisrisk/pkg/utils/safe"
)

func cmdCache() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the memoization cache",
		Commands: []*cli.Command{
			cmdCacheStats(),
		},
	}
}

// cmdCacheStats prints per-namespace cache usage as JSON so operators can
// decide on external trimming.
func cmdCacheStats() *cli.Command {
	var repoCfg config.Repository

	return &cli.Command{
		Name:  "stats",
		Usage: "Show per-namespace entry counts and hit totals",
		Flags: repoCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			uc := usecase.New(repo)
			stats, err := uc.CacheStats(ctx)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}
