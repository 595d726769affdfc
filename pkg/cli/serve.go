package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/aegisrisk/pkg/cli/config"
	httpctrl "github.com/secmon-lab/aegisrisk/pkg/controller/http"
	"github.com/secmon-lab/aegisrisk/pkg/domain/interfaces"
	"github.com/secmon-lab/aegisrisk/pkg/service/oracle"
	"github.com/secmon-lab/aegisrisk/pkg/service/scheduler"
	"github.com/secmon-lab/aegisrisk/pkg/usecase"
	"github.com/secmon-lab/aegisrisk/pkg/utils/logging"
	"github.com/secmon-lab/aegisrisk/pkg/utils/safe"
)

func cmdServe() *cli.Command {
	var addr string
	var sweepInterval time.Duration
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var weaviateCfg config.Weaviate
	var methodologyCfg config.Methodology

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("AEGISRISK_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "followup-interval",
			Usage:       "Interval of the follow-up sweep (0 disables the worker)",
			Value:       time.Hour,
			Sources:     cli.EnvVars("AEGISRISK_FOLLOWUP_INTERVAL"),
			Destination: &sweepInterval,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, weaviateCfg.Flags()...)
	flags = append(flags, methodologyCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, repo, err := buildUseCases(ctx, &repoCfg, &geminiCfg, &weaviateCfg, &methodologyCfg)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			var followUpWorker *scheduler.FollowUpWorker
			if sweepInterval > 0 {
				followUpWorker = scheduler.NewFollowUpWorker(uc, sweepInterval)
				if err := followUpWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start follow-up worker")
				}
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if followUpWorker != nil {
					followUpWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}

// buildUseCases wires the repository, collaborators, and methodology into
// the usecase layer. The caller owns the returned repository.
func buildUseCases(ctx context.Context, repoCfg *config.Repository, geminiCfg *config.Gemini, weaviateCfg *config.Weaviate, methodologyCfg *config.Methodology) (*usecase.UseCases, interfaces.Repository, error) {
	repo, err := repoCfg.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to initialize repository")
	}

	methodology, err := methodologyCfg.Configure()
	if err != nil {
		safe.Close(ctx, repo)
		return nil, nil, err
	}

	opts := []usecase.Option{
		usecase.WithMethodology(methodology),
	}

	llmClient, err := geminiCfg.Configure(ctx)
	if err != nil {
		safe.Close(ctx, repo)
		return nil, nil, err
	}
	if llmClient != nil {
		scoringOracle, err := oracle.New(llmClient)
		if err != nil {
			safe.Close(ctx, repo)
			return nil, nil, err
		}
		opts = append(opts, usecase.WithOracle(scoringOracle))
		logging.Default().Info("Scoring oracle enabled")
	} else {
		logging.Default().Warn("Gemini project not configured, assessment features are disabled")
	}

	retrievalSvc, err := weaviateCfg.Configure()
	if err != nil {
		safe.Close(ctx, repo)
		return nil, nil, err
	}
	if retrievalSvc != nil {
		opts = append(opts, usecase.WithRetrieval(retrievalSvc))
		logging.Default().Info("Retrieval service enabled")
	} else {
		logging.Default().Info("Weaviate host not configured, control evaluation runs on answers alone")
	}

	return usecase.New(repo, opts...), repo, nil
}
