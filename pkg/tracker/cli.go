package tracker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/actlive/actlive/pkg/actrealtime"
	"github.com/actlive/actlive/pkg/cache"
	"github.com/actlive/actlive/pkg/config"
	"github.com/actlive/actlive/pkg/dataaggregator"
	"github.com/actlive/actlive/pkg/gtfsrt"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "tracker",
		Usage: "Track live vehicle positions and service alerts",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run an instance of the live tracker",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}

					store := cache.New(cache.Options{
						Enabled:          cfg.EnableCache,
						CleanupThreshold: cfg.CacheCleanupThreshold,
						RedisAddress:     cfg.RedisAddress,
						RedisPassword:    cfg.RedisPassword,
						RedisDatabase:    cfg.RedisDatabase,
					})
					defer store.Close()

					aggregator := dataaggregator.New(
						cfg,
						actrealtime.NewClient(cfg, store),
						gtfsrt.NewClient(cfg, store),
					)

					ctx, cancel := context.WithCancel(c.Context)
					go func() {
						signals := make(chan os.Signal, 1)
						signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
						<-signals
						cancel()
					}()

					tracker := Tracker{
						Config:     cfg,
						Aggregator: aggregator,
					}
					tracker.Run(ctx)

					return nil
				},
			},
		},
	}
}
