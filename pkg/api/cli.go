package api

import (
	"github.com/actlive/actlive/pkg/actrealtime"
	"github.com/actlive/actlive/pkg/cache"
	"github.com/actlive/actlive/pkg/config"
	"github.com/actlive/actlive/pkg/dataaggregator"
	"github.com/actlive/actlive/pkg/gtfsrt"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the core web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
				},
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

					return SetupServer(c.String("listen"), aggregator)
				},
			},
		},
	}
}
