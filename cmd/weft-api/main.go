// Package main provides the weft API server: the HTTP trigger surface that
// submits executions to the work queue.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/weftlabs/weft/pkg/cmd"
	"github.com/weftlabs/weft/pkg/log"
	"github.com/weftlabs/weft/pkg/queue"
	"github.com/weftlabs/weft/pkg/web"
)

func main() {
	command := &cli.Command{
		Name:                  "weft-api",
		EnableShellCompletion: true,
		Usage:                 "Start the HTTP trigger API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   9091,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "redis-url",
				Usage:    "Redis connection URL for the work queue",
				Required: true,
				Sources:  cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("weft-api")

	logger.InfoContext(ctx, "Initializing Weft API")

	client, err := cmd.NewRedisClient(command.String("redis-url"))
	if err != nil {
		return err
	}

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		err := store.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	q := queue.NewQueue(client, queue.DefaultGroup, logger)
	api := web.NewAPI(logger, store, q)

	return api.Start(command.Int("port"))
}
