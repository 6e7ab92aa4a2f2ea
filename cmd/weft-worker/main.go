// Package main provides the weft worker: it claims queued executions and
// runs them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/weftlabs/weft/pkg/cmd"
	"github.com/weftlabs/weft/pkg/log"
	"github.com/weftlabs/weft/pkg/memory"
	"github.com/weftlabs/weft/pkg/otelhelper"
	"github.com/weftlabs/weft/pkg/queue"
	"github.com/weftlabs/weft/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "weft-worker",
		EnableShellCompletion: true,
		Usage:                 "Start a worker to execute queued workflow runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "redis-url",
				Usage:    "Redis connection URL for the work queue and pub/sub",
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
				Name:    "event-bus",
				Usage:   "Event bus type (redis, kafka, gochannel)",
				Value:   "redis",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "consumer-group",
				Usage:   "Consumer group the worker joins",
				Value:   queue.DefaultGroup,
				Sources: cli.EnvVars("CONSUMER_GROUP"),
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

	workerID := command.String("worker-id")
	if workerID == "" {
		workerID = "worker-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("weft-worker").With("worker_id", workerID)

	logger.InfoContext(ctx, "Initializing Weft Worker")

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

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), client, logger)
	if err != nil {
		return err
	}

	defer func() {
		err := eventBus.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	tracer, err := otelhelper.NewTracer(ctx, "weft-worker")
	if err != nil {
		logger.WarnContext(ctx, "Tracing disabled", "error", err)

		tracer = nil
	}

	history := memory.NewStore(client)
	registry := cmd.NewRegistry(logger, store, history)
	coordinator := workflow.NewCoordinator(workerID, store, registry, eventBus, tracer, logger)

	q := queue.NewQueue(client, command.String("consumer-group"), logger)
	consumer := queue.NewConsumer(q, workerID, coordinator.Handle, logger)

	err = consumer.Start(ctx)
	if err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.InfoContext(ctx, "Shutting down")

	return consumer.Stop(ctx)
}
