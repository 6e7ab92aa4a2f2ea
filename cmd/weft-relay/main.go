// Package main provides the weft relay: a WebSocket endpoint that streams
// live execution events to observers.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/weftlabs/weft/pkg/cmd"
	"github.com/weftlabs/weft/pkg/log"
	"github.com/weftlabs/weft/pkg/relay"
)

const shutdownTimeout = 10 * time.Second

func main() {
	command := &cli.Command{
		Name:                  "weft-relay",
		EnableShellCompletion: true,
		Usage:                 "Start the WebSocket event relay",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the relay server on",
				Value:   9092,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "redis-url",
				Usage:    "Redis connection URL for pub/sub",
				Required: true,
				Sources:  cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (redis, kafka, gochannel)",
				Value:   "redis",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
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

	logger := log.WithModule("weft-relay")

	logger.InfoContext(ctx, "Initializing Weft Relay")

	client, err := cmd.NewRedisClient(command.String("redis-url"))
	if err != nil {
		return err
	}

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

	mux := http.NewServeMux()
	mux.Handle("/ws", relay.NewRelay(eventBus, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(command.Int("port")),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.InfoContext(ctx, "Relay listening", "addr", server.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	case <-stop:
	}

	logger.InfoContext(ctx, "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
