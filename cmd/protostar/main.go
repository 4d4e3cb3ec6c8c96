package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pyxol/protostar/broker"
	"github.com/pyxol/protostar/config"
	"github.com/pyxol/protostar/engine"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "protostar",
		Short:        "Redis-backed job queue",
		Long:         "protostar runs queue workers and manages queues stored in Redis.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", os.Getenv("PROTOSTAR_CONFIG"), "Path to a JSON config file")
	rootCmd.PersistentFlags().String("connection", "", "Named connection from queue.connections (default: queue.default)")
	rootCmd.PersistentFlags().StringP("queue", "q", "", "Queue name (default: the connection's queue_name)")

	rootCmd.AddCommand(
		newWorkerCommand(),
		newEnqueueCommand(),
		newEchoCommand(),
		newRestartCommand(),
		newPurgeCommand(),
		newStatusCommand(),
		newConfigCommand(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// app is the state every subcommand starts from.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	broker *broker.Broker
	queue  string
}

// setup loads configuration, builds the logger and dials the store.
func setup(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	connName, _ := cmd.Flags().GetString("connection")
	queueName, _ := cmd.Flags().GetString("queue")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := cfg.Log.Logger(os.Stderr)
	slog.SetDefault(logger)

	conn, err := cfg.Connection(connName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), conn.DialTimeout()+time.Second)
	defer cancel()
	b, err := broker.Dial(ctx, conn,
		broker.WithLogger(logger),
		broker.WithStatusTTL(cfg.Worker.Tuning().StatusTTL),
	)
	if err != nil {
		return nil, err
	}

	queue, err := b.QueueName(queueName)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, broker: b, queue: queue}, nil
}

// engine builds an engine on the app's broker and queue with the built-in
// handlers registered.
func (a *app) engine(opts ...engine.Option) (*engine.Engine, error) {
	opts = append([]engine.Option{
		engine.WithQueue(a.queue),
		engine.WithLogger(a.logger),
	}, opts...)
	eng, err := engine.Build(a.broker, opts...)
	if err != nil {
		return nil, err
	}
	registerHandlers(eng.Registry(), a.logger)
	return eng, nil
}
