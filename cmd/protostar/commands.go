package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pyxol/protostar"
	"github.com/pyxol/protostar/backoff"
	"github.com/pyxol/protostar/broker"
	"github.com/pyxol/protostar/config"
	"github.com/pyxol/protostar/engine"
	"github.com/pyxol/protostar/job"
	"github.com/pyxol/protostar/queue"
)

func newWorkerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume jobs from a queue",
		Long: "Run workers against a queue until interrupted. When the queue generation " +
			"is bumped the workers stop; by default the process then exits so a supervisor " +
			"can start it again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.broker.Close()

			concurrency, _ := cmd.Flags().GetInt("concurrency")
			strategyName, _ := cmd.Flags().GetString("backoff")
			initial, _ := cmd.Flags().GetDuration("backoff-initial")
			maxDelay, _ := cmd.Flags().GetDuration("backoff-max")
			rateLimit, _ := cmd.Flags().GetFloat64("rate-limit")
			rateBurst, _ := cmd.Flags().GetInt("rate-burst")
			maxActive, _ := cmd.Flags().GetInt("max-active")
			reload, _ := cmd.Flags().GetBool("reload")

			strategy, err := backoff.Parse(strategyName, initial, maxDelay)
			if err != nil {
				return err
			}

			tuning := a.cfg.Worker.Tuning()
			if concurrency > 0 {
				tuning.Concurrency = concurrency
			}

			opts := []engine.Option{
				engine.WithConfig(tuning),
				engine.WithBackoff(strategy),
				engine.WithReload(reload),
			}
			if rateLimit > 0 || maxActive > 0 {
				opts = append(opts, engine.WithQueueConfig(queue.Config{
					Name:           a.queue,
					MaxConcurrency: maxActive,
					RateLimit:      rateLimit,
					RateBurst:      rateBurst,
				}))
			}
			eng, err := a.engine(opts...)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			err = eng.Run(ctx)
			if errors.Is(err, protostar.ErrRestartRequested) {
				a.logger.Info("restart requested, exiting", slog.String("queue", a.queue))
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntP("concurrency", "c", 0, "Workers in this process (default: worker.concurrency)")
	cmd.Flags().String("backoff", "none", "Delay for retries without one: none|constant|linear|exponential|jitter")
	cmd.Flags().Duration("backoff-initial", 5*time.Second, "Initial backoff delay")
	cmd.Flags().Duration("backoff-max", 10*time.Minute, "Maximum backoff delay")
	cmd.Flags().Float64("rate-limit", 0, "Maximum jobs per second taken by this process (0 disables)")
	cmd.Flags().Int("rate-burst", 1, "Burst size for --rate-limit")
	cmd.Flags().Int("max-active", 0, "Maximum jobs running at once in this process (0 disables)")
	cmd.Flags().Bool("reload", false, "Start new workers in-process after a restart instead of exiting")
	return cmd
}

func newEnqueueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue <handler>",
		Short: "Enqueue a job for a registered handler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.broker.Close()

			rawProps, _ := cmd.Flags().GetString("props")
			delay, _ := cmd.Flags().GetInt("delay")
			maxTries, _ := cmd.Flags().GetInt("max-tries")
			high, _ := cmd.Flags().GetBool("high")

			props := job.Properties{}
			if rawProps != "" {
				if err := json.Unmarshal([]byte(rawProps), &props); err != nil {
					return fmt.Errorf("parse --props: %w", err)
				}
			}

			prio := job.PriorityNormal
			if high {
				prio = job.PriorityHigh
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			err = eng.Enqueue(cmd.Context(), args[0], props, prio, job.WithDelay(delay), job.WithMaxTries(maxTries))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s\n", args[0], a.queue)
			return nil
		},
	}
	cmd.Flags().String("props", "", `Handler properties as a JSON object, e.g. '{"message":"hi"}'`)
	cmd.Flags().Int("delay", 0, "Seconds before the job becomes available")
	cmd.Flags().Int("max-tries", job.DefaultMaxTries, "Attempt ceiling")
	cmd.Flags().Bool("high", false, "Push to the head of the queue")
	return cmd
}

func newEchoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "echo <message>",
		Short: "Dispatch the built-in echo job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.broker.Close()

			delay, _ := cmd.Flags().GetInt("delay")
			high, _ := cmd.Flags().GetBool("high")
			outcome, _ := cmd.Flags().GetString("outcome")
			immediate, _ := cmd.Flags().GetBool("sync")

			e := &echoJob{Message: args[0], Outcome: outcome, high: high, logger: a.logger}
			opts := []job.DispatchOption{job.After(delay)}
			if immediate {
				opts = append(opts, job.Immediate())
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			return eng.Dispatch(cmd.Context(), e, opts...)
		},
	}
	cmd.Flags().Int("delay", 0, "Seconds before the job becomes available")
	cmd.Flags().Bool("high", false, "Push to the head of the queue")
	cmd.Flags().String("outcome", "", "Outcome the handler reports: retry|fail|restart (default success)")
	cmd.Flags().Bool("sync", false, "Run the handler here instead of enqueueing it")
	return cmd
}

func newRestartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Ask every worker of a queue to restart",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.broker.Close()

			v, err := a.broker.RestartWorkers(cmd.Context(), a.queue)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue %s generation is now %d\n", a.queue, v)
			return nil
		},
	}
}

func newPurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete every ready job of a queue (delayed jobs are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.broker.Close()

			if err := a.broker.PurgeQueue(cmd.Context(), a.queue); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", a.queue)
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue depth, generation and running jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.broker.Close()
			return printStatus(cmd.Context(), cmd.OutOrStdout(), a.broker, a.queue)
		},
	}
}

func printStatus(ctx context.Context, out io.Writer, b *broker.Broker, queueName string) error {
	ready, delayed, err := b.Stats(ctx, queueName)
	if err != nil {
		return err
	}
	gen, ok, err := b.Generation(ctx, queueName)
	if err != nil {
		return err
	}
	statuses, err := b.WorkerStatuses(ctx, queueName)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "queue:      %s\n", queueName)
	fmt.Fprintf(out, "ready:      %d\n", ready)
	fmt.Fprintf(out, "delayed:    %d\n", delayed)
	if ok {
		fmt.Fprintf(out, "generation: %d\n", gen)
	} else {
		fmt.Fprintln(out, "generation: unset")
	}

	if len(statuses) == 0 {
		fmt.Fprintln(out, "no running jobs")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKER\tVERSION\tSINCE\tTRIES\tCARGO")
	for _, st := range statuses {
		since := time.Unix(st.Timestamp, 0).Format(time.RFC3339)
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n", st.WorkerID, st.Version, since, st.Job.Tries, st.Job.Cargo)
	}
	return tw.Flush()
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config <key>",
		Short: "Print an effective configuration value",
		Long: "Print the value at a dotted key after defaults, the config file and " +
			"PROTOSTAR_* variables are applied, e.g. queue.connections.default.host.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return printConfigValue(cmd.OutOrStdout(), cfg, args[0])
		},
	}
}

func printConfigValue(out io.Writer, cfg config.Config, key string) error {
	v, ok := cfg.Get(key)
	if !ok {
		return fmt.Errorf("config key %q is not set", key)
	}
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	default:
		fmt.Fprintln(out, cfg.GetString(key))
	}
	return nil
}
