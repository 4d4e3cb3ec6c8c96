package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pyxol/protostar/job"
)

// echoJob logs its message. The optional outcome lets an operator exercise
// the retry, failure and restart paths of a running worker.
type echoJob struct {
	Message string `json:"message"`
	Outcome string `json:"outcome,omitempty"`

	high   bool
	logger *slog.Logger
}

func (e *echoJob) HandlerType() string { return "echo" }

func (e *echoJob) Properties() (job.Properties, error) {
	props := map[string]any{"message": e.Message}
	if e.Outcome != "" {
		props["outcome"] = e.Outcome
	}
	return job.NewProperties(props)
}

func (e *echoJob) HighPriority() bool { return e.high }

func (e *echoJob) Handle(context.Context) job.Outcome {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("echo", slog.String("message", e.Message))

	switch e.Outcome {
	case "retry":
		return job.Retry()
	case "fail":
		return job.Fatal(errors.New("echo asked to fail"))
	case "restart":
		return job.Restart()
	default:
		return job.Success()
	}
}

// registerHandlers adds the built-in handlers to reg.
func registerHandlers(reg *job.Registry, logger *slog.Logger) {
	job.RegisterDefinition(reg, job.NewDefinition("echo", func(p echoJob) job.Handler {
		p.logger = logger
		return &p
	}, "message"))
}
