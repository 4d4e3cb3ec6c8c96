// Package engine wires the protostar packages together for an application:
// one broker, one handler registry, the default middleware stack, the
// lifecycle extensions and a worker pool.
//
// # Building an Engine
//
//	b, err := broker.Dial(ctx, conn)
//	eng, err := engine.Build(b,
//	    engine.WithQueue("emails"),
//	    engine.WithConfig(cfg.Worker.Tuning()),
//	    engine.WithBackoff(backoff.NewExponential(time.Second, time.Minute)),
//	    engine.WithQueueConfig(queue.Config{Name: "emails", RateLimit: 50}),
//	)
//
// # Registering and Dispatching Work
//
//	engine.Register(eng, SendEmail)
//	err = eng.Dispatch(ctx, &SendEmailJob{To: "user@example.com"})
//
// # Running Workers
//
//	err = eng.Run(ctx) // nil on cancellation, protostar.ErrRestartRequested on restart
//
// With [WithReload] a restart starts a new set of workers in the same
// process instead of returning.
package engine
