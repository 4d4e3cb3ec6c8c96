// Package job defines the queued record, its retry policy, and the handler
// capability a record resolves to.
//
// # Records
//
// A [Record] is the unit of work stored on a queue. On the wire it is a
// JSON object:
//
//	{"cargo": ..., "tries": 0, "max_tries": 3, "timestamp": 1700000000}
//
// Producers build records with [New]; consumers rebuild them with [Decode],
// which rejects malformed payloads outright. A record moves through a
// one-way lifecycle:
//
//	queued → delivered → finished
//	queued → delivered → retried (new record queued) → finished
//	queued → delivered → max attempts exceeded → finished
//
// [Record.Retry] never mutates a queued record in place: it enqueues a copy
// with the attempt count bumped and finishes the delivered instance.
//
// # Handlers
//
// Handler cargo is a [Descriptor] naming a registered handler type and the
// constructor [Properties] captured at dispatch time:
//
//	{"class": "send_email", "properties": {"to": "a@example.com"}}
//
// Handlers return a tagged [Outcome] instead of panicking or returning
// sentinel errors for control flow:
//
//	func (h *SendEmail) Handle(ctx context.Context) job.Outcome {
//	    if err := h.mailer.Send(ctx, h.To); errors.Is(err, ErrThrottled) {
//	        return job.RetryAfter(30)
//	    } else if err != nil {
//	        return job.Fatal(err)
//	    }
//	    return job.Success()
//	}
//
// # Registry
//
// [Registry] maps handler type names to factories. Typed definitions
// declare their required parameters so that a missing one fails loudly:
//
//	job.RegisterDefinition(reg, job.NewDefinition("send_email",
//	    func(p EmailProps) job.Handler { return &SendEmail{To: p.To} },
//	    "to",
//	))
package job
