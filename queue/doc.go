// Package queue throttles how fast workers take jobs from a queue.
//
// A [Manager] holds per-queue limits: a token-bucket rate limit
// (golang.org/x/time/rate) on deliveries and a cap on how many workers of
// one process may hold a job from the queue at once. Workers reserve a slot
// before they poll and release it once the job is handled. A rate token is
// taken only for a job that was actually popped:
//
//	m := queue.NewManager(
//	    queue.Config{Name: "emails", RateLimit: 10, RateBurst: 20},
//	    queue.Config{Name: "reports", MaxConcurrency: 2},
//	)
//	release, err := m.Reserve(ctx, "reports")
//	if err != nil { ... }
//	defer release()
//	// pop a job, then
//	if err := m.Throttle(ctx, "reports"); err != nil { ... }
//
// Queues without a [Config] have no limits.
package queue
