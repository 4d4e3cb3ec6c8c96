// Package broker stores job records in Redis and hands them to workers.
//
// Each queue Q uses four kinds of keys:
//
//	Q                           ready list; the head is delivered next
//	Q:delayed                   sorted set of records scored by due time
//	Q:version                   worker generation, bumped to request a restart
//	Q:workers:{id}:current_job  status of a busy worker, expires after an hour
//
// A Broker is safe for concurrent use. It caches the generation it first
// observes per queue; workers sharing a Broker share that cache.
//
// Usage:
//
//	b, err := broker.Dial(ctx, conn)
//	if err != nil { ... }
//	defer b.Close()
//	rec, _ := job.New("emails", payload)
//	err = b.Enqueue(ctx, rec, job.PriorityNormal)
package broker
