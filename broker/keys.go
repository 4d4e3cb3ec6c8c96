package broker

import "strings"

// Redis key naming for a queue. Keys carry no prefix so that producers and
// workers written against the same layout interoperate.

// readyKey returns the ready list key: {queue}
func readyKey(queue string) string { return queue }

// delayedKey returns the delayed sorted set key: {queue}:delayed
func delayedKey(queue string) string { return queue + ":delayed" }

// versionKey returns the generation key: {queue}:version
func versionKey(queue string) string { return queue + ":version" }

// statusKey returns a worker status key: {queue}:workers:{id}:current_job
func statusKey(queue, workerID string) string {
	return queue + ":workers:" + workerID + ":current_job"
}

// statusPattern matches every worker status key of queue.
func statusPattern(queue string) string {
	return escapeGlob(queue) + ":workers:*:current_job"
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }
