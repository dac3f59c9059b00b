// Package scheduler provides a durable, Postgres-backed task queue. Tasks
// survive process restarts; a crashed worker's claimed task is recovered by
// the staleness reaper at the orchestration layer, not here.
package scheduler

import (
	"context"
	"time"
)

// Scheduler enqueues named tasks for later execution. A zero delay means
// run as soon as a worker is free.
type Scheduler interface {
	Schedule(ctx context.Context, taskType string, payload any, delay time.Duration) error
}

// Handler processes one task payload. A returned error marks the task
// failed; handlers that want retries schedule a follow-up task themselves.
type Handler func(ctx context.Context, payload []byte) error

// Registry maps task type names to handlers. Registration happens at
// startup, before the worker runs, so no locking is needed.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a task type, replacing any previous binding.
func (r *Registry) Register(taskType string, h Handler) {
	r.handlers[taskType] = h
}

// Lookup returns the handler for a task type.
func (r *Registry) Lookup(taskType string) (Handler, bool) {
	h, ok := r.handlers[taskType]
	return h, ok
}
