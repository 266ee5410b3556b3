package service

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"rentaldesk-bff/internal/domain"
	"rentaldesk-bff/internal/logger"
)

// Workflow is the part of a return or extension workflow the registry needs.
type Workflow interface {
	ID() string
	UserID() string
	Close()
}

// WorkflowRegistry holds open workflows. A workflow that is not touched for
// the TTL expires; expiry and Close both discard its local state. In-flight
// backend calls are not aborted.
type WorkflowRegistry struct {
	store *gocache.Cache
	ttl   time.Duration
}

func NewWorkflowRegistry(ttl time.Duration) *WorkflowRegistry {
	store := gocache.New(ttl, ttl/2+time.Second)
	store.OnEvicted(func(id string, v interface{}) {
		if wf, ok := v.(Workflow); ok {
			wf.Close()
			logger.Debug("Workflow discarded", "workflow_id", id)
		}
	})
	return &WorkflowRegistry{store: store, ttl: ttl}
}

func (r *WorkflowRegistry) Put(wf Workflow) {
	r.store.Set(wf.ID(), wf, r.ttl)
}

// Get returns the workflow owned by userID and refreshes its TTL. A workflow
// owned by someone else is reported as not found.
func (r *WorkflowRegistry) Get(id, userID string) (Workflow, error) {
	v, ok := r.store.Get(id)
	if !ok {
		return nil, domain.ErrWorkflowNotFound
	}
	wf := v.(Workflow)
	if wf.UserID() != userID {
		return nil, domain.ErrWorkflowNotFound
	}
	r.store.Set(id, wf, r.ttl)
	return wf, nil
}

// Close discards the workflow.
func (r *WorkflowRegistry) Close(id, userID string) error {
	if _, err := r.Get(id, userID); err != nil {
		return err
	}
	r.store.Delete(id)
	return nil
}

func (r *WorkflowRegistry) Count() int {
	return r.store.ItemCount()
}
