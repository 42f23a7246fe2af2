// Package admin holds the configured operator identities and fans lead
// notifications out to them.
package admin

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/novinrelay/lead-relay/internal/logger"
	"github.com/novinrelay/lead-relay/internal/metrics"
)

// Identity is one authorized operator.
type Identity struct {
	ID   int64
	Name string
}

// Notifier delivers a plain-text notice to a single admin.
type Notifier interface {
	Notify(ctx context.Context, admin Identity, text string) error
}

// Registry is the immutable set of authorized operators, provisioned from
// config at startup. The owner is always a member and cannot be removed.
type Registry struct {
	admins        []Identity
	index         map[int64]struct{}
	notifier      Notifier
	notifyTimeout time.Duration
}

func NewRegistry(owner Identity, admins []Identity, notifier Notifier, notifyTimeout time.Duration) *Registry {
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}

	ordered := make([]Identity, 0, len(admins)+1)
	index := make(map[int64]struct{}, len(admins)+1)

	add := func(a Identity) {
		if a.ID == 0 {
			return
		}
		if _, dup := index[a.ID]; dup {
			return
		}
		ordered = append(ordered, a)
		index[a.ID] = struct{}{}
	}

	add(owner)
	for _, a := range admins {
		add(a)
	}

	return &Registry{
		admins:        ordered,
		index:         index,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
	}
}

// IsAuthorized reports whether id belongs to a registered admin.
func (r *Registry) IsAuthorized(id int64) bool {
	_, ok := r.index[id]
	return ok
}

// List returns admins in insertion order, owner first.
func (r *Registry) List() []Identity {
	out := make([]Identity, len(r.admins))
	copy(out, r.admins)
	return out
}

// NotifyAll fans text out to every admin. Best effort: one admin failing never
// blocks the others and never surfaces to the caller; failures are logged and
// counted only.
func (r *Registry) NotifyAll(ctx context.Context, text string) {
	for _, a := range r.admins {
		func(a Identity) {
			nctx, cancel := context.WithTimeout(ctx, r.notifyTimeout)
			defer cancel()

			if err := r.notifier.Notify(nctx, a, text); err != nil {
				metrics.AdminNotifyFailures.Inc()
				logger.Log.Warn("admin notify failed",
					zap.Int64("admin_id", a.ID),
					zap.String("admin_name", a.Name),
					zap.Error(err))
			}
		}(a)
	}
}
