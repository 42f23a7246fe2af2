package admin_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/novinrelay/lead-relay/internal/admin"
	"github.com/novinrelay/lead-relay/internal/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

type mockNotifier struct {
	NotifyFunc func(ctx context.Context, a admin.Identity, text string) error
	Calls      []admin.Identity
}

func (m *mockNotifier) Notify(ctx context.Context, a admin.Identity, text string) error {
	m.Calls = append(m.Calls, a)
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, a, text)
	}
	return nil
}

func TestRegistry(t *testing.T) {
	owner := admin.Identity{ID: 100, Name: "owner"}
	admins := []admin.Identity{
		{ID: 200, Name: "first"},
		{ID: 300, Name: "second"},
	}

	t.Run("owner is implicitly authorized", func(t *testing.T) {
		r := admin.NewRegistry(owner, admins, &mockNotifier{}, time.Second)

		if !r.IsAuthorized(100) {
			t.Error("owner should be authorized")
		}
		if !r.IsAuthorized(200) || !r.IsAuthorized(300) {
			t.Error("configured admins should be authorized")
		}
		if r.IsAuthorized(999) {
			t.Error("unknown id should not be authorized")
		}
	})

	t.Run("list keeps insertion order with owner first", func(t *testing.T) {
		r := admin.NewRegistry(owner, admins, &mockNotifier{}, time.Second)

		got := r.List()
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
		for i, wantID := range []int64{100, 200, 300} {
			if got[i].ID != wantID {
				t.Errorf("got[%d].ID = %d, want %d", i, got[i].ID, wantID)
			}
		}
	})

	t.Run("duplicate owner entry in admin list is collapsed", func(t *testing.T) {
		r := admin.NewRegistry(owner, append([]admin.Identity{{ID: 100, Name: "dup"}}, admins...), &mockNotifier{}, time.Second)

		if len(r.List()) != 3 {
			t.Errorf("len = %d, want 3", len(r.List()))
		}
	})

	t.Run("notify failure for one admin does not block the others", func(t *testing.T) {
		n := &mockNotifier{
			NotifyFunc: func(ctx context.Context, a admin.Identity, text string) error {
				if a.ID == 200 {
					return errors.New("chat not found")
				}
				return nil
			},
		}
		r := admin.NewRegistry(owner, admins, n, time.Second)

		r.NotifyAll(context.Background(), "new lead")

		if len(n.Calls) != 3 {
			t.Fatalf("notified %d admins, want all 3", len(n.Calls))
		}
	})
}
