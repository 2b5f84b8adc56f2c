// Package dashboard holds the client-side tables for sellers and admins. Each
// table allows one call per row at a time and changes its cached rows only
// from what the server returned.
package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/senyabanana/surplus-market/internal/apiclient"
	"github.com/senyabanana/surplus-market/internal/notify"
)

// ErrBusy is returned when the row already has a call outstanding.
var ErrBusy = errors.New("an action on this item is already in progress")

type table[T any] struct {
	key func(T) int64

	mu    sync.Mutex
	items []T
	busy  map[int64]struct{}
}

func newTable[T any](key func(T) int64) *table[T] {
	return &table[T]{key: key, busy: make(map[int64]struct{})}
}

func (t *table[T]) snapshot() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]T(nil), t.items...)
}

func (t *table[T]) set(items []T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append([]T(nil), items...)
}

func (t *table[T]) begin(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.busy[id]; ok {
		return false
	}
	t.busy[id] = struct{}{}
	return true
}

func (t *table[T]) end(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.busy, id)
}

func (t *table[T]) inFlight(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.busy[id]
	return ok
}

func (t *table[T]) replace(item T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.key(item)
	for i := range t.items {
		if t.key(t.items[i]) == id {
			t.items[i] = item
			return
		}
	}
}

func (t *table[T]) remove(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.items {
		if t.key(t.items[i]) == id {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return
		}
	}
}

// act runs call for row id under the row guard and reports the outcome.
// apply sees only successful results.
func act[T any](ctx context.Context, t *table[T], n notify.Notifier, id int64, success string, call func(context.Context) (*T, error), apply func(T)) (*T, error) {
	if !t.begin(id) {
		return nil, ErrBusy
	}
	defer t.end(id)

	item, err := call(ctx)
	if err != nil {
		send(n, notify.FromError(err))
		return nil, err
	}
	if item != nil {
		apply(*item)
	}
	send(n, notify.Notice{Level: notify.LevelSuccess, Text: success})
	return item, nil
}

func load[T any](ctx context.Context, t *table[T], n notify.Notifier, call func(context.Context) ([]T, error)) error {
	items, err := call(ctx)
	if err != nil {
		send(n, notify.FromError(err))
		return err
	}
	t.set(items)
	return nil
}

func invalid(n notify.Notifier, problems []string) error {
	err := apiclient.ValidationError(problems)
	send(n, notify.FromError(err))
	return err
}

func send(n notify.Notifier, notice notify.Notice) {
	if n != nil {
		n.Notify(notice)
	}
}
