package property

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmitrymomot/featurekit/pkg/event"
	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// AuditListenerName is the reserved name the audit listener is registered under.
const AuditListenerName = "audit"

// Listener is notified after a property store change is applied. Listeners
// must not mutate the properties they receive.
type Listener interface {
	OnCreateSchema(ctx context.Context) error
	OnDeleteAll(ctx context.Context) error
	OnUpdate(ctx context.Context, p Property) error
	OnDelete(ctx context.Context, uid string) error
}

var _ Listener = (*event.AuditListener[Property])(nil)

type namedListener struct {
	name string
	l    Listener
}

// listeners dispatches store changes in registration order. Failures and
// panics are logged and never reach the caller.
type listeners struct {
	mu     sync.RWMutex
	list   []namedListener
	logger *slog.Logger
}

// RegisterListener adds l under name, replacing a listener of the same name in place.
func (n *listeners) RegisterListener(name string, l Listener) error {
	if name == "" {
		return errors.Join(ErrInvalidArgument, errors.New("listener name cannot be empty"))
	}
	if l == nil {
		return errors.Join(ErrInvalidArgument, fmt.Errorf("listener %q cannot be nil", name))
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if i := n.index(name); i >= 0 {
		n.list[i].l = l
		return nil
	}
	n.list = append(n.list, namedListener{name: name, l: l})
	return nil
}

func (n *listeners) UnregisterListener(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if i := n.index(name); i >= 0 {
		n.list = slices.Delete(n.list, i, i+1)
	}
}

// RegisterAuditListener mirrors every change into sink as PROPERTY and
// PROPERTYSTORE events.
func (n *listeners) RegisterAuditListener(sink event.Logger, opts ...event.AuditOption) {
	l := event.NewAuditListener[Property](sink, event.ScopeProperty, event.ScopePropertyStore, opts...)
	_ = n.RegisterListener(AuditListenerName, l)
}

func (n *listeners) UnregisterAuditListener() {
	n.UnregisterListener(AuditListenerName)
}

// Listeners returns the registered names in dispatch order.
func (n *listeners) Listeners() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	names := make([]string, len(n.list))
	for i, e := range n.list {
		names[i] = e.name
	}
	return names
}

func (n *listeners) index(name string) int {
	return slices.IndexFunc(n.list, func(e namedListener) bool { return e.name == name })
}

func (n *listeners) dispatch(ctx context.Context, op, uid string, call func(Listener) error) {
	n.mu.RLock()
	snapshot := slices.Clone(n.list)
	n.mu.RUnlock()

	for _, e := range snapshot {
		if err := safeCall(e.l, call); err != nil {
			attrs := []slog.Attr{
				logger.Listener(e.name),
				slog.String("operation", op),
				logger.Error(err),
			}
			if uid != "" {
				attrs = append(attrs, slog.String("property", uid))
			}
			n.logger.LogAttrs(ctx, slog.LevelError, "property listener failed", attrs...)
		}
	}
}

func safeCall(l Listener, call func(Listener) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()
	return call(l)
}
