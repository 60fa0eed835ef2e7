package feature

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

// Listener is notified after a repository change is applied. Listeners must
// not mutate the features they receive.
type Listener interface {
	OnCreateSchema(ctx context.Context) error
	OnDeleteAll(ctx context.Context) error
	OnUpdate(ctx context.Context, f *Feature) error
	OnDelete(ctx context.Context, uid string) error
}

var _ Listener = (*event.AuditListener[*Feature])(nil)

// Notifier is a named listener registry that repositories embed. Listeners
// run synchronously in registration order; their errors and panics are logged
// and never reach the caller of the repository operation.
type Notifier struct {
	mu        sync.RWMutex
	names     []string
	listeners map[string]Listener
	logger    *slog.Logger
}

// NewNotifier creates an empty registry that reports listener failures to l.
func NewNotifier(l *slog.Logger) *Notifier {
	if l == nil {
		l = slog.Default()
	}
	return &Notifier{
		listeners: make(map[string]Listener),
		logger:    l,
	}
}

// RegisterListener adds l under name. A listener already registered under the
// same name is replaced and keeps its position.
func (n *Notifier) RegisterListener(name string, l Listener) error {
	if name == "" {
		return errors.Join(ErrInvalidArgument, errors.New("listener name cannot be empty"))
	}
	if l == nil {
		return errors.Join(ErrInvalidArgument, fmt.Errorf("listener %q cannot be nil", name))
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[name]; !ok {
		n.names = append(n.names, name)
	}
	n.listeners[name] = l
	return nil
}

func (n *Notifier) UnregisterListener(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[name]; !ok {
		return
	}
	delete(n.listeners, name)
	n.names = slices.DeleteFunc(n.names, func(s string) bool { return s == name })
}

// RegisterAuditListener registers an audit listener writing to sink under AuditListenerName.
func (n *Notifier) RegisterAuditListener(sink event.Logger, opts ...event.AuditOption) {
	l := event.NewAuditListener[*Feature](sink, event.ScopeFeature, event.ScopeStore, opts...)
	_ = n.RegisterListener(AuditListenerName, l)
}

func (n *Notifier) UnregisterAuditListener() {
	n.UnregisterListener(AuditListenerName)
}

// Listeners returns the registered names in dispatch order.
func (n *Notifier) Listeners() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.names)
}

func (n *Notifier) NotifyCreateSchema(ctx context.Context) {
	n.dispatch(ctx, "create_schema", func(l Listener) error {
		return l.OnCreateSchema(ctx)
	})
}

func (n *Notifier) NotifyDeleteAll(ctx context.Context) {
	n.dispatch(ctx, "delete_all", func(l Listener) error {
		return l.OnDeleteAll(ctx)
	})
}

func (n *Notifier) NotifyUpdate(ctx context.Context, f *Feature) {
	n.dispatch(ctx, "update", func(l Listener) error {
		return l.OnUpdate(ctx, f)
	}, logger.Feature(f.UID()))
}

func (n *Notifier) NotifyDelete(ctx context.Context, uid string) {
	n.dispatch(ctx, "delete", func(l Listener) error {
		return l.OnDelete(ctx, uid)
	}, logger.Feature(uid))
}

func (n *Notifier) dispatch(ctx context.Context, op string, call func(Listener) error, attrs ...slog.Attr) {
	n.mu.RLock()
	type entry struct {
		name string
		l    Listener
	}
	snapshot := make([]entry, 0, len(n.names))
	for _, name := range n.names {
		snapshot = append(snapshot, entry{name, n.listeners[name]})
	}
	n.mu.RUnlock()

	for _, e := range snapshot {
		if err := safeCall(e.l, call); err != nil {
			n.logger.LogAttrs(ctx, slog.LevelError, "feature listener failed",
				append([]slog.Attr{
					logger.Listener(e.name),
					slog.String("operation", op),
					logger.Error(err),
				}, attrs...)...,
			)
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
