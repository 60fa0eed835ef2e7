package event

import (
	"context"
	"os"
)

// Entity is anything with a stable uid that a store persists.
type Entity interface {
	UID() string
}

// AuditListener turns repository notifications into events written to a Logger.
// It satisfies the listener contract of any store whose entities implement Entity.
type AuditListener[E Entity] struct {
	logger      Logger
	entityScope Scope
	storeScope  Scope
	source      Source
	host        string
}

// AuditOption configures an AuditListener.
type AuditOption func(*auditOptions)

type auditOptions struct {
	source Source
	host   string
}

// WithAuditSource sets the source stamped on audit events. The default is SourceUnknown.
func WithAuditSource(s Source) AuditOption {
	return func(o *auditOptions) {
		o.source = s
	}
}

// WithAuditHost overrides the host stamped on audit events. The default is os.Hostname.
func WithAuditHost(host string) AuditOption {
	return func(o *auditOptions) {
		o.host = host
	}
}

// NewAuditListener creates a listener that records entity changes in scopeEntity
// and store-wide changes in scopeStore.
func NewAuditListener[E Entity](logger Logger, scopeEntity, scopeStore Scope, opts ...AuditOption) *AuditListener[E] {
	if logger == nil {
		panic("event: audit logger cannot be nil")
	}

	o := auditOptions{source: SourceUnknown}
	if h, err := os.Hostname(); err == nil {
		o.host = h
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &AuditListener[E]{
		logger:      logger,
		entityScope: scopeEntity,
		storeScope:  scopeStore,
		source:      o.source,
		host:        o.host,
	}
}

func (l *AuditListener[E]) OnCreateSchema(ctx context.Context) error {
	return l.log(ctx, ActionCreateSchema, l.storeScope, "")
}

func (l *AuditListener[E]) OnDeleteAll(ctx context.Context) error {
	return l.log(ctx, ActionDelete, l.storeScope, "")
}

func (l *AuditListener[E]) OnUpdate(ctx context.Context, entity E) error {
	return l.log(ctx, ActionUpdate, l.entityScope, entity.UID())
}

func (l *AuditListener[E]) OnDelete(ctx context.Context, uid string) error {
	return l.log(ctx, ActionDelete, l.entityScope, uid)
}

func (l *AuditListener[E]) log(ctx context.Context, action Action, scope Scope, target string) error {
	return l.logger.Log(ctx, New(action, scope, target, WithSource(l.source), WithHost(l.host)))
}
