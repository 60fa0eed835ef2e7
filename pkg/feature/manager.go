package feature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/featurekit/pkg/event"
	"github.com/dmitrymomot/featurekit/pkg/logger"
)

const tracerName = "github.com/dmitrymomot/featurekit/pkg/feature"

// Manager is the entry point applications check features through. It reads
// from a Repository, records usage events and offers read-modify-save helpers
// so every change reaches the repository listeners.
type Manager struct {
	repo       Repository
	usage      event.Logger
	autoCreate bool
	source     event.Source
	logger     *slog.Logger
	tracer     trace.Tracer
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithUsageLogger records a HIT event for every positive check and a
// TOGGLE_ON / TOGGLE_OFF event for every toggle.
func WithUsageLogger(l event.Logger) ManagerOption {
	return func(m *Manager) {
		m.usage = l
	}
}

// WithAutoCreate makes Check store unknown features, disabled, instead of failing.
func WithAutoCreate() ManagerOption {
	return func(m *Manager) {
		m.autoCreate = true
	}
}

// WithSource sets the source stamped on usage events.
func WithSource(s event.Source) ManagerOption {
	return func(m *Manager) {
		m.source = s
	}
}

func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTracerProvider traces checks and toggles with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) ManagerOption {
	return func(m *Manager) {
		if tp != nil {
			m.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewManager creates a manager over repo.
func NewManager(repo Repository, opts ...ManagerOption) *Manager {
	if repo == nil {
		panic("feature: repository cannot be nil")
	}
	m := &Manager{
		repo:   repo,
		source: event.SourceAPI,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Repository returns the underlying repository.
func (m *Manager) Repository() Repository {
	return m.repo
}

// Check reports whether feature uid is on for tc.
func (m *Manager) Check(ctx context.Context, uid string, tc ToggleContext) (on bool, err error) {
	ctx, span := m.tracer.Start(ctx, "feature.Check", trace.WithAttributes(attribute.String("feature.uid", uid)))
	defer func() {
		span.SetAttributes(attribute.Bool("feature.on", on))
		endSpan(span, err)
	}()
	start := time.Now()

	f, err := m.repo.Find(ctx, uid)
	if errors.Is(err, ErrFeatureNotFound) && m.autoCreate {
		span.SetAttributes(attribute.Bool("feature.auto_created", true))
		return false, m.create(ctx, uid)
	}
	if err != nil {
		return false, err
	}

	on, err = f.IsToggled(ctx, tc)
	if err != nil {
		var se *StrategyError
		if errors.As(err, &se) {
			m.logger.WarnContext(ctx, "toggle strategy failed",
				logger.Feature(uid),
				logger.Strategy(se.Type),
				logger.Error(se.Err),
			)
		}
		return false, err
	}
	if on {
		m.record(ctx, event.New(event.ActionHit, event.ScopeFeature, uid,
			event.WithSource(m.source),
			event.WithUser(tc.UserID),
			event.WithDuration(time.Since(start)),
		))
	}
	return on, nil
}

func (m *Manager) create(ctx context.Context, uid string) error {
	f, err := New(uid)
	if err != nil {
		return err
	}
	if err := m.repo.Save(ctx, f); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "feature auto-created", logger.Feature(uid))
	return nil
}

func (m *Manager) Enable(ctx context.Context, uid string) error {
	return m.toggle(ctx, uid, true)
}

func (m *Manager) Disable(ctx context.Context, uid string) error {
	return m.toggle(ctx, uid, false)
}

func (m *Manager) toggle(ctx context.Context, uid string, on bool) (err error) {
	ctx, span := m.tracer.Start(ctx, "feature.Toggle", trace.WithAttributes(
		attribute.String("feature.uid", uid),
		attribute.Bool("feature.on", on),
	))
	defer func() { endSpan(span, err) }()

	err = m.update(ctx, uid, func(f *Feature) error {
		f.SetEnabled(on)
		return nil
	})
	if err != nil {
		return err
	}
	m.record(ctx, toggleEvent(uid, on, m.source))
	return nil
}

// EnableGroup enables every member of the group.
func (m *Manager) EnableGroup(ctx context.Context, name string) error {
	return m.toggleGroup(ctx, name, true)
}

// DisableGroup disables every member of the group.
func (m *Manager) DisableGroup(ctx context.Context, name string) error {
	return m.toggleGroup(ctx, name, false)
}

func (m *Manager) toggleGroup(ctx context.Context, name string, on bool) (err error) {
	ctx, span := m.tracer.Start(ctx, "feature.ToggleGroup", trace.WithAttributes(
		attribute.String("feature.group", name),
		attribute.Bool("feature.on", on),
	))
	defer func() { endSpan(span, err) }()

	members, err := m.repo.ReadGroup(ctx, name)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("feature.group.size", len(members)))
	for _, f := range members {
		f.SetEnabled(on)
		if err := m.repo.Save(ctx, f); err != nil {
			return err
		}
		m.record(ctx, toggleEvent(f.UID(), on, m.source))
	}
	m.logger.InfoContext(ctx, "feature group toggled",
		logger.FeatureGroup(name),
		logger.Count(len(members)),
		slog.Bool("enabled", on),
	)
	return nil
}

// AddToGroup moves feature uid into group.
func (m *Manager) AddToGroup(ctx context.Context, uid, group string) error {
	if group == "" {
		return errors.Join(ErrInvalidArgument, errors.New("group name cannot be empty"))
	}
	return m.update(ctx, uid, func(f *Feature) error {
		f.SetGroup(group)
		return nil
	})
}

// RemoveFromGroup takes feature uid out of group. The feature must be a member.
func (m *Manager) RemoveFromGroup(ctx context.Context, uid, group string) error {
	return m.update(ctx, uid, func(f *Feature) error {
		if f.Group() != group {
			return errors.Join(ErrInvalidArgument, fmt.Errorf("feature %q is not in group %q", uid, group))
		}
		f.SetGroup("")
		return nil
	})
}

func (m *Manager) update(ctx context.Context, uid string, fn func(*Feature) error) error {
	f, err := m.repo.Find(ctx, uid)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return m.repo.Save(ctx, f)
}

// record writes a usage event; failures are logged only.
func (m *Manager) record(ctx context.Context, e event.Event) {
	if m.usage == nil {
		return
	}
	if err := m.usage.Log(ctx, e); err != nil {
		m.logger.WarnContext(ctx, "failed to record feature usage",
			logger.Feature(e.TargetUID),
			logger.EventID(e.UID),
			logger.Error(err),
		)
	}
}

func toggleEvent(uid string, on bool, source event.Source) event.Event {
	action := event.ActionToggleOff
	if on {
		action = event.ActionToggleOn
	}
	return event.New(action, event.ScopeFeature, uid, event.WithSource(source))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
