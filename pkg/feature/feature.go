package feature

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/property"
)

// Feature is a named switch with an optional group, ordered toggle strategies,
// custom properties and an access control list.
//
// A Feature is not safe for concurrent mutation. Repositories store and return
// deep copies, so a Feature obtained from one is owned by the caller.
type Feature struct {
	uid         string
	description string
	enabled     bool
	group       string
	ttl         time.Duration
	strategies  []ToggleStrategy
	properties  map[string]property.Property
	acl         AccessControlList
	createdAt   time.Time
	updatedAt   time.Time
}

// Option configures a feature at construction.
type Option func(*Feature) error

// WithEnabled sets the initial toggle state. Features start disabled.
func WithEnabled(enabled bool) Option {
	return func(f *Feature) error {
		f.enabled = enabled
		return nil
	}
}

func WithDescription(d string) Option {
	return func(f *Feature) error {
		f.description = d
		return nil
	}
}

// WithGroup places the feature in a group.
func WithGroup(name string) Option {
	return func(f *Feature) error {
		f.group = name
		return nil
	}
}

// WithTTL records a time to live. It is advisory: nothing removes expired features.
func WithTTL(ttl time.Duration) Option {
	return func(f *Feature) error {
		if ttl < 0 {
			return errors.Join(ErrInvalidArgument, errors.New("ttl cannot be negative"))
		}
		f.ttl = ttl
		return nil
	}
}

// WithStrategies appends strategies, re-owned by the feature.
func WithStrategies(strategies ...ToggleStrategy) Option {
	return func(f *Feature) error {
		for _, s := range strategies {
			if err := f.addStrategy(s); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithProperties attaches custom properties.
func WithProperties(props ...property.Property) Option {
	return func(f *Feature) error {
		for _, p := range props {
			if err := f.addProperty(p); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithPermission grants permission to the given grantees.
func WithPermission(permission string, g Grantees) Option {
	return func(f *Feature) error {
		return f.grant(permission, g)
	}
}

// New creates a feature. The uid cannot be empty.
func New(uid string, opts ...Option) (*Feature, error) {
	if uid == "" {
		return nil, errors.Join(ErrInvalidArgument, errors.New("feature uid cannot be empty"))
	}

	now := time.Now().UTC()
	f := &Feature{
		uid:        uid,
		properties: make(map[string]property.Property),
		createdAt:  now,
		updatedAt:  now,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// UID returns the immutable feature identifier.
func (f *Feature) UID() string {
	return f.uid
}

func (f *Feature) Description() string {
	return f.description
}

func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Group returns the group name, "" when the feature is ungrouped.
func (f *Feature) Group() string {
	return f.group
}

func (f *Feature) TTL() time.Duration {
	return f.ttl
}

func (f *Feature) CreatedAt() time.Time {
	return f.createdAt
}

func (f *Feature) UpdatedAt() time.Time {
	return f.updatedAt
}

// Strategies returns the strategies in evaluation order.
func (f *Feature) Strategies() []ToggleStrategy {
	return slices.Clone(f.strategies)
}

// Property returns the named property. Assigning through it refreshes UpdatedAt.
func (f *Feature) Property(uid string) (property.Property, bool) {
	p, ok := f.properties[uid]
	return p, ok
}

// Properties returns the properties sorted by uid.
func (f *Feature) Properties() []property.Property {
	out := make([]property.Property, 0, len(f.properties))
	for _, uid := range slices.Sorted(maps.Keys(f.properties)) {
		out = append(out, f.properties[uid])
	}
	return out
}

// Permissions returns a copy of the access control list.
func (f *Feature) Permissions() AccessControlList {
	return f.acl.Clone()
}

// Expired reports whether the TTL has elapsed at now. A zero TTL never expires.
func (f *Feature) Expired(now time.Time) bool {
	return f.ttl > 0 && !now.Before(f.createdAt.Add(f.ttl))
}

func (f *Feature) Enable() {
	f.SetEnabled(true)
}

func (f *Feature) Disable() {
	f.SetEnabled(false)
}

func (f *Feature) SetEnabled(enabled bool) {
	f.enabled = enabled
	f.touch()
}

// SetGroup moves the feature to group. An empty name removes it from its group.
func (f *Feature) SetGroup(name string) {
	f.group = name
	f.touch()
}

func (f *Feature) SetDescription(d string) {
	f.description = d
	f.touch()
}

func (f *Feature) SetTTL(ttl time.Duration) error {
	if ttl < 0 {
		return errors.Join(ErrInvalidArgument, errors.New("ttl cannot be negative"))
	}
	f.ttl = ttl
	f.touch()
	return nil
}

// AddStrategy appends s to the evaluation order. The feature keeps its own
// copy of s, owned by the feature uid.
func (f *Feature) AddStrategy(s ToggleStrategy) error {
	if err := f.addStrategy(s); err != nil {
		return err
	}
	f.touch()
	return nil
}

// SetStrategies replaces every strategy. Nothing changes if any of them fails to copy.
func (f *Feature) SetStrategies(strategies ...ToggleStrategy) error {
	owned := make([]ToggleStrategy, 0, len(strategies))
	for _, s := range strategies {
		c, err := f.own(s)
		if err != nil {
			return err
		}
		owned = append(owned, c)
	}
	f.strategies = owned
	f.touch()
	return nil
}

// AddProperty stores a copy of p, replacing the property with the same uid.
// Later changes go through Property(uid).
func (f *Feature) AddProperty(p property.Property) error {
	if err := f.addProperty(p); err != nil {
		return err
	}
	f.touch()
	return nil
}

// RemoveProperty deletes the named property and reports whether it existed.
func (f *Feature) RemoveProperty(uid string) bool {
	p, ok := f.properties[uid]
	if !ok {
		return false
	}
	p.OnChange(nil)
	delete(f.properties, uid)
	f.touch()
	return true
}

// Grant adds grantees to permission, merging with existing ones.
func (f *Feature) Grant(permission string, g Grantees) error {
	if err := f.grant(permission, g); err != nil {
		return err
	}
	f.touch()
	return nil
}

// Revoke removes permission entirely and reports whether it existed.
func (f *Feature) Revoke(permission string) bool {
	if _, ok := f.acl[permission]; !ok {
		return false
	}
	delete(f.acl, permission)
	f.touch()
	return true
}

// IsToggled decides whether the feature is on for tc. A disabled feature is
// off without consulting strategies; an enabled one without strategies is on.
// Otherwise every strategy must agree, in order, stopping at the first false
// or error.
func (f *Feature) IsToggled(ctx context.Context, tc ToggleContext) (bool, error) {
	if !f.enabled {
		return false, nil
	}
	if len(f.strategies) == 0 {
		return true, nil
	}

	tc.Feature = f
	for _, s := range f.strategies {
		ok, err := s.Evaluate(ctx, tc)
		if err != nil {
			return false, &StrategyError{Type: s.Type(), Err: err}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Clone returns an independent copy. A non-empty newUID renames the copy and
// re-owns its strategies.
func (f *Feature) Clone(newUID string) (*Feature, error) {
	uid := f.uid
	if newUID != "" {
		uid = newUID
	}

	c := &Feature{
		uid:         uid,
		description: f.description,
		enabled:     f.enabled,
		group:       f.group,
		ttl:         f.ttl,
		properties:  make(map[string]property.Property, len(f.properties)),
		acl:         f.acl.Clone(),
		createdAt:   f.createdAt,
		updatedAt:   f.updatedAt,
	}
	for _, s := range f.strategies {
		if err := c.addStrategy(s); err != nil {
			return nil, err
		}
	}
	for _, p := range f.properties {
		if err := c.addProperty(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustClone is Clone for features whose strategies are known to be registered.
func (f *Feature) MustClone() *Feature {
	c, err := f.Clone("")
	if err != nil {
		panic(err)
	}
	return c
}

func (f *Feature) touch() {
	f.updatedAt = time.Now().UTC()
}

func (f *Feature) own(s ToggleStrategy) (ToggleStrategy, error) {
	if s == nil {
		return nil, errors.Join(ErrInvalidArgument, errors.New("strategy cannot be nil"))
	}
	return CloneStrategy(s, f.uid)
}

func (f *Feature) addStrategy(s ToggleStrategy) error {
	c, err := f.own(s)
	if err != nil {
		return err
	}
	f.strategies = append(f.strategies, c)
	return nil
}

func (f *Feature) addProperty(p property.Property) error {
	if p == nil {
		return errors.Join(ErrInvalidArgument, errors.New("property cannot be nil"))
	}
	c := p.Clone()
	c.OnChange(f.touch)
	f.properties[c.UID()] = c
	return nil
}

func (f *Feature) grant(permission string, g Grantees) error {
	if permission == "" {
		return errors.Join(ErrInvalidArgument, errors.New("permission cannot be empty"))
	}
	if f.acl == nil {
		f.acl = make(AccessControlList)
	}
	f.acl[permission] = f.acl[permission].merge(g)
	return nil
}
