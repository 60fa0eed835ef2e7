package feature

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/property"
)

// Record is the serialisable form of a feature, shared by the JSON encoding,
// config files and stores that keep features as documents.
type Record struct {
	UID         string              `json:"uid" yaml:"uid"`
	Enabled     bool                `json:"enabled" yaml:"enabled"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Group       string              `json:"group,omitempty" yaml:"group,omitempty"`
	TTL         string              `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	Strategies  []StrategyRecord    `json:"strategies,omitempty" yaml:"strategies,omitempty"`
	Properties  []property.Record   `json:"properties,omitempty" yaml:"properties,omitempty"`
	Permissions map[string]Grantees `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	CreatedAt   time.Time           `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
	UpdatedAt   time.Time           `json:"updatedAt,omitzero" yaml:"updatedAt,omitempty"`
}

// ToRecord captures f in its serialisable form.
func ToRecord(f *Feature) Record {
	r := Record{
		UID:         f.uid,
		Enabled:     f.enabled,
		Description: f.description,
		Group:       f.group,
		Properties:  property.ToRecords(f.Properties()),
		Permissions: f.acl.Clone(),
		CreatedAt:   f.createdAt,
		UpdatedAt:   f.updatedAt,
	}
	if f.ttl > 0 {
		r.TTL = f.ttl.String()
	}
	for _, s := range f.strategies {
		r.Strategies = append(r.Strategies, StrategyToRecord(s))
	}
	return r
}

// FromRecord rebuilds a feature. Missing timestamps are set to now.
func FromRecord(r Record) (*Feature, error) {
	opts := []Option{
		WithEnabled(r.Enabled),
		WithDescription(r.Description),
		WithGroup(r.Group),
	}
	if r.TTL != "" {
		ttl, err := time.ParseDuration(r.TTL)
		if err != nil {
			return nil, errors.Join(ErrInvalidArgument, fmt.Errorf("feature %q ttl", r.UID), err)
		}
		opts = append(opts, WithTTL(ttl))
	}
	for _, sr := range r.Strategies {
		s, err := StrategyFromRecord(r.UID, sr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithStrategies(s))
	}
	props, err := property.FromRecords(r.Properties)
	if err != nil {
		return nil, errors.Join(ErrInvalidArgument, fmt.Errorf("feature %q properties", r.UID), err)
	}
	opts = append(opts, WithProperties(props...))
	for _, perm := range AccessControlList(r.Permissions).Permissions() {
		opts = append(opts, WithPermission(perm, r.Permissions[perm]))
	}

	f, err := New(r.UID, opts...)
	if err != nil {
		return nil, err
	}
	if !r.CreatedAt.IsZero() {
		f.createdAt = r.CreatedAt.UTC()
	}
	if !r.UpdatedAt.IsZero() {
		f.updatedAt = r.UpdatedAt.UTC()
	} else if !r.CreatedAt.IsZero() {
		f.updatedAt = f.createdAt
	}
	return f, nil
}

func (f *Feature) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToRecord(f))
}

func (f *Feature) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	built, err := FromRecord(r)
	if err != nil {
		return err
	}
	*f = *built
	for _, p := range f.properties {
		p.OnChange(f.touch)
	}
	return nil
}
