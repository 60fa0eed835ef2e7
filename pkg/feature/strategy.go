package feature

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrymomot/featurekit/pkg/property"
)

// ToggleStrategy decides, for an enabled feature, whether it is on for a
// given ToggleContext. Strategies are immutable once built; their parameters
// are exposed as properties so they can be stored and rebuilt.
type ToggleStrategy interface {
	// Type is the registry key the strategy is rebuilt from.
	Type() string
	// Owner is the uid of the feature the strategy belongs to.
	Owner() string
	// Properties returns copies of the strategy parameters.
	Properties() []property.Property
	Evaluate(ctx context.Context, tc ToggleContext) (bool, error)
}

// StrategyFactory builds a strategy from its parameters, keyed by property uid.
type StrategyFactory func(owner string, params Params) (ToggleStrategy, error)

// Params are the properties a strategy is built from, keyed by uid.
type Params map[string]property.Property

var strategies = struct {
	mu        sync.RWMutex
	factories map[string]StrategyFactory
}{factories: make(map[string]StrategyFactory)}

// RegisterStrategy adds or replaces the factory for typ.
func RegisterStrategy(typ string, factory StrategyFactory) {
	if typ == "" || factory == nil {
		panic("feature: strategy type and factory are required")
	}
	strategies.mu.Lock()
	defer strategies.mu.Unlock()
	strategies.factories[typ] = factory
}

// StrategyTypes returns the registered strategy types in sorted order.
func StrategyTypes() []string {
	strategies.mu.RLock()
	defer strategies.mu.RUnlock()
	out := make([]string, 0, len(strategies.factories))
	for typ := range strategies.factories {
		out = append(out, typ)
	}
	slices.Sort(out)
	return out
}

// NewStrategy builds a registered strategy. Properties are copied.
func NewStrategy(typ, owner string, props ...property.Property) (ToggleStrategy, error) {
	strategies.mu.RLock()
	factory, ok := strategies.factories[typ]
	strategies.mu.RUnlock()
	if !ok {
		return nil, errors.Join(ErrUnknownStrategy, fmt.Errorf("strategy type %q", typ))
	}

	params := make(Params, len(props))
	for _, p := range props {
		if p == nil {
			return nil, errors.Join(ErrInvalidArgument, errors.New("strategy property cannot be nil"))
		}
		params[p.UID()] = p.Clone()
	}
	return factory(owner, params)
}

// CloneStrategy rebuilds s through the registry for a new owner.
func CloneStrategy(s ToggleStrategy, owner string) (ToggleStrategy, error) {
	return NewStrategy(s.Type(), owner, s.Properties()...)
}

// StrategyRecord is the serialisable form of a strategy.
type StrategyRecord struct {
	Type       string            `json:"type" yaml:"type"`
	Properties []property.Record `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// StrategyToRecord captures s in its serialisable form.
func StrategyToRecord(s ToggleStrategy) StrategyRecord {
	return StrategyRecord{Type: s.Type(), Properties: property.ToRecords(s.Properties())}
}

// StrategyFromRecord rebuilds a strategy for owner.
func StrategyFromRecord(owner string, r StrategyRecord) (ToggleStrategy, error) {
	props, err := property.FromRecords(r.Properties)
	if err != nil {
		return nil, errors.Join(ErrInvalidStrategy, fmt.Errorf("strategy %q", r.Type), err)
	}
	return NewStrategy(r.Type, owner, props...)
}

// param fetches the named parameter as T. A parameter of another type (for
// example a plain string read from a config file) is re-decoded with codec.
func param[T any](params Params, typ, name string, codec property.Codec[T]) (*property.Typed[T], error) {
	p, ok := params[name]
	if !ok {
		return nil, errors.Join(ErrInvalidStrategy, fmt.Errorf("%s strategy requires %q", typ, name))
	}
	if typed, ok := p.(*property.Typed[T]); ok && typed.Type() == codec.Type() {
		return typed, nil
	}

	v, err := codec.Decode(p.Encode())
	if err != nil {
		return nil, errors.Join(ErrInvalidStrategy, fmt.Errorf("%s strategy parameter %q", typ, name), err)
	}
	typed, err := property.New(name, codec, v, property.WithDescription(p.Description()))
	if err != nil {
		return nil, errors.Join(ErrInvalidStrategy, err)
	}
	return typed, nil
}

// baseStrategy carries the parts every built-in strategy shares.
type baseStrategy struct {
	typ    string
	owner  string
	params []property.Property
}

func newBase(typ, owner string, params ...property.Property) baseStrategy {
	return baseStrategy{typ: typ, owner: owner, params: params}
}

func (b baseStrategy) Type() string {
	return b.typ
}

func (b baseStrategy) Owner() string {
	return b.owner
}

func (b baseStrategy) Properties() []property.Property {
	out := make([]property.Property, len(b.params))
	for i, p := range b.params {
		out[i] = p.Clone()
	}
	return out
}
