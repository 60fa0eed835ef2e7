package property

import (
	"errors"
	"fmt"
	"slices"
)

// Property is the type-erased view of a Typed value. Features and toggle
// strategies keep their parameters as Property so heterogeneous values can
// share one map.
type Property interface {
	UID() string
	Type() Type
	Description() string
	SetDescription(d string)
	// Encode returns the canonical string form of the current value.
	Encode() string
	// SetFromString decodes s and assigns it, enforcing fixed values.
	SetFromString(s string) error
	// FixedValues returns the encoded permitted values, nil when unconstrained.
	FixedValues() []string
	// Clone returns an independent copy without the change hook.
	Clone() Property
	// OnChange registers fn to be called after every successful assignment.
	OnChange(fn func())
}

// Option configures a property at construction.
type Option func(*options)

type options struct {
	description string
	fixed       []string
	hasFixed    bool
	delimiter   string
}

// WithDescription sets the human readable description.
func WithDescription(d string) Option {
	return func(o *options) {
		o.description = d
	}
}

// WithFixedValues restricts the property to the given encoded values.
// Values are decoded with the property codec at construction.
func WithFixedValues(values ...string) Option {
	return func(o *options) {
		o.fixed = append(o.fixed, values...)
		o.hasFixed = true
	}
}

// WithListDelimiter sets the element delimiter of a list property created
// through the registry. Scalar types ignore it.
func WithListDelimiter(d string) Option {
	return func(o *options) {
		o.delimiter = d
	}
}

// Typed is a named value of type T with a canonical string encoding.
// It is not safe for concurrent mutation; owners serialise writes.
type Typed[T any] struct {
	uid         string
	value       T
	description string
	fixed       []T
	codec       Codec[T]
	onChange    func()
}

var _ Property = (*Typed[string])(nil)

// New creates a property. Fixed values are validated before the initial value,
// so a value outside the set fails with ErrConstraintViolation.
func New[T any](uid string, codec Codec[T], value T, opts ...Option) (*Typed[T], error) {
	if uid == "" {
		return nil, errors.Join(ErrInvalidArgument, errors.New("property uid cannot be empty"))
	}
	if codec == nil {
		return nil, errors.Join(ErrInvalidArgument, errors.New("property codec cannot be nil"))
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Typed[T]{
		uid:         uid,
		codec:       codec,
		description: o.description,
	}

	if o.hasFixed {
		p.fixed = make([]T, 0, len(o.fixed))
		for _, raw := range o.fixed {
			v, err := codec.Decode(raw)
			if err != nil {
				return nil, err
			}
			p.fixed = append(p.fixed, v)
		}
	}

	if err := p.validate(value); err != nil {
		return nil, err
	}
	p.value = value

	return p, nil
}

// UID returns the property name, unique within its owner.
func (p *Typed[T]) UID() string {
	return p.uid
}

// Type returns the codec discriminator.
func (p *Typed[T]) Type() Type {
	return p.codec.Type()
}

// Codec returns the codec used for encoding.
func (p *Typed[T]) Codec() Codec[T] {
	return p.codec
}

func (p *Typed[T]) Description() string {
	return p.description
}

func (p *Typed[T]) SetDescription(d string) {
	p.description = d
}

// Delimiter returns the element separator of a list property, "" for scalars.
func (p *Typed[T]) Delimiter() string {
	if d, ok := p.codec.(interface{ Delimiter() string }); ok {
		return d.Delimiter()
	}
	return ""
}

// Value returns the current value.
func (p *Typed[T]) Value() T {
	return p.value
}

// Set assigns v after checking it against the fixed values.
func (p *Typed[T]) Set(v T) error {
	if err := p.validate(v); err != nil {
		return err
	}
	p.value = v
	if p.onChange != nil {
		p.onChange()
	}
	return nil
}

// Encode returns the canonical string form of the current value.
func (p *Typed[T]) Encode() string {
	return p.codec.Encode(p.value)
}

// Decode parses s with the property codec without assigning it.
func (p *Typed[T]) Decode(s string) (T, error) {
	return p.codec.Decode(s)
}

func (p *Typed[T]) SetFromString(s string) error {
	v, err := p.codec.Decode(s)
	if err != nil {
		return err
	}
	return p.Set(v)
}

// HasFixedValues reports whether the property is constrained.
func (p *Typed[T]) HasFixedValues() bool {
	return p.fixed != nil
}

func (p *Typed[T]) FixedValues() []string {
	if p.fixed == nil {
		return nil
	}
	out := make([]string, len(p.fixed))
	for i, v := range p.fixed {
		out[i] = p.codec.Encode(v)
	}
	return out
}

// AddFixedValue extends the permitted set. Turning an unconstrained property
// into a constrained one fails if the current value would fall outside it.
func (p *Typed[T]) AddFixedValue(v T) error {
	if p.contains(v) {
		return nil
	}
	if p.fixed == nil && p.codec.Encode(v) != p.Encode() {
		return errors.Join(ErrConstraintViolation,
			fmt.Errorf("current value %q of %q is not %q", p.Encode(), p.uid, p.codec.Encode(v)))
	}
	p.fixed = append(p.fixed, v)
	return nil
}

func (p *Typed[T]) OnChange(fn func()) {
	p.onChange = fn
}

// Clone returns a deep, hook-free copy. Slice values are copied through the codec.
func (p *Typed[T]) Clone() Property {
	return p.CloneTyped()
}

// CloneTyped is Clone without the type erasure.
func (p *Typed[T]) CloneTyped() *Typed[T] {
	c := &Typed[T]{
		uid:         p.uid,
		description: p.description,
		codec:       p.codec,
		value:       p.copyValue(p.value),
	}
	if p.fixed != nil {
		c.fixed = make([]T, len(p.fixed))
		for i, v := range p.fixed {
			c.fixed[i] = p.copyValue(v)
		}
	}
	return c
}

// String implements fmt.Stringer.
func (p *Typed[T]) String() string {
	return p.uid + "=" + p.Encode()
}

func (p *Typed[T]) validate(v T) error {
	if p.fixed == nil || p.contains(v) {
		return nil
	}
	allowed := p.FixedValues()
	return errors.Join(ErrConstraintViolation,
		fmt.Errorf("value %q of %q must be one of %v", p.codec.Encode(v), p.uid, allowed))
}

// contains compares canonical encodings so non-comparable T (lists) work too.
func (p *Typed[T]) contains(v T) bool {
	enc := p.codec.Encode(v)
	return slices.ContainsFunc(p.fixed, func(f T) bool {
		return p.codec.Encode(f) == enc
	})
}

// valueCloner is implemented by codecs whose values share memory (lists).
type valueCloner[T any] interface {
	Clone(v T) T
}

func (p *Typed[T]) copyValue(v T) T {
	if c, ok := p.codec.(valueCloner[T]); ok {
		return c.Clone(v)
	}
	return v
}
