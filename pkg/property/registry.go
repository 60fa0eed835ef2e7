package property

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Factory builds a property of a registered type from its encoded value.
type Factory func(uid, raw string, opts ...Option) (Property, error)

type registry struct {
	mu     sync.RWMutex
	scalar map[Type]Factory
	list   map[Type]Factory
}

var types = &registry{
	scalar: make(map[Type]Factory),
	list:   make(map[Type]Factory),
}

func init() {
	RegisterCodec[string](StringCodec{})
	RegisterCodec[bool](BoolCodec{})
	RegisterCodec[int](IntCodec{})
	RegisterCodec[int64](LongCodec{})
	RegisterCodec[float64](FloatCodec{})
	RegisterCodec[time.Duration](DurationCodec{})
	RegisterCodec[time.Time](InstantCodec{})
	RegisterCodec[slog.Level](LogLevelCodec{})
}

// Register adds or replaces the factory for a scalar type. List types cannot
// be registered directly; they are derived from their element codec by
// RegisterCodec.
func Register(t Type, f Factory) {
	if t == "" || f == nil {
		panic("property: type and factory are required")
	}
	if _, isList := ElementType(t); isList {
		panic(fmt.Sprintf("property: cannot register list type %q directly", t))
	}
	types.mu.Lock()
	defer types.mu.Unlock()
	types.scalar[t] = f
}

// RegisterCodec registers the scalar type of c together with its list type.
func RegisterCodec[T any](c Codec[T]) {
	t := c.Type()
	scalar := func(uid, raw string, opts ...Option) (Property, error) {
		v, err := c.Decode(raw)
		if err != nil {
			return nil, err
		}
		p, err := New(uid, c, v, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	list := func(uid, raw string, opts ...Option) (Property, error) {
		var o options
		for _, opt := range opts {
			opt(&o)
		}
		d := o.delimiter
		if d == "" {
			d = ListDelimiter()
		}
		lc := NewListCodec(c, WithDelimiter(d))
		v, err := lc.Decode(raw)
		if err != nil {
			return nil, err
		}
		p, err := New(uid, Codec[[]T](lc), v, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	Register(t, scalar)
	types.mu.Lock()
	types.list[t] = list
	types.mu.Unlock()
}

// Create builds a property of type t from its encoded value. The factory is
// resolved once, here; "list:<elem>" resolves the element codec.
func Create(uid string, t Type, raw string, opts ...Option) (Property, error) {
	if t == "" {
		t = TypeString
	}

	types.mu.RLock()
	var f Factory
	if elem, isList := ElementType(t); isList {
		f = types.list[elem]
	} else {
		f = types.scalar[t]
	}
	types.mu.RUnlock()

	if f == nil {
		return nil, errors.Join(ErrUnknownType, fmt.Errorf("type %q", t))
	}
	return f(uid, raw, opts...)
}

// Types lists the registered scalar types in sorted order.
func Types() []Type {
	types.mu.RLock()
	defer types.mu.RUnlock()

	out := make([]Type, 0, len(types.scalar))
	for t := range types.scalar {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
