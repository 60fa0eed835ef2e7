package property

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
)

// DefaultListDelimiter separates list elements unless a codec is given another one.
const DefaultListDelimiter = ","

var listDelimiter atomic.Value

func init() {
	listDelimiter.Store(DefaultListDelimiter)
}

// SetListDelimiter changes the delimiter used by list properties created
// through the registry. An empty delimiter restores the default.
func SetListDelimiter(d string) {
	if d == "" {
		d = DefaultListDelimiter
	}
	listDelimiter.Store(d)
}

// ListDelimiter returns the delimiter used by registry-created list properties.
func ListDelimiter() string {
	return listDelimiter.Load().(string)
}

const listTypePrefix = "list:"

// ListType returns the discriminator of a list whose elements are of type elem.
func ListType(elem Type) Type {
	return Type(listTypePrefix + string(elem))
}

// ElementType reports the element type of a list type.
func ElementType(t Type) (Type, bool) {
	elem, ok := strings.CutPrefix(string(t), listTypePrefix)
	if !ok || elem == "" {
		return "", false
	}
	return Type(elem), true
}

// ListCodec encodes a []E as the element encodings joined by a delimiter.
// Elements whose encoding contains the delimiter or leading/trailing spaces
// do not survive a round trip. Neither does a single element that encodes
// to "": it comes back as the empty list.
type ListCodec[E any] struct {
	elem      Codec[E]
	delimiter string
}

// ListOption configures a ListCodec.
type ListOption func(*listOptions)

type listOptions struct {
	delimiter string
}

// WithDelimiter overrides the element delimiter. Empty values are ignored.
func WithDelimiter(d string) ListOption {
	return func(o *listOptions) {
		if d != "" {
			o.delimiter = d
		}
	}
}

// NewListCodec builds a list codec over the element codec.
func NewListCodec[E any](elem Codec[E], opts ...ListOption) ListCodec[E] {
	o := listOptions{delimiter: DefaultListDelimiter}
	for _, opt := range opts {
		opt(&o)
	}
	return ListCodec[E]{elem: elem, delimiter: o.delimiter}
}

// Type returns the list discriminator, e.g. "list:int".
func (c ListCodec[E]) Type() Type {
	return ListType(c.elem.Type())
}

// Delimiter returns the element separator.
func (c ListCodec[E]) Delimiter() string {
	return c.delimiter
}

// Clone copies the slice so lists held by different properties never alias.
func (c ListCodec[E]) Clone(v []E) []E {
	return slices.Clone(v)
}

// Encode joins element encodings. The empty list encodes to "".
func (c ListCodec[E]) Encode(v []E) string {
	if len(v) == 0 {
		return ""
	}
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = c.elem.Encode(e)
	}
	return strings.Join(parts, c.delimiter)
}

// Decode strips one surrounding pair of brackets, splits on the delimiter and
// decodes every trimmed token. Blank input decodes to an empty list.
func (c ListCodec[E]) Decode(s string) ([]E, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return []E{}, nil
	}

	tokens := strings.Split(s, c.delimiter)
	out := make([]E, 0, len(tokens))
	for i, token := range tokens {
		v, err := c.elem.Decode(strings.TrimSpace(token))
		if err != nil {
			return nil, errors.Join(ErrParse, fmt.Errorf("list element %d", i), err)
		}
		out = append(out, v)
	}
	return out, nil
}
