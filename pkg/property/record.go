package property

import (
	"errors"
	"slices"
)

// Record is the serialisable form of a property.
type Record struct {
	UID         string   `json:"uid" yaml:"uid"`
	Type        Type     `json:"type,omitempty" yaml:"type,omitempty"`
	Value       string   `json:"value" yaml:"value"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	FixedValues []string `json:"fixedValues,omitempty" yaml:"fixedValues,omitempty"`
	// Delimiter separates list elements in Value. Empty means the process
	// wide ListDelimiter.
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
}

// ToRecord captures p in its serialisable form.
func ToRecord(p Property) Record {
	r := Record{
		UID:         p.UID(),
		Type:        p.Type(),
		Value:       p.Encode(),
		Description: p.Description(),
		FixedValues: slices.Clone(p.FixedValues()),
	}
	if d, ok := p.(interface{ Delimiter() string }); ok {
		r.Delimiter = d.Delimiter()
	}
	return r
}

// FromRecord rebuilds a property through the registry. A missing type means string.
func FromRecord(r Record) (Property, error) {
	if r.UID == "" {
		return nil, errors.Join(ErrInvalidArgument, errors.New("property record has no uid"))
	}
	opts := []Option{WithDescription(r.Description)}
	if r.FixedValues != nil {
		opts = append(opts, WithFixedValues(r.FixedValues...))
	}
	if r.Delimiter != "" {
		opts = append(opts, WithListDelimiter(r.Delimiter))
	}
	return Create(r.UID, r.Type, r.Value, opts...)
}

// ToRecords captures every property in order.
func ToRecords(props []Property) []Record {
	if len(props) == 0 {
		return nil
	}
	out := make([]Record, len(props))
	for i, p := range props {
		out[i] = ToRecord(p)
	}
	return out
}

// FromRecords rebuilds properties in order, stopping at the first failure.
func FromRecords(records []Record) ([]Property, error) {
	out := make([]Property, 0, len(records))
	for _, r := range records {
		p, err := FromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
