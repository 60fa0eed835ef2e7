package property

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Type identifies the kind of value a property holds.
type Type string

// Scalar property types.
const (
	TypeString   Type = "string"
	TypeBool     Type = "bool"
	TypeInt      Type = "int"
	TypeLong     Type = "long"
	TypeFloat    Type = "float"
	TypeDuration Type = "duration"
	TypeInstant  Type = "instant"
	TypeLogLevel Type = "loglevel"
)

// Codec converts values of type T to and from their canonical string form.
type Codec[T any] interface {
	Type() Type
	Encode(v T) string
	// Decode fails with ErrParse when s is not a valid encoding.
	Decode(s string) (T, error)
}

func parseError(t Type, s string, err error) error {
	return errors.Join(ErrParse, fmt.Errorf("cannot decode %q as %s", s, t), err)
}

// StringCodec is the identity codec.
type StringCodec struct{}

func (StringCodec) Type() Type {
	return TypeString
}

func (StringCodec) Encode(v string) string {
	return v
}

func (StringCodec) Decode(s string) (string, error) {
	return s, nil
}

// BoolCodec encodes booleans as "true" / "false".
type BoolCodec struct{}

func (BoolCodec) Type() Type {
	return TypeBool
}

func (BoolCodec) Encode(v bool) string {
	return strconv.FormatBool(v)
}

func (c BoolCodec) Decode(s string) (bool, error) {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, parseError(c.Type(), s, err)
	}
	return v, nil
}

// IntCodec encodes int values in base 10.
type IntCodec struct{}

func (IntCodec) Type() Type {
	return TypeInt
}

func (IntCodec) Encode(v int) string {
	return strconv.Itoa(v)
}

func (c IntCodec) Decode(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, parseError(c.Type(), s, err)
	}
	return v, nil
}

// LongCodec encodes int64 values in base 10.
type LongCodec struct{}

func (LongCodec) Type() Type {
	return TypeLong
}

func (LongCodec) Encode(v int64) string {
	return strconv.FormatInt(v, 10)
}

func (c LongCodec) Decode(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, parseError(c.Type(), s, err)
	}
	return v, nil
}

// FloatCodec uses the shortest representation that parses back to the same float64.
type FloatCodec struct{}

func (FloatCodec) Type() Type {
	return TypeFloat
}

func (FloatCodec) Encode(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (c FloatCodec) Decode(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, parseError(c.Type(), s, err)
	}
	return v, nil
}

// DurationCodec uses time.Duration's own text format ("1h30m0s").
type DurationCodec struct{}

func (DurationCodec) Type() Type {
	return TypeDuration
}

func (DurationCodec) Encode(v time.Duration) string {
	return v.String()
}

func (c DurationCodec) Decode(s string) (time.Duration, error) {
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, parseError(c.Type(), s, err)
	}
	return v, nil
}

// InstantCodec encodes points in time as RFC 3339 with nanoseconds, in UTC.
type InstantCodec struct{}

func (InstantCodec) Type() Type {
	return TypeInstant
}

func (InstantCodec) Encode(v time.Time) string {
	return v.UTC().Format(time.RFC3339Nano)
}

func (c InstantCodec) Decode(s string) (time.Time, error) {
	v, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, parseError(c.Type(), s, err)
	}
	return v.UTC(), nil
}

// LogLevelCodec encodes slog levels ("INFO", "DEBUG+2").
type LogLevelCodec struct{}

func (LogLevelCodec) Type() Type {
	return TypeLogLevel
}

func (LogLevelCodec) Encode(v slog.Level) string {
	return v.String()
}

func (c LogLevelCodec) Decode(s string) (slog.Level, error) {
	var v slog.Level
	if err := v.UnmarshalText([]byte(s)); err != nil {
		return 0, parseError(c.Type(), s, err)
	}
	return v, nil
}
