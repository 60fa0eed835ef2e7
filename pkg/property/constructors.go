package property

import (
	"log/slog"
	"time"
)

// NewString creates a string property.
func NewString(uid, value string, opts ...Option) (*Typed[string], error) {
	return New(uid, StringCodec{}, value, opts...)
}

// NewBool creates a boolean property.
func NewBool(uid string, value bool, opts ...Option) (*Typed[bool], error) {
	return New(uid, BoolCodec{}, value, opts...)
}

// NewInt creates an int property.
func NewInt(uid string, value int, opts ...Option) (*Typed[int], error) {
	return New(uid, IntCodec{}, value, opts...)
}

// NewLong creates an int64 property.
func NewLong(uid string, value int64, opts ...Option) (*Typed[int64], error) {
	return New(uid, LongCodec{}, value, opts...)
}

// NewFloat creates a float64 property.
func NewFloat(uid string, value float64, opts ...Option) (*Typed[float64], error) {
	return New(uid, FloatCodec{}, value, opts...)
}

// NewDuration creates a time.Duration property.
func NewDuration(uid string, value time.Duration, opts ...Option) (*Typed[time.Duration], error) {
	return New(uid, DurationCodec{}, value, opts...)
}

// NewInstant creates a time.Time property, stored in UTC.
func NewInstant(uid string, value time.Time, opts ...Option) (*Typed[time.Time], error) {
	return New(uid, InstantCodec{}, value.UTC(), opts...)
}

// NewLogLevel creates a slog.Level property.
func NewLogLevel(uid string, value slog.Level, opts ...Option) (*Typed[slog.Level], error) {
	return New(uid, LogLevelCodec{}, value, opts...)
}

// NewList creates a list property over the element codec using the
// registry-wide delimiter (see SetListDelimiter).
func NewList[E any](uid string, elem Codec[E], value []E, opts ...Option) (*Typed[[]E], error) {
	if value == nil {
		value = []E{}
	}
	codec := NewListCodec(elem, WithDelimiter(ListDelimiter()))
	return New(uid, Codec[[]E](codec), codec.Clone(value), opts...)
}
