package property

import "errors"

var (
	// ErrInvalidArgument indicates a required input (uid, codec, value) is missing.
	ErrInvalidArgument = errors.New("invalid property argument")

	// ErrConstraintViolation indicates a value outside the property's fixed set.
	ErrConstraintViolation = errors.New("property value is not one of the fixed values")

	// ErrParse indicates a string that cannot be decoded to the target type.
	ErrParse = errors.New("failed to parse property value")

	// ErrUnknownType indicates no factory is registered for the requested type.
	ErrUnknownType = errors.New("unknown property type")

	// ErrPropertyNotFound indicates the store holds no property with the requested uid.
	ErrPropertyNotFound = errors.New("property not found")
)
