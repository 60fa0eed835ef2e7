package featurekit

import "errors"

var (
	ErrInvalidConfig = errors.New("featurekit: invalid config")
	ErrBackend       = errors.New("featurekit: backend setup failed")
)
