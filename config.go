package featurekit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/featurekit/pkg/config"
)

// Feature store backends.
const (
	FeatureStoreMemory = "memory"
	FeatureStoreRedis  = "redis"
)

// Event store backends.
const (
	EventStoreMemory     = "memory"
	EventStorePostgres   = "postgres"
	EventStoreMongo      = "mongo"
	EventStoreOpenSearch = "opensearch"
	EventStoreSQLite     = "sqlite"
)

// Config selects and tunes the components New wires together. Backend
// connection settings are read from their own env variables (REDIS_*, PG_*,
// MONGODB_*, OPENSEARCH_*, SQLITE_*) only when that backend is selected. Values are
// checked with the validate struct tags.
type Config struct {
	Env     string `env:"FEATUREKIT_ENV" envDefault:"development"` // Env selects the logger preset and is stored in contexts passed to Kit.Context.
	Service string `env:"FEATUREKIT_SERVICE" envDefault:"featurekit"`

	FeaturesFile  string `env:"FEATUREKIT_FEATURES_FILE"`                 // FeaturesFile seeds the feature store from YAML or JSON.
	ListDelimiter string `env:"FEATUREKIT_LIST_DELIMITER" envDefault:","` // ListDelimiter separates list property values.
	AutoCreate    bool   `env:"FEATUREKIT_AUTO_CREATE" envDefault:"false"`

	FeatureStore string `env:"FEATUREKIT_FEATURE_STORE" envDefault:"memory" validate:"omitempty,oneof=memory redis"` // FeatureStore is "memory" or "redis".
	CacheSize    int    `env:"FEATUREKIT_CACHE_SIZE" envDefault:"0" validate:"gte=0"`                               // CacheSize enables an LRU in front of a remote feature store.

	EventStore    string `env:"FEATUREKIT_EVENT_STORE" envDefault:"memory" validate:"omitempty,oneof=memory postgres mongo opensearch sqlite"` // EventStore is "memory", "postgres", "mongo", "opensearch" or "sqlite".
	EventCapacity int    `env:"FEATUREKIT_EVENT_CAPACITY" envDefault:"0" validate:"gte=0"`                                                   // EventCapacity caps the in-memory event store, 0 is unbounded.

	AuditBuffer       int           `env:"FEATUREKIT_AUDIT_BUFFER" envDefault:"0" validate:"gte=0"` // AuditBuffer enables asynchronous event writes when positive.
	AuditBatchSize    int           `env:"FEATUREKIT_AUDIT_BATCH_SIZE" envDefault:"100" validate:"gte=0"`
	AuditBatchTimeout time.Duration `env:"FEATUREKIT_AUDIT_BATCH_TIMEOUT" envDefault:"100ms" validate:"gte=0"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks the backend names and numeric limits.
func (c Config) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Join(ErrInvalidConfig, err)
	}
	errs := []error{ErrInvalidConfig}
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: %q fails %s", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag()))
	}
	return errors.Join(errs...)
}
