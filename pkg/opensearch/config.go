package opensearch

type Config struct {
	Addresses    []string `env:"OPENSEARCH_ADDRESSES,required" envSeparator:","` // Addresses lists the cluster nodes.
	Username     string   `env:"OPENSEARCH_USERNAME"`                             // Username for basic auth, empty to disable it.
	Password     string   `env:"OPENSEARCH_PASSWORD"`                             // Password for basic auth.
	Index        string   `env:"OPENSEARCH_INDEX" envDefault:"feature-events"`    // Index holds the event documents.
	MaxRetries   int      `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`           // MaxRetries is the client level retry budget per request.
	DisableRetry bool     `env:"OPENSEARCH_DISABLE_RETRY" envDefault:"false"`     // DisableRetry turns client retries off.
}
