package scidb

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultEndpoint is the shim URL used when none is configured.
const DefaultEndpoint = "http://localhost:8080"

// Config defines the configuration for the session.
type Config struct {
	// Endpoint is the URL of the SciDB shim.
	Endpoint string `json:"endpoint"`
	// User and Password authenticate the session. They are only sent over https.
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout time.Duration `json:"timeout,omitempty"`
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty"`
	// NullableByDefault tells whether the server treats attributes without a
	// NULL or NOT NULL marker as nullable.
	NullableByDefault bool `json:"nullable_by_default,omitempty"`

	// Logger receives debug logs of the HTTP calls. Defaults to the logrus
	// standard logger.
	Logger logrus.FieldLogger `json:"-"`
	// HTTPClient overrides the HTTP client built from this config.
	HTTPClient HTTPClient `json:"-"`
}

// LoadConfigFromEnv reads SCIDB_URL, SCIDB_USER and SCIDB_PASSWORD.
func LoadConfigFromEnv() *Config {
	endpoint := os.Getenv("SCIDB_URL")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Config{
		Endpoint: endpoint,
		User:     os.Getenv("SCIDB_USER"),
		Password: os.Getenv("SCIDB_PASSWORD"),
	}
}
