// Package constants provides shared constants for the topgirl-optimizer application.
package constants

// Magnitude multipliers for user-typed quantities such as "2.5m".
const (
	Thousand = 1e3
	Million  = 1e6
	Billion  = 1e9
	Trillion = 1e12
)

// Numeric constants
const (
	// DecimalPrecision is the precision for display rounding (2 decimal places)
	DecimalPrecision = 100
)

// Progression constants
const (
	// CoefficientStep is the fixed increment applied to next_coefficient on level up.
	CoefficientStep = 0.1

	// CoefficientTolerance is the tolerance used when comparing coefficients.
	CoefficientTolerance = 1e-9
)

// Optimization defaults, matching the dashboard defaults of the panel.
const (
	// DefaultSessionSeconds is the length of one optimization session (3 hours).
	DefaultSessionSeconds = 10800

	DefaultMoney  = 10000
	DefaultGold   = 2
	DefaultTradeX = 2
	DefaultTradeY = 1
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatYAML is the YAML output format
	OutputFormatYAML = "yaml"

	// OutputFormatXLSX is the spreadsheet output format, written to a file
	OutputFormatXLSX = "xlsx"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultEnvFile is loaded into the environment before the config file
	DefaultEnvFile = ".env"

	// EnvPrefix prefixes environment overrides, e.g. TOPGIRL_SESSION_BACKEND
	EnvPrefix = "TOPGIRL"

	// EnvAPIURL overrides api.baseURL
	EnvAPIURL = "API_URL"

	// EnvLegacyAPIURL is the variable older deployments of the panel used
	EnvLegacyAPIURL = "VITE_API_URL"
)

// Session store constants
const (
	// DefaultSessionKey is the well-known key holding the last optimization request.
	DefaultSessionKey = "lastOptimization"

	// SessionSchemaVersion tags the stored optimization request envelope.
	SessionSchemaVersion = 1

	// SessionBackendFile stores the session in a JSON file.
	SessionBackendFile = "file"

	// SessionBackendRedis stores the session in redis.
	SessionBackendRedis = "redis"

	// SessionBackendMemory keeps the session in process memory only.
	SessionBackendMemory = "memory"

	// DefaultSessionFileName is the file name used under the user config dir.
	DefaultSessionFileName = "session.json"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the panel
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size for the panel API (256 KB)
	DefaultMaxBodySizeBytes int64 = 256 * 1024
)

// Backend client defaults
const (
	// DefaultAPITimeoutSeconds bounds each backend call.
	DefaultAPITimeoutSeconds = 30

	// RequestIDHeader carries the per-call correlation id.
	RequestIDHeader = "X-Request-ID"
)
