// Package constants provides shared constants for the commission calculator.
package constants

// Commission constants
const (
	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// FullAllocationPercent is the total that team split percentages must reach
	FullAllocationPercent = 100.0

	// SplitTolerance is the allowed deviation of a team split total from 100%
	SplitTolerance = 0.01

	// CurrencyDecimalPlaces is the number of decimals shown for money
	CurrencyDecimalPlaces = 2

	// DefaultCurrency is the ISO 4217 code used when no display currency is chosen
	DefaultCurrency = "USD"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatXLSX is the spreadsheet output format
	OutputFormatXLSX = "xlsx"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultEnvFile is loaded into the environment before configuration is read
	DefaultEnvFile = ".env"

	// EnvPrefix is the prefix for environment overrides (COMMISSION_LOGGING_LEVEL, ...)
	EnvPrefix = "COMMISSION"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Logging defaults
const (
	// DefaultLogMaxSizeMB is the size at which a log file is rotated
	DefaultLogMaxSizeMB = 50

	// DefaultLogMaxBackups is the number of rotated log files kept
	DefaultLogMaxBackups = 3
)
