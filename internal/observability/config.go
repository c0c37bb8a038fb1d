package observability

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/realtyledger/internal/config"
)

// Config holds observability settings. Values come from the application
// config, with LOG_* and OTEL_* environment variables taking precedence.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel              string
	LogFormat             string
	LogSamplingInitial    int
	LogSamplingThereafter int

	// QuietRoutes are logged at debug level. Requests slower than SlowRequest
	// are logged at warn level.
	QuietRoutes []string
	SlowRequest time.Duration

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

var defaultQuietRoutes = []string{"/metrics", "/health"}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "realtyledger"
	}

	endpoint := getenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	protocol := getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))

	return Config{
		ServiceName:           serviceName,
		Environment:           getenv("DEPLOYMENT_ENV", cfg.Environment),
		Version:               getenv("SERVICE_VERSION", cfg.AppVersion),
		LogLevel:              strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:             strings.ToLower(getenv("LOG_FORMAT", "json")),
		LogSamplingInitial:    getenvInt("LOG_SAMPLING_INITIAL", 100),
		LogSamplingThereafter: getenvInt("LOG_SAMPLING_THEREAFTER", 100),
		QuietRoutes:           getenvList("LOG_QUIET_ROUTES", defaultQuietRoutes),
		SlowRequest:           time.Duration(getenvInt("LOG_SLOW_REQUEST_MS", 1000)) * time.Millisecond,
		OtelEnabled:           getenvBool("OTEL_ENABLED", endpoint != ""),
		OtelExporterEndpoint:  endpoint,
		OtelExporterProtocol:  strings.ToLower(protocol),
		OtelSamplingRatio:     getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
	}
}

// Debug reports whether verbose logging and stack traces are wanted.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return strings.TrimSpace(def)
}

func getenvBool(key string, def bool) bool {
	parsed, err := strconv.ParseBool(getenv(key, ""))
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	parsed, err := strconv.Atoi(getenv(key, ""))
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	parsed, err := strconv.ParseFloat(getenv(key, ""), 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvList(key string, def []string) []string {
	value := getenv(key, "")
	if value == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
