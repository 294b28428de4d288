package config

// Config is the root configuration for echogate.
type Config struct {
	Gateway   GatewayConfig             `yaml:"gateway,omitempty"`
	Providers map[string]ProviderConfig `yaml:"providers,omitempty"`
	Quota     QuotaConfig               `yaml:"quota,omitempty"`
	Logging   LoggingConfig             `yaml:"logging,omitempty"`
}

// GatewayConfig controls the HTTP server.
type GatewayConfig struct {
	Port           int        `yaml:"port,omitempty"`
	Bind           string     `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string     `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string   `yaml:"allowedOrigins,omitempty"`
	TLS            GatewayTLS `yaml:"tls,omitempty"`
}

// GatewayTLS configures TLS for the gateway.
type GatewayTLS struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CertPath string `yaml:"certPath,omitempty"`
	KeyPath  string `yaml:"keyPath,omitempty"`
}

// ProviderConfig holds credentials and defaults for one upstream provider.
// APIKey supports ${ENV_VAR} references; when empty, the provider's
// conventional environment variable is consulted instead.
type ProviderConfig struct {
	APIKey string `yaml:"apiKey,omitempty"`
	Model  string `yaml:"model,omitempty"`
}

// QuotaConfig controls the per-identity prompt cap and its backing store.
type QuotaConfig struct {
	Cap   int    `yaml:"cap,omitempty"`
	Store string `yaml:"store,omitempty"` // "sqlite" | "memory"
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}
