// Package config loads, validates, and resolves echogate configuration.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Provider names echogate knows how to dispatch to.
var KnownProviders = []string{"gemini", "mistral", "huggingface"}

// keyEnvVars maps provider names to the environment variable conventionally
// carrying their API key.
var keyEnvVars = map[string]string{
	"gemini":      "GEMINI_API_KEY",
	"mistral":     "MISTRAL_API_KEY",
	"huggingface": "HF_API_KEY",
}

// defaultModels are used when a provider entry omits the model.
var defaultModels = map[string]string{
	"gemini":      "gemini-2.0-flash",
	"mistral":     "mistral-small-latest",
	"huggingface": "distilbert/distilgpt2",
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			Port: 8317,
			Bind: "loopback",
		},
		Quota: QuotaConfig{
			Cap:   5,
			Store: "sqlite",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}

// Provider returns the resolved config for a named provider: the configured
// entry merged with the default model. The boolean is false for unknown
// provider names.
func (c Config) Provider(name string) (ProviderConfig, bool) {
	if _, ok := defaultModels[name]; !ok {
		return ProviderConfig{}, false
	}
	pc := c.Providers[name]
	if pc.Model == "" {
		pc.Model = defaultModels[name]
	}
	return pc, true
}
