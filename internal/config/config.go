package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Browser struct {
	Path      *string `koanf:"PATH"`
	Headless  *bool   `koanf:"HEADLESS"`
	Proxy     *string `koanf:"PROXY"`
	UserAgent *string `koanf:"USERAGENT"`
	Trace     *bool   `koanf:"TRACE"`
}

type Plugins struct {
	Dir         *string `koanf:"DIR"`
	CFBypass    *bool   `koanf:"CFBYPASS"`
	Fingerprint *bool   `koanf:"FINGERPRINT"`
	UAPatch     *bool   `koanf:"UAPATCH"`
	AutoConsent *bool   `koanf:"AUTOCONSENT"`
}

type Retry struct {
	Attempts *int           `koanf:"ATTEMPTS"`
	Delay    *time.Duration `koanf:"DELAY"`
	Backoff  *float64       `koanf:"BACKOFF"`
	Jitter   *float64       `koanf:"JITTER"`
}

type Config struct {
	koanf   *koanf.Koanf
	Browser Browser `koanf:"BROWSER"`
	Plugins Plugins `koanf:"PLUGINS"`
	Retry   Retry   `koanf:"RETRY"`
}

const (
	delimiter = "_"
	prefix    = "DP" + delimiter

	RetryAttemptsDefault = 3
	RetryDelayDefault    = 2 * time.Second
	RetryBackoffDefault  = 1.0
	RetryJitterDefault   = 0.1
)

// Load builds the config from the yaml file at path and, optionally, DP_
// prefixed environment variables. A missing config file is not an error; the
// defaults apply.
func Load(path string, includeEnv bool) (*Config, error) {
	k := koanf.New(delimiter)
	if _, err := os.Stat(path); err == nil {
		if err = k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config from yaml file: %w", err)
		}
	}
	if includeEnv {
		envProvider := env.ProviderWithValue(prefix, delimiter, environmentVariableModifier)
		if err := k.Load(envProvider, nil); err != nil {
			return nil, fmt.Errorf("error loading config from environment variables: %w", err)
		}
	}
	conf := Config{
		koanf: k,
	}
	if err := k.Unmarshal("", &conf); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	conf.applyDefaults()
	return &conf, nil
}

func NewFromMap(data map[string]interface{}) (*Config, error) {
	k := koanf.New(delimiter)
	cmProvider := confmap.Provider(data, delimiter)
	if err := k.Load(cmProvider, nil); err != nil {
		return nil, err
	}
	conf := Config{
		koanf: k,
	}
	if err := k.Unmarshal("", &conf); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	conf.applyDefaults()
	return &conf, nil
}

func (c *Config) Validate() error {
	if *c.Browser.Proxy != "" {
		proxy, err := url.Parse(*c.Browser.Proxy)
		if err != nil || proxy.Scheme == "" || proxy.Host == "" {
			return fmt.Errorf("field 'BROWSER_PROXY' must be a url with scheme and host, but got %s", *c.Browser.Proxy)
		}
	}
	if *c.Retry.Attempts < 1 {
		return fmt.Errorf("field 'RETRY_ATTEMPTS' must be at least 1, but got %d", *c.Retry.Attempts)
	}
	if *c.Retry.Backoff < 1 {
		return fmt.Errorf("field 'RETRY_BACKOFF' must be at least 1, but got %v", *c.Retry.Backoff)
	}
	if *c.Retry.Jitter < 0 || *c.Retry.Jitter > 1 {
		return fmt.Errorf("field 'RETRY_JITTER' must be between 0 and 1, but got %v", *c.Retry.Jitter)
	}
	pluginsEnabled := *c.Plugins.CFBypass || *c.Plugins.Fingerprint || *c.Plugins.UAPatch
	if pluginsEnabled && *c.Plugins.Dir == "" {
		return fmt.Errorf("field 'PLUGINS_DIR' is required when plugin toggles are enabled")
	}
	return nil
}

func (c *Config) WriteFile(path string) error {
	data, err := c.koanf.Marshal(yaml.Parser())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Flatten exposes the full defaulted schema as a flat key-value map, the shape
// the configure TUI edits.
func (c *Config) Flatten() map[string]interface{} {
	return map[string]interface{}{
		"BROWSER_PATH":        *c.Browser.Path,
		"BROWSER_HEADLESS":    *c.Browser.Headless,
		"BROWSER_PROXY":       *c.Browser.Proxy,
		"BROWSER_USERAGENT":   *c.Browser.UserAgent,
		"BROWSER_TRACE":       *c.Browser.Trace,
		"PLUGINS_DIR":         *c.Plugins.Dir,
		"PLUGINS_CFBYPASS":    *c.Plugins.CFBypass,
		"PLUGINS_FINGERPRINT": *c.Plugins.Fingerprint,
		"PLUGINS_UAPATCH":     *c.Plugins.UAPatch,
		"PLUGINS_AUTOCONSENT": *c.Plugins.AutoConsent,
		"RETRY_ATTEMPTS":      *c.Retry.Attempts,
		"RETRY_DELAY":         c.Retry.Delay.String(),
		"RETRY_BACKOFF":       *c.Retry.Backoff,
		"RETRY_JITTER":        *c.Retry.Jitter,
	}
}

func (c *Config) applyDefaults() {
	if c.Browser.Path == nil {
		c.Browser.Path = pointer("")
	}
	if c.Browser.Headless == nil {
		c.Browser.Headless = pointer(false)
	}
	if c.Browser.Proxy == nil {
		c.Browser.Proxy = pointer("")
	}
	if c.Browser.UserAgent == nil {
		c.Browser.UserAgent = pointer("")
	}
	if c.Browser.Trace == nil {
		c.Browser.Trace = pointer(false)
	}
	if c.Plugins.Dir == nil {
		c.Plugins.Dir = pointer(".")
	}
	if c.Plugins.CFBypass == nil {
		c.Plugins.CFBypass = pointer(true)
	}
	if c.Plugins.Fingerprint == nil {
		c.Plugins.Fingerprint = pointer(true)
	}
	if c.Plugins.UAPatch == nil {
		c.Plugins.UAPatch = pointer(true)
	}
	if c.Plugins.AutoConsent == nil {
		c.Plugins.AutoConsent = pointer(false)
	}
	if c.Retry.Attempts == nil {
		c.Retry.Attempts = pointer(RetryAttemptsDefault)
	}
	if c.Retry.Delay == nil {
		c.Retry.Delay = pointer(RetryDelayDefault)
	}
	if c.Retry.Backoff == nil {
		c.Retry.Backoff = pointer(RetryBackoffDefault)
	}
	if c.Retry.Jitter == nil {
		c.Retry.Jitter = pointer(RetryJitterDefault)
	}
}

func pointer[T any](v T) *T {
	return &v
}

func environmentVariableModifier(key string, value string) (string, any) {
	key = strings.TrimPrefix(key, prefix)
	if value == "" {
		return key, nil
	}
	return key, value
}
