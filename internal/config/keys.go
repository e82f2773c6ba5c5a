package config

import (
	"os"
	"strings"
)

// SecretSource represents where a secret comes from.
type SecretSource string

const (
	SourceEnv    SecretSource = "env"
	SourceConfig SecretSource = "config"
	SourceNone   SecretSource = "none"
)

// SecretStatus represents the status of a credential.
type SecretStatus struct {
	Name   string       `json:"name"   yaml:"name"`
	Source SecretSource `json:"source" yaml:"source"`
	IsSet  bool         `json:"is_set" yaml:"is_set"`
	Masked string       `json:"masked,omitempty" yaml:"masked,omitempty"` // e.g., "****oken"
}

// secret describes one credential. field is nil when the value only lives in
// the environment and never reaches the config file.
type secret struct {
	name  string
	env   string
	field func(*Config) *string
}

var secrets = []secret{
	{"NATS token", "INSIDERS_QUEUE_TOKEN", func(c *Config) *string { return &c.Queue.Token }},
	{"GCP credentials file", "GOOGLE_APPLICATION_CREDENTIALS", nil},
}

func (s secret) value(cfg *Config) string {
	if s.field == nil {
		return os.Getenv(s.env)
	}
	return *s.field(cfg)
}

func (s secret) status(cfg *Config) SecretStatus {
	v := s.value(cfg)
	st := SecretStatus{Name: s.name, Source: SourceNone, IsSet: v != ""}
	if !st.IsSet {
		return st
	}
	st.Source = SourceConfig
	if os.Getenv(s.env) != "" {
		st.Source = SourceEnv
	}
	st.Masked = redact(v)
	return st
}

// CheckSecrets returns the status of the credentials the adapters use.
func CheckSecrets(cfg *Config) []SecretStatus {
	out := make([]SecretStatus, len(secrets))
	for i, s := range secrets {
		out[i] = s.status(cfg)
	}
	return out
}

// redactSecrets replaces every credential held in cfg with its redacted form.
func redactSecrets(cfg *Config) {
	for _, s := range secrets {
		if s.field == nil {
			continue
		}
		if p := s.field(cfg); *p != "" {
			*p = redact(*p)
		}
	}
}

// redact keeps the last four characters of values long enough that doing
// so reveals little.
func redact(v string) string {
	const shown = 4
	if len(v) < 3*shown {
		return strings.Repeat("*", shown)
	}
	return strings.Repeat("*", shown) + v[len(v)-shown:]
}
