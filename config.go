// config.go — YAML configuration for the interpreter and its judge.
package semlog

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config drives judge construction and engine defaults. Zero values fall back
// to the documented defaults, so an empty file is a valid configuration.
type Config struct {
	Judge JudgeConfig `yaml:"judge"`
}

// JudgeConfig selects and parameterizes the semantic judge.
type JudgeConfig struct {
	// Kind is "chat" (LLM judge over chat completions) or "embedding"
	// (cosine similarity over an embeddings endpoint). Default "chat".
	Kind      string  `yaml:"kind"`
	Endpoint  string  `yaml:"endpoint"`
	Model     string  `yaml:"model"`
	APIKeyEnv string  `yaml:"api_key_env"`
	Threshold float64 `yaml:"threshold"`
	// TimeoutSeconds bounds each judge call. Default 30.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Judge: JudgeConfig{
			Kind:           "chat",
			Endpoint:       DefaultJudgeEndpoint,
			Threshold:      DefaultThreshold,
			TimeoutSeconds: 30,
		},
	}
}

// LoadConfig reads a YAML config file and fills in defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the interpreter cannot honor.
func (c Config) Validate() error {
	switch c.Judge.Kind {
	case "", "chat", "embedding":
	default:
		return fmt.Errorf("config: unknown judge kind %q", c.Judge.Kind)
	}
	if c.Judge.Threshold < 0 || c.Judge.Threshold > 1 {
		return fmt.Errorf("config: threshold %v outside [0, 1]", c.Judge.Threshold)
	}
	if c.Judge.TimeoutSeconds < 0 {
		return fmt.Errorf("config: negative timeout")
	}
	return nil
}

// BuildJudge constructs the judge the configuration describes.
func (c Config) BuildJudge(log *zap.Logger) Judge {
	apiKey := ""
	if c.Judge.APIKeyEnv != "" {
		apiKey = os.Getenv(c.Judge.APIKeyEnv)
	}
	timeout := 30 * time.Second
	if c.Judge.TimeoutSeconds > 0 {
		timeout = time.Duration(c.Judge.TimeoutSeconds) * time.Second
	}
	client := &http.Client{Timeout: timeout}
	if log == nil {
		log = zap.NewNop()
	}

	if c.Judge.Kind == "embedding" {
		return &EmbeddingJudge{
			Endpoint:   c.Judge.Endpoint,
			Model:      c.Judge.Model,
			APIKey:     apiKey,
			Threshold:  c.Judge.Threshold,
			HTTPClient: client,
			Log:        log,
		}
	}

	j := NewChatJudge(c.Judge.Endpoint, c.Judge.Model, apiKey, log)
	j.HTTPClient = client
	return j
}
