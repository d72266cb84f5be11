package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is hygrep's project configuration, loaded from an optional
// .hygrep.yml at the corpus root.
type Config struct {
	// ModelDir is where the embedding model and tokenizer artefacts live.
	ModelDir string `yaml:"model_dir" json:"model_dir"`
	// NumThreads is the embedder's onnxruntime intra-op thread count. 0 means
	// runtime.NumCPU(). It does not bound the scan or embedding-batch
	// worker pools.
	NumThreads int `yaml:"num_threads" json:"num_threads"`
	// MaxCandidates caps how many recall-stage blocks reach the reranker.
	MaxCandidates int `yaml:"max_candidates" json:"max_candidates"`
	// IgnoreFile is the gitignore-style file consulted during the walk,
	// in addition to .gitignore.
	IgnoreFile string `yaml:"ignore_file" json:"ignore_file"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		ModelDir:      defaultModelDir(),
		NumThreads:    0,
		MaxCandidates: 100,
		IgnoreFile:    ".hhgignore",
	}
}

// defaultModelDir returns ~/.cache/hygrep/models, falling back to a temp
// directory if the home directory can't be resolved.
func defaultModelDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "hygrep", "models")
	}
	return filepath.Join(home, ".cache", "hygrep", "models")
}

// Load reads configuration for the corpus rooted at dir, applying
// defaults, then an optional .hygrep.yml, then environment overrides.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile merges .hygrep.yml in dir into cfg, if present.
func (c *Config) loadFromFile(dir string) error {
	path := filepath.Join(dir, ".hygrep.yml")
	if !fileExists(path) {
		path = filepath.Join(dir, ".hygrep.yaml")
		if !fileExists(path) {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero fields from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.ModelDir != "" {
		c.ModelDir = other.ModelDir
	}
	if other.NumThreads != 0 {
		c.NumThreads = other.NumThreads
	}
	if other.MaxCandidates != 0 {
		c.MaxCandidates = other.MaxCandidates
	}
	if other.IgnoreFile != "" {
		c.IgnoreFile = other.IgnoreFile
	}
}

// applyEnvOverrides applies HYGREP_* environment variable overrides,
// which take precedence over .hygrep.yml.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HYGREP_MODEL_DIR"); v != "" {
		c.ModelDir = v
	}
	if v := os.Getenv("HYGREP_NUM_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.NumThreads = n
		}
	}
}

// ResolvedThreads returns NumThreads, substituting runtime.NumCPU() for 0.
func (c *Config) ResolvedThreads() int {
	if c.NumThreads <= 0 {
		return runtime.NumCPU()
	}
	return c.NumThreads
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.NumThreads < 0 {
		return fmt.Errorf("num_threads must be non-negative, got %d", c.NumThreads)
	}
	if c.MaxCandidates < 0 {
		return fmt.Errorf("max_candidates must be non-negative, got %d", c.MaxCandidates)
	}
	if c.IgnoreFile == "" {
		return fmt.Errorf("ignore_file must not be empty")
	}
	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
