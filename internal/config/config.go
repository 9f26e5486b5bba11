// Package config loads CLI settings from a YAML file, a .env file and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendREST  = "rest"
	BackendMinio = "minio"
)

type Config struct {
	LogMode string `yaml:"log_mode"`
	Backend string `yaml:"backend"`
	Profile string `yaml:"profile"`
	Workers int    `yaml:"workers"`
	API     API    `yaml:"api"`
	Minio   Minio  `yaml:"minio"`
}

type API struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type Minio struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	UseSSL        bool   `yaml:"use_ssl"`
	Prefix        string `yaml:"prefix"`
	PublicBaseURL string `yaml:"public_base_url"`
}

func Default() *Config {
	return &Config{
		LogMode: "prod",
		Backend: BackendREST,
		Profile: "product",
		Minio: Minio{
			Bucket: "products",
			Prefix: "products",
		},
	}
}

// Load reads path (optional, "" skips it) over the defaults, then loads
// .env if present and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"GERAR_LOG_MODE":          &c.LogMode,
		"GERAR_BACKEND":           &c.Backend,
		"GERAR_PROFILE":           &c.Profile,
		"GERAR_API_BASE_URL":      &c.API.BaseURL,
		"GERAR_API_TOKEN":         &c.API.Token,
		"GERAR_MINIO_ENDPOINT":    &c.Minio.Endpoint,
		"GERAR_MINIO_ACCESS_KEY":  &c.Minio.AccessKey,
		"GERAR_MINIO_SECRET_KEY":  &c.Minio.SecretKey,
		"GERAR_MINIO_BUCKET":      &c.Minio.Bucket,
		"GERAR_MINIO_PUBLIC_BASE": &c.Minio.PublicBaseURL,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("GERAR_MINIO_USE_SSL"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GERAR_MINIO_USE_SSL: %w", err)
		}
		c.Minio.UseSSL = b
	}
	return nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendREST:
		return checkSet(map[string]string{
			"GERAR_API_BASE_URL": c.API.BaseURL,
			"GERAR_API_TOKEN":    c.API.Token,
		})
	case BackendMinio:
		return checkSet(map[string]string{
			"GERAR_MINIO_ENDPOINT":   c.Minio.Endpoint,
			"GERAR_MINIO_ACCESS_KEY": c.Minio.AccessKey,
			"GERAR_MINIO_SECRET_KEY": c.Minio.SecretKey,
			"GERAR_MINIO_BUCKET":     c.Minio.Bucket,
		})
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendREST, BackendMinio)
	}
}

func checkSet(vars map[string]string) error {
	var missing []string
	for _, name := range sortedKeys(vars) {
		if vars[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing settings: %v", missing)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
