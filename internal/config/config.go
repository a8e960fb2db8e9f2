package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Strategy identifiers in generation order.
const (
	StrategyPCFG             = "PCFG"
	StrategyPCFGLowercase    = "PCFG.lowercase"
	StrategyPCFGMaxent       = "PCFG.maxent"
	StrategyNNDep            = "NNDEP"
	StrategyPCFGMaxentTagged = "PCFG.maxent.posTags"
	StrategyNNDepTagged      = "NNDEP.posTags"
)

// AllStrategies lists every strategy in generation order.
var AllStrategies = []string{
	StrategyPCFG,
	StrategyPCFGLowercase,
	StrategyPCFGMaxent,
	StrategyNNDep,
	StrategyPCFGMaxentTagged,
	StrategyNNDepTagged,
}

// Tag policies for the response tag set.
const (
	TagPolicyCanonical = "canonical"
	TagPolicyFirst     = "first"
)

// Config holds all configuration for the parse service. It is read once
// at startup.
type Config struct {
	// Server
	Port           string `yaml:"port"`
	GRPCHealthPort string `yaml:"grpc_health_port"`
	Environment    string `yaml:"environment"`

	// Models
	ModelServiceURL  string `yaml:"model_service_url"`
	ParserModel      string `yaml:"parser_model"`
	TaggerModel      string `yaml:"tagger_model"`
	DepParseModel    string `yaml:"depparse_model"`
	DisableDepParse  bool   `yaml:"disable_depparse"`
	ModelMaxInflight int64  `yaml:"model_max_inflight"`

	// Strategy arbitration
	CanonicalTreeStrategy       string        `yaml:"canonical_tree_strategy"`
	CanonicalDependencyStrategy string        `yaml:"canonical_dependency_strategy"`
	TagPolicy                   string        `yaml:"tag_policy"`
	Strategies                  []string      `yaml:"strategies"`
	StrategyTimeout             time.Duration `yaml:"strategy_timeout"`

	// Optional backing services; empty disables them
	RedisURL     string        `yaml:"redis_url"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	DatabaseURL  string        `yaml:"database_url"`
	NATSURL      string        `yaml:"nats_url"`
	OTLPEndpoint string        `yaml:"otlp_endpoint"`

	// Security
	JWTSecret string `yaml:"jwt_secret"`
}

// Load reads configuration from an optional YAML file named by
// STANFORD_CONFIG, then environment variables, which win.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("STANFORD_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("STANFORD_PORT", getEnv("PORT", cfg.Port))
	cfg.GRPCHealthPort = getEnv("GRPC_HEALTH_PORT", cfg.GRPCHealthPort)
	cfg.Environment = getEnv("GO_ENV", cfg.Environment)
	cfg.ModelServiceURL = getEnv("MODEL_SERVICE_URL", cfg.ModelServiceURL)
	cfg.ParserModel = getEnv("PARSER_MODEL", cfg.ParserModel)
	cfg.TaggerModel = getEnv("TAGGER_MODEL", cfg.TaggerModel)
	cfg.DepParseModel = getEnv("DEPPARSE_MODEL", cfg.DepParseModel)
	cfg.CanonicalTreeStrategy = getEnv("CANONICAL_TREE_STRATEGY", cfg.CanonicalTreeStrategy)
	cfg.CanonicalDependencyStrategy = getEnv("CANONICAL_DEPENDENCY_STRATEGY", cfg.CanonicalDependencyStrategy)
	cfg.TagPolicy = getEnv("TAG_POLICY", cfg.TagPolicy)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)

	var err error
	if cfg.DisableDepParse, err = getEnvBool("DISABLE_DEPPARSE", cfg.DisableDepParse); err != nil {
		return nil, err
	}
	if cfg.StrategyTimeout, err = getEnvDuration("STRATEGY_TIMEOUT", cfg.StrategyTimeout); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", cfg.CacheTTL); err != nil {
		return nil, err
	}
	if v := os.Getenv("MODEL_MAX_INFLIGHT"); v != "" {
		if cfg.ModelMaxInflight, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("MODEL_MAX_INFLIGHT: %w", err)
		}
	}
	if v := os.Getenv("STRATEGIES"); v != "" {
		cfg.Strategies = splitList(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:                        "8080",
		Environment:                 "development",
		ModelServiceURL:             "http://localhost:9000",
		ParserModel:                 "edu/stanford/nlp/models/lexparser/englishPCFG.ser.gz",
		TaggerModel:                 "edu/stanford/nlp/models/pos-tagger/english-left3words/english-left3words-distsim.tagger",
		DepParseModel:               "edu/stanford/nlp/models/parser/nndep/english_UD.gz",
		CanonicalTreeStrategy:       StrategyPCFG,
		CanonicalDependencyStrategy: StrategyPCFG,
		TagPolicy:                   TagPolicyCanonical,
		Strategies:                  append([]string(nil), AllStrategies...),
		StrategyTimeout:             10 * time.Second,
		CacheTTL:                    time.Hour,
	}
}

// Validate rejects unknown strategy ids and tag policies.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must be set")
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy must be enabled")
	}
	for _, s := range c.Strategies {
		if !IsStrategy(s) {
			return fmt.Errorf("unknown strategy %q", s)
		}
	}
	if !IsStrategy(c.CanonicalTreeStrategy) {
		return fmt.Errorf("unknown canonical tree strategy %q", c.CanonicalTreeStrategy)
	}
	if !IsStrategy(c.CanonicalDependencyStrategy) {
		return fmt.Errorf("unknown canonical dependency strategy %q", c.CanonicalDependencyStrategy)
	}
	switch c.TagPolicy {
	case TagPolicyCanonical, TagPolicyFirst:
	default:
		return fmt.Errorf("unknown tag policy %q", c.TagPolicy)
	}
	if c.StrategyTimeout <= 0 {
		return fmt.Errorf("strategy timeout must be positive")
	}
	if c.ModelMaxInflight < 0 {
		return fmt.Errorf("model max inflight must not be negative")
	}
	return nil
}

// IsStrategy reports whether id names a known strategy.
func IsStrategy(id string) bool {
	for _, s := range AllStrategies {
		if s == id {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
