package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Environment string                 `yaml:"environment" default:"development"`
	Log         LogConfig              `yaml:"log"`
	Server      ServerConfig           `yaml:"server"`
	Engine      EngineConfig           `yaml:"engine"`
	Ingest      IngestConfig           `yaml:"ingest"`
	Chains      map[string]ChainConfig `yaml:"chains"`
	Redis       RedisConfig            `yaml:"redis"`
	Kafka       KafkaConfig            `yaml:"kafka"`
	ClickHouse  ClickHouseConfig       `yaml:"clickhouse"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
	Digest struct {
		Enabled   bool          `yaml:"enabled"`
		Topic     string        `yaml:"topic" default:"yieldscope.logs"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		MaxUnique int           `yaml:"max_unique" default:"100"`
	} `yaml:"digest"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"3001" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	CORS            bool          `yaml:"cors" default:"true"`
}

// EngineConfig mirrors the estimator constants. Time constants are seconds.
type EngineConfig struct {
	LevelTimeConstant       float64          `yaml:"level_tau" default:"3600" validate:"gt=0"`
	TrendTimeConstant       float64          `yaml:"trend_tau" default:"1800" validate:"gt=0"`
	NoiseTimeConstant       float64          `yaml:"noise_tau" default:"7200" validate:"gt=0"`
	InstabilityTimeConstant float64          `yaml:"instability_tau" default:"3600" validate:"gt=0"`
	LiquidityTimeConstant   float64          `yaml:"liquidity_tau" default:"43200" validate:"gt=0"`
	LiquidityReference      float64          `yaml:"liquidity_reference" default:"50000000" validate:"gt=0"`
	Weights                 RiskWeightConfig `yaml:"weights"`
	Assessment              AssessmentConfig `yaml:"assessment"`
}

type RiskWeightConfig struct {
	Noise       float64 `yaml:"noise" default:"0.3" validate:"gte=0"`
	Instability float64 `yaml:"instability" default:"0.6" validate:"gte=0"`
	Liquidity   float64 `yaml:"liquidity" default:"1.0" validate:"gte=0"`
}

type AssessmentConfig struct {
	Enabled              bool    `yaml:"enabled"`
	RecoveryTimeConstant float64 `yaml:"recovery_tau" default:"14400" validate:"gt=0"`
	InstabilityDecay     float64 `yaml:"instability_decay" default:"0.7" validate:"gte=0"`
	LiquidityDecay       float64 `yaml:"liquidity_decay" default:"1.0" validate:"gte=0"`
	TimeDecay            float64 `yaml:"time_decay" default:"0.05" validate:"gte=0"`
	GapThreshold         float64 `yaml:"gap_threshold" default:"1800" validate:"gte=0"`
	MinWarmupSamples     int     `yaml:"min_warmup_samples" default:"15" validate:"gte=0"`
	Recovery             string  `yaml:"recovery" default:"saturating" validate:"oneof=saturating linear"`
	StableConfidence     float64 `yaml:"stable_confidence" default:"0.7" validate:"gte=0,lte=1"`
	RiskyConfidence      float64 `yaml:"risky_confidence" default:"0.3" validate:"gte=0,lte=1"`
	MaxLiquidityStress   float64 `yaml:"max_liquidity_stress" default:"0.95" validate:"gt=0"`
	InstabilityThreshold float64 `yaml:"instability_threshold" default:"0.01" validate:"gte=0"`
}

type IngestConfig struct {
	// Source selects where snapshots come from: rpc, kafka or both.
	Source             string        `yaml:"source" default:"rpc" validate:"oneof=rpc kafka both"`
	BlockThrottle      time.Duration `yaml:"block_throttle" default:"5s"`
	StartupRPCDelay    time.Duration `yaml:"startup_rpc_delay" default:"2s"`
	PollInterval       time.Duration `yaml:"poll_interval" default:"4s"`
	RPCTimeout         time.Duration `yaml:"rpc_timeout" default:"10s"`
	BreakerFailures    uint32        `yaml:"breaker_failures" default:"5"`
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout" default:"30s"`
	MetadataTTL        time.Duration `yaml:"metadata_ttl" default:"1h"`
	BufferSize         int           `yaml:"buffer_size" default:"1024" validate:"gte=1"`
	MarketRate         float64       `yaml:"market_rate" validate:"gte=0"`
	RetryMin           time.Duration `yaml:"retry_min" default:"1s"`
	RetryMax           time.Duration `yaml:"retry_max" default:"30s"`
	MaxAttempts        int           `yaml:"max_attempts" default:"5" validate:"gte=1"`
	MaxAbsYield        float64       `yaml:"max_abs_yield" default:"10000" validate:"gt=0"`
}

// ChainConfig enables a chain when RPCURL is set.
type ChainConfig struct {
	RPCURL      string `yaml:"rpc_url"`
	WSURL       string `yaml:"ws_url"`
	PoolAddress string `yaml:"pool_address"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"yieldscope"`
	PoolSize int    `yaml:"pool_size" default:"10"`
}

type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	Producer struct {
		Enabled      bool          `yaml:"enabled"`
		Topic        string        `yaml:"topic" default:"yieldscope.outputs"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchBytes   int64         `yaml:"batch_bytes" default:"1048576" validate:"gte=0"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		Enabled    bool          `yaml:"enabled"`
		Topic      string        `yaml:"topic" default:"yieldscope.snapshots"`
		GroupID    string        `yaml:"group_id" default:"yieldscope"`
		Workers    int           `yaml:"workers" default:"4"`
		BufferSize int           `yaml:"buffer_size" default:"256"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic   string        `yaml:"dlq_topic"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"yieldscope"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	Table            string        `yaml:"table" default:"yield_outputs"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert" default:"true"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

var validate = validator.New()

// Default returns a config populated from struct tags only.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	c.Chains = map[string]ChainConfig{}
	return &c
}

// Load applies defaults, then the YAML file on top. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	c.normalizeChains()
	return c, nil
}

// LoadWithEnv loads the YAML file, applies environment overrides and validates.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Environ()); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) normalizeChains() {
	if c.Chains == nil {
		c.Chains = map[string]ChainConfig{}
		return
	}
	norm := make(map[string]ChainConfig, len(c.Chains))
	for name, cc := range c.Chains {
		norm[strings.ToUpper(name)] = cc
	}
	c.Chains = norm
}

// chainEnvSuffixes maps <CHAIN><suffix> variables to chain fields.
var chainEnvSuffixes = map[string]func(*ChainConfig, string){
	"_RPC_URL":      func(cc *ChainConfig, v string) { cc.RPCURL = v },
	"_WS_URL":       func(cc *ChainConfig, v string) { cc.WSURL = v },
	"_POOL_ADDRESS": func(cc *ChainConfig, v string) { cc.PoolAddress = v },
}

func (c *Config) applyEnv(environ []string) error {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok && v != "" {
			env[k] = v
		}
	}

	if v, ok := env["PORT"]; ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v, ok := env["LOG_LEVEL"]; ok {
		c.Log.Level = strings.ToLower(v)
	}
	for key, dst := range map[string]*time.Duration{
		"BLOCK_THROTTLE_MS":    &c.Ingest.BlockThrottle,
		"STARTUP_RPC_DELAY_MS": &c.Ingest.StartupRPCDelay,
	} {
		if v, ok := env[key]; ok {
			ms, err := strconv.ParseInt(v, 10, 64)
			if err != nil || ms < 0 {
				return fmt.Errorf("%s: invalid milliseconds %q", key, v)
			}
			*dst = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := env["KAFKA_BROKERS"]; ok {
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := env["REDIS_ADDR"]; ok {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v, ok := env["CLICKHOUSE_HOST"]; ok {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v, ok := env["ENABLE_ASSESSMENT"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ENABLE_ASSESSMENT: %w", err)
		}
		c.Engine.Assessment.Enabled = b
	}

	for k, v := range env {
		for suffix, set := range chainEnvSuffixes {
			name, ok := strings.CutSuffix(k, suffix)
			if !ok || name == "" {
				continue
			}
			cc := c.Chains[name]
			set(&cc, v)
			c.Chains[name] = cc
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ActiveChains returns the names of chains with an RPC URL.
func (c *Config) ActiveChains() []string {
	var out []string
	for name, cc := range c.Chains {
		if cc.RPCURL != "" {
			out = append(out, name)
		}
	}
	return out
}

// Validate checks field constraints and cross-section requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"engine.level_tau":           c.Engine.LevelTimeConstant,
		"engine.trend_tau":           c.Engine.TrendTimeConstant,
		"engine.noise_tau":           c.Engine.NoiseTimeConstant,
		"engine.instability_tau":     c.Engine.InstabilityTimeConstant,
		"engine.liquidity_tau":       c.Engine.LiquidityTimeConstant,
		"engine.liquidity_reference": c.Engine.LiquidityReference,
		"engine.weights.noise":       c.Engine.Weights.Noise,
		"engine.weights.instability": c.Engine.Weights.Instability,
		"engine.weights.liquidity":   c.Engine.Weights.Liquidity,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite", name)
		}
	}
	if (c.Kafka.Producer.Enabled || c.Kafka.Consumer.Enabled || c.Log.Digest.Enabled) && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when a kafka component is enabled")
	}
	if c.Ingest.Source != "rpc" && !c.Kafka.Consumer.Enabled {
		return fmt.Errorf("ingest.source %q requires kafka.consumer.enabled", c.Ingest.Source)
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return errors.New("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Ingest.RetryMax < c.Ingest.RetryMin {
		return errors.New("ingest.retry_max must be >= ingest.retry_min")
	}
	return nil
}
