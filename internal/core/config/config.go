package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

type CacheCfg struct {
	Enabled      bool          `yaml:"enabled"`
	LRUSize      int           `yaml:"lru_size"`
	TTL          time.Duration `yaml:"ttl"`
	Compression  string        `yaml:"compression"`
	HotThreshold float64       `yaml:"hot_threshold"`
	HotHalfLife  time.Duration `yaml:"hot_half_life"`
	HotTTL       time.Duration `yaml:"hot_ttl"`
	OpTimeout    time.Duration `yaml:"op_timeout"`
}

type WorkerCfg struct {
	Enabled      bool   `yaml:"enabled"`
	Brokers      string `yaml:"brokers"`
	JobsTopic    string `yaml:"jobs_topic"`
	ResultsTopic string `yaml:"results_topic"`
	GroupID      string `yaml:"group_id"`
}

type Config struct {
	Addr           string        `yaml:"addr"`
	LogLevel       string        `yaml:"log_level"`
	LogConsole     bool          `yaml:"log_console"`
	LogSampleN     int           `yaml:"log_sample_n"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	OpTimeout      time.Duration `yaml:"op_timeout"`
	Parallelism    int           `yaml:"parallelism"`
	MaxCells       int64         `yaml:"max_cells"`
	RedisAddr      string        `yaml:"redis_addr"`
	Cache          CacheCfg      `yaml:"cache"`
	Worker         WorkerCfg     `yaml:"worker"`
}

func Defaults() Config {
	return Config{
		Addr:           ":8090",
		LogLevel:       "info",
		MaxBodyBytes:   64 << 20,
		RateLimitRPS:   0,
		RateLimitBurst: 50,
		OpTimeout:      30 * time.Second,
		Parallelism:    runtime.GOMAXPROCS(0),
		MaxCells:       h3array.DefaultMaxCells,
		Cache: CacheCfg{
			Enabled:      true,
			LRUSize:      512,
			TTL:          10 * time.Minute,
			Compression:  "zstd",
			HotThreshold: 2.0,
			HotHalfLife:  time.Minute,
			HotTTL:       time.Hour,
			OpTimeout:    250 * time.Millisecond,
		},
		Worker: WorkerCfg{
			Brokers:      "localhost:9092",
			JobsTopic:    "h3-jobs",
			ResultsTopic: "h3-results",
			GroupID:      "h3-worker",
		},
	}
}

// FromEnv applies the environment over Defaults.
func FromEnv() Config {
	return fromEnv(Defaults())
}

// Load reads the YAML file named by CONFIG_FILE, if any, and applies the
// environment over it.
func Load() (Config, error) {
	base := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := readFile(path, &base); err != nil {
			return Config{}, err
		}
	}
	return fromEnv(base), nil
}

func readFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func fromEnv(d Config) Config {
	cfg := Config{
		Addr:           getenv("ADDR", d.Addr),
		LogLevel:       getenv("LOG_LEVEL", d.LogLevel),
		LogConsole:     getbool("LOG_CONSOLE", d.LogConsole),
		LogSampleN:     getint("LOG_SAMPLE_N", d.LogSampleN),
		MaxBodyBytes:   getint64("MAX_BODY_BYTES", d.MaxBodyBytes),
		RateLimitRPS:   getfloat("RATE_LIMIT_RPS", d.RateLimitRPS),
		RateLimitBurst: getint("RATE_LIMIT_BURST", d.RateLimitBurst),
		OpTimeout:      getduration("OP_TIMEOUT", d.OpTimeout),
		Parallelism:    getint("PARALLELISM", d.Parallelism),
		MaxCells:       getint64("MAX_CELLS", d.MaxCells),
		RedisAddr:      getenv("REDIS_ADDR", d.RedisAddr),
		Cache: CacheCfg{
			Enabled:      getbool("CACHE_ENABLED", d.Cache.Enabled),
			LRUSize:      getint("CACHE_LRU_SIZE", d.Cache.LRUSize),
			TTL:          getduration("CACHE_TTL", d.Cache.TTL),
			Compression:  strings.ToLower(getenv("CACHE_COMPRESSION", d.Cache.Compression)),
			HotThreshold: getfloat("CACHE_HOT_THRESHOLD", d.Cache.HotThreshold),
			HotHalfLife:  getduration("CACHE_HOT_HALF_LIFE", d.Cache.HotHalfLife),
			HotTTL:       getduration("CACHE_HOT_TTL", d.Cache.HotTTL),
			OpTimeout:    getduration("CACHE_OP_TIMEOUT", d.Cache.OpTimeout),
		},
		Worker: WorkerCfg{
			Enabled:      getbool("WORKER_ENABLED", d.Worker.Enabled),
			Brokers:      getenv("KAFKA_BROKERS", d.Worker.Brokers),
			JobsTopic:    getenv("KAFKA_JOBS_TOPIC", d.Worker.JobsTopic),
			ResultsTopic: getenv("KAFKA_RESULTS_TOPIC", d.Worker.ResultsTopic),
			GroupID:      getenv("KAFKA_GROUP_ID", d.Worker.GroupID),
		},
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	if cfg.MaxCells < 1 {
		cfg.MaxCells = h3array.DefaultMaxCells
	}
	if cfg.Cache.LRUSize < 1 {
		cfg.Cache.LRUSize = 1
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
