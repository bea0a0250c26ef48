package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface for the pipeline daemon.
// It is loaded once at startup and passed into constructors; nothing
// reads it ambiently after that.
type Config struct {
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Watchlist  WatchlistConfig `yaml:"watchlist"`
	Detectors  DetectorConfig  `yaml:"detectors"`
	Pipeline   PipelineConfig  `yaml:"pipeline"`
	NATS       NATSConfig      `yaml:"nats"`
	HTTP       HTTPConfig      `yaml:"http"`
	Redis      RedisConfig     `yaml:"redis"`
	TextGen    TextGenConfig   `yaml:"textgen"`
	Audit      AuditConfig     `yaml:"audit"`
}

type ThresholdConfig struct {
	// NotifyConfidence is the minimum aggregate confidence before any
	// action stronger than monitor is allowed.
	NotifyConfidence float64 `yaml:"notify_confidence"`
	// HighSeverity is the severity at or above which human approval
	// becomes mandatory.
	HighSeverity int `yaml:"high_severity"`
}

type WatchlistConfig struct {
	StorePath        string        `yaml:"store_path"`
	FaceCropDir      string        `yaml:"face_crop_dir"`
	MatchThreshold   float64       `yaml:"match_threshold"`
	FaceFloor        float64       `yaml:"face_floor"`
	TopK             int           `yaml:"top_k"`
	CheckInterval    time.Duration `yaml:"check_interval"`
	ReloadInterval   time.Duration `yaml:"reload_interval"`
	WatchStoreChange bool          `yaml:"watch_store_change"`
}

type DetectorConfig struct {
	CheckInterval   time.Duration `yaml:"check_interval"`
	DedupMaxKeys    int           `yaml:"dedup_max_keys"`
	DedupTTLSeconds int           `yaml:"dedup_ttl_seconds"`
}

type PipelineConfig struct {
	// GroupWindow bounds how old an open incident in the same zone may
	// be and still absorb a new event.
	GroupWindow time.Duration `yaml:"group_window"`
	// CooldownWindow suppresses repeat alerts for the same zone.
	CooldownWindow time.Duration `yaml:"cooldown_window"`
}

type NATSConfig struct {
	// URL of an external broker. Empty means run the embedded server.
	URL          string `yaml:"url"`
	EmbeddedPort int    `yaml:"embedded_port"`
	SubjectRoot  string `yaml:"subject_root"`
	PublishRetry int    `yaml:"publish_retry"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type RedisConfig struct {
	// Addr empty disables redis; the cooldown falls back to in-process.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TextGenConfig struct {
	// URL empty disables the external generator entirely.
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type AuditConfig struct {
	LogPath string `yaml:"log_path"`
}

// Default returns the built-in configuration. Values mirror
// config/default.yaml so the daemon runs without any file present.
func Default() Config {
	return Config{
		Thresholds: ThresholdConfig{
			NotifyConfidence: 0.75,
			HighSeverity:     4,
		},
		Watchlist: WatchlistConfig{
			StorePath:        "data/watchlist.jsonl",
			FaceCropDir:      "data/face_crops",
			MatchThreshold:   0.6,
			FaceFloor:        0.5,
			TopK:             3,
			CheckInterval:    5 * time.Second,
			ReloadInterval:   300 * time.Second,
			WatchStoreChange: true,
		},
		Detectors: DetectorConfig{
			CheckInterval:   2 * time.Second,
			DedupMaxKeys:    4096,
			DedupTTLSeconds: 30,
		},
		Pipeline: PipelineConfig{
			GroupWindow:    120 * time.Second,
			CooldownWindow: 60 * time.Second,
		},
		NATS: NATSConfig{
			EmbeddedPort: 4222,
			SubjectRoot:  "detections",
			PublishRetry: 3,
		},
		HTTP: HTTPConfig{
			Addr: ":8090",
		},
		TextGen: TextGenConfig{
			Timeout: 3 * time.Second,
		},
		Audit: AuditConfig{
			LogPath: "data/audit.jsonl",
		},
	}
}

// Load reads the yaml file at path over the defaults, then applies env
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.TextGen.URL = getEnv("TEXTGEN_URL", cfg.TextGen.URL)
	cfg.TextGen.APIKey = getEnv("TEXTGEN_API_KEY", cfg.TextGen.APIKey)
	cfg.Audit.LogPath = getEnv("AUDIT_LOG_PATH", cfg.Audit.LogPath)
	cfg.Watchlist.StorePath = getEnv("WATCHLIST_STORE_PATH", cfg.Watchlist.StorePath)
	cfg.Thresholds.NotifyConfidence = getEnvFloat("NOTIFY_CONFIDENCE", cfg.Thresholds.NotifyConfidence)
	cfg.Thresholds.HighSeverity = getEnvInt("HIGH_SEVERITY", cfg.Thresholds.HighSeverity)
	cfg.Watchlist.MatchThreshold = getEnvFloat("WATCHLIST_MATCH_THRESHOLD", cfg.Watchlist.MatchThreshold)
}

// Validate rejects thresholds that would make the hard rules vacuous.
func (c Config) Validate() error {
	if c.Thresholds.NotifyConfidence <= 0 || c.Thresholds.NotifyConfidence > 1 {
		return fmt.Errorf("notify_confidence must be in (0,1], got %v", c.Thresholds.NotifyConfidence)
	}
	if c.Thresholds.HighSeverity < 1 || c.Thresholds.HighSeverity > 5 {
		return fmt.Errorf("high_severity must be in 1..5, got %d", c.Thresholds.HighSeverity)
	}
	if c.Watchlist.MatchThreshold <= 0 || c.Watchlist.MatchThreshold > 1 {
		return fmt.Errorf("watchlist match_threshold must be in (0,1], got %v", c.Watchlist.MatchThreshold)
	}
	if c.Watchlist.TopK < 1 {
		return fmt.Errorf("watchlist top_k must be >= 1, got %d", c.Watchlist.TopK)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
