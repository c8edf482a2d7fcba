package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	StorePath string          `json:"storePath"`
	Database  DatabaseConfig  `json:"database"`
	Publisher PublisherConfig `json:"publisher"`
	Queue     QueueConfig     `json:"queue"`
	Profiler  ProfilerConfig  `json:"profiler"`
	Registry  RegistryConfig  `json:"registry"`
}

// DatabaseConfig selects the journal backend.
type DatabaseConfig struct {
	Driver string `json:"driver"` // postgres | sqlite
	DSN    string `json:"dsn"`    // postgres connection string
	Path   string `json:"path"`   // sqlite file path
}

// PublisherConfig tunes the pnl snapshot loop.
type PublisherConfig struct {
	IntervalMs     int    `json:"intervalMs"`
	NoiseThreshold string `json:"noiseThreshold"`
}

// QueueConfig sizes the bounded queues.
type QueueConfig struct {
	ConfirmationSize int `json:"confirmationSize"`
	JournalSize      int `json:"journalSize"`
}

// ProfilerConfig captures optional pyroscope settings.
type ProfilerConfig struct {
	Enable          bool   `json:"enable"`
	ServerAddress   string `json:"serverAddress"`
	ApplicationName string `json:"applicationName"`
}

// RegistryConfig defines the reference-data registry.
type RegistryConfig struct {
	Securities     []SecurityConfig      `json:"securities"`
	Users          []UserConfig          `json:"users"`
	BrokerAccounts []BrokerAccountConfig `json:"brokerAccounts"`
	SubAccounts    []SubAccountConfig    `json:"subAccounts"`
}

// SecurityConfig describes one instrument.
type SecurityConfig struct {
	ID         int64  `json:"id"`
	Symbol     string `json:"symbol"`
	Multiplier string `json:"multiplier"`
	Rate       string `json:"rate"`
}

// UserConfig describes one user.
type UserConfig struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BrokerAccountConfig describes one broker account.
type BrokerAccountConfig struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SubAccountConfig describes one sub-account and its owners.
type SubAccountConfig struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	BrokerAccountID int64  `json:"brokerAccountId"`
	UserID          int64  `json:"userId"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	StorePath         string
	Database          DatabaseSpec
	PublishInterval   time.Duration
	NoiseThreshold    decimal.Decimal
	ConfirmationQueue int
	JournalQueue      int
	Profiler          ProfilerConfig
	Directory         *model.Directory
}

// DatabaseSpec is the resolved journal backend selection.
type DatabaseSpec struct {
	Driver string
	DSN    string
	Path   string
}

const (
	_defaultPublishInterval = time.Second
	_defaultNoiseThreshold  = "1"
	_defaultConfirmQueue    = 65536
	_defaultJournalQueue    = 4096
)

// Load reads a JSON config file and resolves every section.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

// Resolve validates a parsed config and builds the directory.
func Resolve(cfg FileConfig) (Loaded, error) {
	if cfg.StorePath == "" {
		return Loaded{}, fmt.Errorf("storePath is empty")
	}
	db, err := resolveDatabase(cfg.Database)
	if err != nil {
		return Loaded{}, err
	}
	interval, threshold, err := resolvePublisher(cfg.Publisher)
	if err != nil {
		return Loaded{}, err
	}
	dir, err := buildDirectory(cfg.Registry)
	if err != nil {
		return Loaded{}, err
	}

	confirmQueue := cfg.Queue.ConfirmationSize
	if confirmQueue <= 0 {
		confirmQueue = _defaultConfirmQueue
	}
	journalQueue := cfg.Queue.JournalSize
	if journalQueue <= 0 {
		journalQueue = _defaultJournalQueue
	}
	if cfg.Profiler.Enable && cfg.Profiler.ServerAddress == "" {
		return Loaded{}, fmt.Errorf("profiler enabled without serverAddress")
	}

	return Loaded{
		StorePath:         cfg.StorePath,
		Database:          db,
		PublishInterval:   interval,
		NoiseThreshold:    threshold,
		ConfirmationQueue: confirmQueue,
		JournalQueue:      journalQueue,
		Profiler:          cfg.Profiler,
		Directory:         dir,
	}, nil
}

func resolveDatabase(cfg DatabaseConfig) (DatabaseSpec, error) {
	switch cfg.Driver {
	case "postgres":
		if cfg.DSN == "" {
			return DatabaseSpec{}, fmt.Errorf("postgres driver requires dsn")
		}
	case "sqlite":
		if cfg.Path == "" {
			return DatabaseSpec{}, fmt.Errorf("sqlite driver requires path")
		}
	case "":
		return DatabaseSpec{}, fmt.Errorf("database driver is empty")
	default:
		return DatabaseSpec{}, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
	return DatabaseSpec{Driver: cfg.Driver, DSN: cfg.DSN, Path: cfg.Path}, nil
}

func resolvePublisher(cfg PublisherConfig) (time.Duration, decimal.Decimal, error) {
	interval := _defaultPublishInterval
	if cfg.IntervalMs < 0 {
		return 0, decimal.Zero, fmt.Errorf("publisher intervalMs must be >= 0")
	}
	if cfg.IntervalMs > 0 {
		interval = time.Duration(cfg.IntervalMs) * time.Millisecond
	}
	raw := cfg.NoiseThreshold
	if raw == "" {
		raw = _defaultNoiseThreshold
	}
	threshold, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("invalid noiseThreshold %q: %w", raw, err)
	}
	if threshold.IsNegative() {
		return 0, decimal.Zero, fmt.Errorf("noiseThreshold must be >= 0")
	}
	return interval, threshold, nil
}

func buildDirectory(cfg RegistryConfig) (*model.Directory, error) {
	dir := model.NewDirectory()
	for _, sec := range cfg.Securities {
		multiplier, err := parsePositive("multiplier", sec.Multiplier, sec.Symbol)
		if err != nil {
			return nil, err
		}
		rate, err := parsePositive("rate", sec.Rate, sec.Symbol)
		if err != nil {
			return nil, err
		}
		if err := dir.AddSecurity(&model.Security{
			ID:         sec.ID,
			Symbol:     sec.Symbol,
			Multiplier: multiplier,
			Rate:       rate,
		}); err != nil {
			return nil, err
		}
	}
	for _, u := range cfg.Users {
		if err := dir.AddUser(&model.User{ID: u.ID, Name: u.Name}); err != nil {
			return nil, err
		}
	}
	for _, b := range cfg.BrokerAccounts {
		if err := dir.AddBrokerAccount(&model.BrokerAccount{ID: b.ID, Name: b.Name}); err != nil {
			return nil, err
		}
	}
	for _, a := range cfg.SubAccounts {
		if err := dir.AddSubAccount(&model.SubAccount{
			ID:              a.ID,
			Name:            a.Name,
			BrokerAccountID: a.BrokerAccountID,
			UserID:          a.UserID,
		}); err != nil {
			return nil, err
		}
	}
	return dir, nil
}

// parsePositive parses a decimal field, defaulting empty to 1.
func parsePositive(field, raw, symbol string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.NewFromInt(1), nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s for %s: %w", field, symbol, err)
	}
	if !value.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s for %s must be > 0", field, symbol)
	}
	return value, nil
}
