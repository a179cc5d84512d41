package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Storage   StorageConfig   `yaml:"storage"`
	Economy   EconomyConfig   `yaml:"economy"`
	Stats     StatsConfig     `yaml:"stats"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Spotlight SpotlightConfig `yaml:"spotlight"`
	HTTP      HTTPConfig      `yaml:"http"`
	Events    EventsConfig    `yaml:"events"`
}

// StorageConfig locates the world storage directories on disk.
type StorageConfig struct {
	WorldsDir  string `yaml:"worlds_dir"`  // live world storage directories
	ArchiveDir string `yaml:"archive_dir"` // archived storage is moved here
}

// EconomyConfig holds the point costs charged against player balances.
type EconomyConfig struct {
	CreationCost   int   `yaml:"creation_cost"`
	ExpansionCosts []int `yaml:"expansion_costs"` // cost per border expansion level, level 1 first
}

// CumulativeCost returns the total points a world with the given border
// expansion level represents: base creation cost plus every expansion
// purchased up to that level. Levels beyond the configured table cost nothing.
func (e EconomyConfig) CumulativeCost(expansionLevel int) int {
	total := e.CreationCost
	for lvl := 1; lvl <= expansionLevel && lvl <= len(e.ExpansionCosts); lvl++ {
		total += e.ExpansionCosts[lvl-1]
	}
	return total
}

// StatsConfig holds defaults applied when a player record is first created.
type StatsConfig struct {
	StartPoints int    `yaml:"start_points"`
	StartSlots  int    `yaml:"start_slots"`
	Language    string `yaml:"language"`
}

// SessionsConfig holds TTLs for deadline-bearing interactive flows.
type SessionsConfig struct {
	InviteTTL string `yaml:"invite_ttl"`
	MeetTTL   string `yaml:"meet_ttl"`
}

// LifecycleConfig tunes the archive queue.
type LifecycleConfig struct {
	ArchiveDelay string `yaml:"archive_delay"` // pause between queue items
}

// SpotlightConfig bounds the curated featured-world list.
type SpotlightConfig struct {
	Capacity int `yaml:"capacity"`
}

// HTTPConfig configures the admin API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// EventsConfig configures the lifecycle audit log and the optional NATS publisher.
type EventsConfig struct {
	SQLitePath string     `yaml:"sqlite_path"`
	NATS       NATSConfig `yaml:"nats"`
}

// NATSConfig configures lifecycle event publishing over NATS JetStream.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists; missing files are fine.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Storage.WorldsDir == "" {
		c.Storage.WorldsDir = filepath.Join(c.DataDir, "worlds-storage")
	}
	if c.Storage.ArchiveDir == "" {
		c.Storage.ArchiveDir = filepath.Join(c.DataDir, "archive")
	}
	if c.Economy.CreationCost == 0 {
		c.Economy.CreationCost = 100
	}
	if len(c.Economy.ExpansionCosts) == 0 {
		c.Economy.ExpansionCosts = []int{50, 100, 200, 400}
	}
	if c.Stats.StartPoints == 0 {
		c.Stats.StartPoints = 100
	}
	if c.Stats.StartSlots == 0 {
		c.Stats.StartSlots = 1
	}
	if c.Stats.Language == "" {
		c.Stats.Language = "en"
	}
	if c.Sessions.InviteTTL == "" {
		c.Sessions.InviteTTL = "60s"
	}
	if c.Sessions.MeetTTL == "" {
		c.Sessions.MeetTTL = "30s"
	}
	if c.Lifecycle.ArchiveDelay == "" {
		c.Lifecycle.ArchiveDelay = "1s"
	}
	if c.Spotlight.Capacity == 0 {
		c.Spotlight.Capacity = 10
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8420"
	}
	if c.Events.SQLitePath == "" {
		c.Events.SQLitePath = filepath.Join(c.DataDir, "events.db")
	}
	if c.Events.NATS.Subject == "" {
		c.Events.NATS.Subject = "worldhost.lifecycle"
	}
}

// Validate checks the configuration for values that cannot be defaulted away.
func (c *Config) Validate() error {
	for _, field := range []struct {
		name, value string
	}{
		{"sessions.invite_ttl", c.Sessions.InviteTTL},
		{"sessions.meet_ttl", c.Sessions.MeetTTL},
		{"lifecycle.archive_delay", c.Lifecycle.ArchiveDelay},
	} {
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", field.name, err)
		}
	}
	for i, cost := range c.Economy.ExpansionCosts {
		if cost < 0 {
			return fmt.Errorf("economy.expansion_costs[%d] must not be negative", i)
		}
	}
	if c.Spotlight.Capacity < 0 {
		return fmt.Errorf("spotlight.capacity must not be negative")
	}
	if c.Events.NATS.Enabled && c.Events.NATS.URL == "" {
		return fmt.Errorf("events.nats.url is required when events.nats.enabled is true")
	}
	return nil
}

// InviteTTL returns the parsed invite session TTL.
func (c *Config) InviteTTL() time.Duration {
	d, _ := time.ParseDuration(c.Sessions.InviteTTL)
	return d
}

// MeetTTL returns the parsed meet-request TTL.
func (c *Config) MeetTTL() time.Duration {
	d, _ := time.ParseDuration(c.Sessions.MeetTTL)
	return d
}

// ArchiveDelay returns the parsed pause between archive queue items.
func (c *Config) ArchiveDelay() time.Duration {
	d, _ := time.ParseDuration(c.Lifecycle.ArchiveDelay)
	return d
}

// WorldRecordsDir returns the directory holding per-world record files.
func (c *Config) WorldRecordsDir() string { return filepath.Join(c.DataDir, "worlds") }

// PlayerDataDir returns the directory holding per-player stats files.
func (c *Config) PlayerDataDir() string { return filepath.Join(c.DataDir, "playerdata") }

// PortalsFile returns the aggregate portal record file path.
func (c *Config) PortalsFile() string { return filepath.Join(c.DataDir, "portals.yml") }

// SpotlightFile returns the curated featured-world list file path.
func (c *Config) SpotlightFile() string { return filepath.Join(c.DataDir, "spotlight.yml") }

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := `# worldhost configuration
data_dir: ./data

storage:
  worlds_dir: ./data/worlds-storage
  archive_dir: ./data/archive

economy:
  creation_cost: 100
  expansion_costs: [50, 100, 200, 400]

stats:
  start_points: 100
  start_slots: 1
  language: en

sessions:
  invite_ttl: 60s
  meet_ttl: 30s

lifecycle:
  archive_delay: 1s

spotlight:
  capacity: 10

http:
  addr: ":8420"

events:
  sqlite_path: ./data/events.db
  nats:
    enabled: false
    url: nats://localhost:4222
    subject: worldhost.lifecycle
`
	if err := os.WriteFile(configPath, []byte(example), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
