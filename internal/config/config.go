// Package config loads and validates CLEO's flat recognized-key
// configuration and exposes a thread-safe live accessor for it.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "60s"
// or "2m" instead of a raw integer nanosecond count.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML string values.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// StorageEngine selects the store backend.
type StorageEngine string

const (
	EngineJSON   StorageEngine = "json"
	EngineSQLite StorageEngine = "sqlite"
)

// SessionEnforcement controls how strictly an active session is required.
type SessionEnforcement string

const (
	EnforcementNone   SessionEnforcement = "none"
	EnforcementWarn   SessionEnforcement = "warn"
	EnforcementStrict SessionEnforcement = "strict"
)

// LogLevel is one of the four recognized logging levels.
type LogLevel string

const (
	LogError LogLevel = "error"
	LogWarn  LogLevel = "warn"
	LogInfo  LogLevel = "info"
	LogDebug LogLevel = "debug"
)

// DefaultFormat is the output format used when neither --json nor --human
// is given and the caller isn't a TTY.
type DefaultFormat string

const (
	FormatHuman DefaultFormat = "human"
	FormatJSON  DefaultFormat = "json"
)

// Storage groups the storage.* recognized keys.
type Storage struct {
	Engine StorageEngine `toml:"engine"`
}

// Hierarchy groups the hierarchy.* recognized keys.
type Hierarchy struct {
	MaxSiblings int `toml:"max_siblings"` // 0 = unlimited
	MaxDepth    int `toml:"max_depth"`
}

// Session groups the session.* recognized keys.
type Session struct {
	Enforcement            SessionEnforcement `toml:"enforcement"`
	RequireSession         bool               `toml:"require_session"`
	RequireSessionNote     bool               `toml:"require_session_note"`
	RequireNotesOnComplete bool               `toml:"require_notes_on_complete"`
}

// Cancellation groups the cancellation.* recognized keys.
type Cancellation struct {
	RequireReason bool `toml:"require_reason"`
}

// Archive groups the archive.* recognized keys.
type Archive struct {
	RetentionDays int `toml:"retention_days"`
}

// Logging groups the logging.* recognized keys.
type Logging struct {
	Level LogLevel `toml:"level"`
}

// Format groups the format.* recognized keys.
type Format struct {
	Default DefaultFormat `toml:"default"`
}

// Lock groups the lock retry/backoff tunables used by internal/store.
type Lock struct {
	MaxRetries       int      `toml:"max_retries"`
	InitialDelay     Duration `toml:"initial_delay"`
	BackoffFactor    float64  `toml:"backoff_factor"`
	StalenessTimeout Duration `toml:"staleness_timeout"`
}

// Agent groups the agent.* recognized keys: how orchestrate.spawn launches
// a skill's prompt as a child process.
type Agent struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	WorkDir string   `toml:"work_dir"`
}

// Config is CLEO's flat recognized-key configuration, loaded from a single
// TOML file. Unknown top-level tables are rejected by validate; unknown keys
// inside a recognized table are not checked.
type Config struct {
	Storage      Storage      `toml:"storage"`
	Hierarchy    Hierarchy    `toml:"hierarchy"`
	Session      Session      `toml:"session"`
	Cancellation Cancellation `toml:"cancellation"`
	Archive      Archive      `toml:"archive"`
	Logging      Logging      `toml:"logging"`
	Format       Format       `toml:"format"`
	Lock         Lock         `toml:"lock"`
	Agent        Agent        `toml:"agent"`
}

// Defaults returns the configuration CLEO uses when no file is present.
func Defaults() *Config {
	return &Config{
		Storage:   Storage{Engine: EngineJSON},
		Hierarchy: Hierarchy{MaxSiblings: 0, MaxDepth: 3},
		Session: Session{
			Enforcement:            EnforcementWarn,
			RequireSession:         false,
			RequireSessionNote:     false,
			RequireNotesOnComplete: false,
		},
		Cancellation: Cancellation{RequireReason: false},
		Archive:      Archive{RetentionDays: 90},
		Logging:      Logging{Level: LogInfo},
		Format:       Format{Default: FormatHuman},
		Lock: Lock{
			MaxRetries:       3,
			InitialDelay:     Duration{100 * time.Millisecond},
			BackoffFactor:    2.0,
			StalenessTimeout: Duration{10 * time.Second},
		},
		Agent: Agent{Command: "claude", Args: []string{"-p"}, WorkDir: "."},
	}
}

// Clone returns a deep copy of cfg so callers can safely mutate the result.
func (cfg *Config) Clone() *Config {
	if cfg == nil {
		return nil
	}
	cloned := *cfg
	cloned.Agent.Args = append([]string(nil), cfg.Agent.Args...)
	return &cloned
}

// Load reads and validates a CLEO TOML configuration file. A missing file
// is not an error: Load returns Defaults().
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Defaults()
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := checkUnknownKeys(meta); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validating %s: %w", path, err)
	}
	return cfg, nil
}

// Reload re-reads path. It mirrors Load but is named to reflect runtime
// refresh call sites.
func Reload(path string) (*Config, error) { return Load(path) }

// LoadManager reads config from path and returns an RWMutex-backed
// thread-safe manager.
func LoadManager(path string) (ConfigManager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewRWMutexManager(cfg), nil
}

var recognizedTopLevel = map[string]bool{
	"storage": true, "hierarchy": true, "session": true, "cancellation": true,
	"archive": true, "logging": true, "format": true, "lock": true, "agent": true,
}

func checkUnknownKeys(meta toml.MetaData) error {
	for _, key := range meta.Keys() {
		if len(key) == 0 {
			continue
		}
		if !recognizedTopLevel[key[0]] {
			return fmt.Errorf("config: unknown key %q: %w", key.String(), errUnknownKey)
		}
	}
	return nil
}

var errUnknownKey = fmt.Errorf("VALIDATION_ERROR")

func validate(cfg *Config) error {
	switch cfg.Storage.Engine {
	case EngineJSON, EngineSQLite:
	default:
		return fmt.Errorf("storage.engine must be json or sqlite, got %q", cfg.Storage.Engine)
	}
	if cfg.Hierarchy.MaxSiblings < 0 {
		return fmt.Errorf("hierarchy.max_siblings must be >= 0")
	}
	if cfg.Hierarchy.MaxDepth <= 0 {
		return fmt.Errorf("hierarchy.max_depth must be > 0")
	}
	switch cfg.Session.Enforcement {
	case EnforcementNone, EnforcementWarn, EnforcementStrict:
	default:
		return fmt.Errorf("session.enforcement must be none, warn, or strict, got %q", cfg.Session.Enforcement)
	}
	if cfg.Archive.RetentionDays < 0 {
		return fmt.Errorf("archive.retention_days must be >= 0")
	}
	switch cfg.Logging.Level {
	case LogError, LogWarn, LogInfo, LogDebug:
	default:
		return fmt.Errorf("logging.level must be error, warn, info, or debug, got %q", cfg.Logging.Level)
	}
	switch cfg.Format.Default {
	case FormatHuman, FormatJSON:
	default:
		return fmt.Errorf("format.default must be human or json, got %q", cfg.Format.Default)
	}
	return nil
}

// Set applies a single recognized dotted key to cfg, returning a validated
// clone. Used by admin.config.set.
func Set(cfg *Config, key, value string) (*Config, error) {
	out := cfg.Clone()
	switch key {
	case "storage.engine":
		out.Storage.Engine = StorageEngine(value)
	case "hierarchy.maxSiblings":
		n, err := parseInt(value)
		if err != nil {
			return nil, err
		}
		out.Hierarchy.MaxSiblings = n
	case "hierarchy.maxDepth":
		n, err := parseInt(value)
		if err != nil {
			return nil, err
		}
		out.Hierarchy.MaxDepth = n
	case "session.enforcement":
		out.Session.Enforcement = SessionEnforcement(value)
	case "session.requireSession":
		out.Session.RequireSession = value == "true"
	case "session.requireSessionNote":
		out.Session.RequireSessionNote = value == "true"
	case "session.requireNotesOnComplete":
		out.Session.RequireNotesOnComplete = value == "true"
	case "cancellation.requireReason":
		out.Cancellation.RequireReason = value == "true"
	case "archive.retentionDays":
		n, err := parseInt(value)
		if err != nil {
			return nil, err
		}
		out.Archive.RetentionDays = n
	case "logging.level":
		out.Logging.Level = LogLevel(value)
	case "format.default":
		out.Format.Default = DefaultFormat(value)
	case "agent.command":
		out.Agent.Command = value
	case "agent.workDir":
		out.Agent.WorkDir = value
	default:
		return nil, fmt.Errorf("config: unknown key %q: %w", key, errUnknownKey)
	}
	if err := validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n)
	if err != nil {
		return 0, fmt.Errorf("config: invalid integer %q", s)
	}
	return n, nil
}
