// Package config provides application configuration management with support for a rules file, environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	domainerrors "github.com/listenupapp/dropsort/internal/errors"
	"github.com/listenupapp/dropsort/internal/relocator"
	"github.com/listenupapp/dropsort/internal/validation"
	"github.com/listenupapp/dropsort/internal/watcher"
)

// envPrefix namespaces every environment variable read by dropsort.
const envPrefix = "DROPSORT_"

// Config holds the application configuration.
type Config struct {
	App      AppConfig      `json:"app"`
	Logger   LoggerConfig   `json:"logger"`
	Watch    WatchConfig    `json:"watch"`
	Relocate RelocateConfig `json:"relocate"`
	Lock     LockConfig     `json:"lock"`

	// RulesPath is the rules file the configuration was read from.
	RulesPath string `json:"-"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `json:"env" validate:"oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `json:"log_level" validate:"oneof=debug info warn warning error"`
	Format string `json:"log_format" validate:"omitempty,oneof=json pretty text"`
}

// WatchConfig describes the watched directory.
type WatchConfig struct {
	Root    string              `json:"downloads_dir" validate:"required"`
	Backend watcher.BackendKind `json:"backend" validate:"oneof=auto fsnotify inotify"`

	// InProgressSuffixes is nil when not configured, which selects the
	// watcher defaults. An empty list disables the filter.
	InProgressSuffixes []string `json:"in_progress_suffixes" validate:"dive,required"`

	// IgnorePatterns and IgnoreHidden are extra exclusions. Neither applies
	// unless configured.
	IgnorePatterns []string `json:"ignore_patterns" validate:"dive,required"`
	IgnoreHidden   bool     `json:"ignore_hidden"`
}

// RelocateConfig holds the classification rules and relocation policy.
type RelocateConfig struct {
	FilePaths     map[string]string `json:"file_paths" validate:"required,min=1,dive,keys,ext,endkeys,required"`
	SettleDelay   time.Duration     `json:"settle_delay" validate:"gte=0,lte=1h"`
	MaxConcurrent int               `json:"max_concurrent" validate:"gte=1,lte=64"`
}

// LockConfig controls the single-instance lock.
type LockConfig struct {
	// Dir holds lock files. Empty means the user cache directory.
	Dir      string `json:"lock_dir"`
	Disabled bool   `json:"no_lock"`
}

// Flags carries command-line overrides. Empty strings mean "not set".
type Flags struct {
	ConfigPath    string
	EnvFile       string
	Env           string
	LogLevel      string
	LogFormat     string
	SettleDelay   string
	MaxConcurrent string
	Backend       string
	WatchDir      string
	LockDir       string
	NoLock        bool
}

// RulesFile is the on-disk rules document, in JSON or TOML.
type RulesFile struct {
	DownloadsDir       string            `json:"downloads_dir" toml:"downloads_dir"`
	FilePaths          map[string]string `json:"file_paths" toml:"file_paths"`
	InProgressSuffixes []string          `json:"in_progress_suffixes,omitempty" toml:"in_progress_suffixes,omitempty"`
	IgnorePatterns     []string          `json:"ignore_patterns,omitempty" toml:"ignore_patterns,omitempty"`
	IgnoreHidden       bool              `json:"ignore_hidden,omitempty" toml:"ignore_hidden,omitempty"`
	SettleDelay        string            `json:"settle_delay,omitempty" toml:"settle_delay,omitempty"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables (DROPSORT_*).
// 3. .env file.
// 4. The rules file.
// 5. Default values (lowest priority).
//
// Every failure is a CONFIG or VALIDATION domain error.
func Load(flags Flags) (*Config, error) {
	envFile := getConfigValue(flags.EnvFile, "ENV_FILE", ".env")
	if err := loadEnvFile(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeConfig, "read env file %s", envFile)
	}

	rulesPath, err := findRulesFile(getConfigValue(flags.ConfigPath, "CONFIG", ""))
	if err != nil {
		return nil, err
	}
	rules, err := ReadRulesFile(rulesPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RulesPath: rulesPath,
		App: AppConfig{
			Environment: getConfigValue(flags.Env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  strings.ToLower(getConfigValue(flags.LogLevel, "LOG_LEVEL", "info")),
			Format: strings.ToLower(getConfigValue(flags.LogFormat, "LOG_FORMAT", "")),
		},
		Watch: WatchConfig{
			Root:               getConfigValue(flags.WatchDir, "WATCH_DIR", rules.DownloadsDir),
			Backend:            watcher.BackendKind(getConfigValue(flags.Backend, "BACKEND", string(watcher.BackendAuto))),
			InProgressSuffixes: getListConfigValue("IN_PROGRESS_SUFFIXES", rules.InProgressSuffixes),
			IgnorePatterns:     getListConfigValue("IGNORE_PATTERNS", rules.IgnorePatterns),
			IgnoreHidden:       getBoolConfigValue("", "IGNORE_HIDDEN", rules.IgnoreHidden),
		},
		Relocate: RelocateConfig{
			FilePaths: rules.FilePaths,
		},
		Lock: LockConfig{
			Dir:      getConfigValue(flags.LockDir, "LOCK_DIR", ""),
			Disabled: flags.NoLock || getBoolConfigValue("", "NO_LOCK", false),
		},
	}

	settle := getConfigValue(flags.SettleDelay, "SETTLE_DELAY", rules.SettleDelay)
	cfg.Relocate.SettleDelay, err = parseDuration(settle, relocator.DefaultSettleDelay)
	if err != nil {
		return nil, domainerrors.Configf("invalid settle delay %q: %v", settle, err)
	}

	maxConcurrent := getConfigValue(flags.MaxConcurrent, "MAX_CONCURRENT", "")
	cfg.Relocate.MaxConcurrent, err = parseInt(maxConcurrent, 4)
	if err != nil {
		return nil, domainerrors.Configf("invalid max concurrent %q: %v", maxConcurrent, err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks struct constraints and the cross-field rules: the watch root
// must be an existing directory and no destination may be the watch root.
func (c *Config) Validate() error {
	if err := validation.New().Validate(c); err != nil {
		return err
	}

	info, err := os.Stat(c.Watch.Root)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domainerrors.Configf("downloads_dir %s does not exist", c.Watch.Root)
	case err != nil:
		return domainerrors.Wrapf(err, domainerrors.CodeConfig, "downloads_dir %s", c.Watch.Root)
	case !info.IsDir():
		return domainerrors.Configf("downloads_dir %s is not a directory", c.Watch.Root)
	}

	for _, pattern := range c.Watch.IgnorePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return domainerrors.Configf("ignore_patterns: invalid glob %q", pattern)
		}
	}

	rules, err := c.Rules()
	if err != nil {
		return err
	}
	for _, ext := range rules.Extensions() {
		root, _ := rules.Lookup(ext)
		if root == c.Watch.Root {
			return domainerrors.Configf("file_paths[%s] points at downloads_dir itself", ext)
		}
	}

	return nil
}

// Rules builds the immutable classification table. Relative destinations are
// resolved against the watch root.
func (c *Config) Rules() (relocator.Rules, error) {
	return relocator.NewRules(c.Relocate.FilePaths, c.Watch.Root)
}

// WatcherOptions returns the watcher settings derived from the configuration.
func (c *Config) WatcherOptions() watcher.Options {
	return watcher.Options{
		Backend:            c.Watch.Backend,
		InProgressSuffixes: c.Watch.InProgressSuffixes,
		IgnorePatterns:     c.Watch.IgnorePatterns,
		IgnoreHidden:       c.Watch.IgnoreHidden,
	}
}

// ReadRulesFile decodes a rules file. Files ending in .toml are parsed as
// TOML; everything else as JSON. Unknown keys are rejected in both formats.
func ReadRulesFile(path string) (*RulesFile, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeConfig, "read rules file %s", path)
	}

	var rules RulesFile
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rules); err != nil {
			return nil, domainerrors.Wrapf(err, domainerrors.CodeConfig, "parse rules file %s", path)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&rules); err != nil {
			return nil, domainerrors.Wrapf(err, domainerrors.CodeConfig, "parse rules file %s", path)
		}
		// The document must be the whole file.
		var extra json.RawMessage
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			return nil, domainerrors.Configf("parse rules file %s: unexpected data after the JSON document", path)
		}
	}

	return &rules, nil
}

// SampleRules returns a starter rules document.
func SampleRules() RulesFile {
	return RulesFile{
		DownloadsDir: "~/Downloads",
		FilePaths: map[string]string{
			".pdf":    "~/Documents",
			".docx":   "~/Documents",
			".jpg":    "~/Pictures",
			".png":    "~/Pictures",
			".mp3":    "~/Music",
			".zip":    "~/Archives",
			".tar.gz": "~/Archives",
		},
		InProgressSuffixes: append([]string(nil), watcher.DefaultInProgressSuffixes...),
		SettleDelay:        relocator.DefaultSettleDelay.String(),
	}
}

// CreateSample writes SampleRules to path, as TOML when path ends in .toml
// and as indented JSON otherwise. An existing file is never replaced.
func CreateSample(path string) error {
	rules := SampleRules()

	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		data, err = toml.Marshal(rules)
	} else {
		data, err = json.MarshalIndent(rules, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "encode sample rules")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeIO, "create config directory %s", dir)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return domainerrors.Configf("config file already exists at %s", path)
	}
	if err != nil {
		return domainerrors.Wrapf(err, domainerrors.CodeIO, "create %s", path)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return domainerrors.Wrapf(err, domainerrors.CodeIO, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return domainerrors.Wrapf(err, domainerrors.CodeIO, "write %s", path)
	}
	return nil
}

// DefaultRulesPaths lists where a rules file is looked for when none is given.
func DefaultRulesPaths() []string {
	paths := []string{"config.json", "config.toml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths,
			filepath.Join(dir, "dropsort", "config.json"),
			filepath.Join(dir, "dropsort", "config.toml"),
		)
	}
	return paths
}

func findRulesFile(explicit string) (string, error) {
	if explicit != "" {
		return expandPath(explicit, "")
	}

	candidates := DefaultRulesPaths()
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return expandPath(p, "")
		}
	}
	return "", domainerrors.Configf("no rules file found (looked for %s); pass --config", strings.Join(candidates, ", "))
}

// expandPaths makes the watch root and lock dir absolute. Destination roots
// only get ~ expanded; relative ones stay relative to the watch root.
func (c *Config) expandPaths() error {
	// An empty root is left for Validate to report by field name.
	root, err := expandPath(c.Watch.Root, "")
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeConfig, "invalid downloads_dir")
	}
	c.Watch.Root = root

	if c.Lock.Dir != "" {
		dir, err := expandPath(c.Lock.Dir, "")
		if err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeConfig, "invalid lock dir")
		}
		c.Lock.Dir = dir
	}

	if len(c.Relocate.FilePaths) > 0 {
		paths := make(map[string]string, len(c.Relocate.FilePaths))
		for ext, dest := range c.Relocate.FilePaths {
			expanded, err := expandHome(dest)
			if err != nil {
				return domainerrors.Wrapf(err, domainerrors.CodeConfig, "invalid destination for %s", ext)
			}
			paths[ext] = expanded
		}
		c.Relocate.FilePaths = paths
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	path, err := expandHome(path)
	if err != nil {
		return "", err
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envPrefix + envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getListConfigValue reads a comma-separated env var, falling back to def.
// Setting the variable to "-" yields an explicit empty list.
func getListConfigValue(envKey string, def []string) []string {
	raw := os.Getenv(envPrefix + envKey)
	switch raw {
	case "":
		return def
	case "-":
		return []string{}
	}

	var out []string
	for item := range strings.SplitSeq(raw, ",") {
		if item = strings.TrimSpace(item); item != "" && !slices.Contains(out, item) {
			out = append(out, item)
		}
	}
	return out
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func parseInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
