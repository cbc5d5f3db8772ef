// Package config loads the self-update engine's layered configuration:
// built-in defaults, then a JSON file whose path the caller supplies,
// then environment variables, per spec.md §4.11. No default config-file
// location is searched: with an empty path only defaults and environment
// variables apply.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the fixed prefix for environment variable overrides
// (spec.md §6.4).
const EnvPrefix = "UPDATE"

// Config is the engine's update configuration (spec.md's
// UpdateConfiguration).
type Config struct {
	Enabled            bool   `mapstructure:"enabled" validate:"-"`
	CheckIntervalHours int    `mapstructure:"check_interval_hours" validate:"gt=0"`
	Interactive        bool   `mapstructure:"interactive" validate:"-"`
	RepoOwner          string `mapstructure:"repo_owner" validate:"required"`
	RepoName           string `mapstructure:"repo_name" validate:"required"`
	TempDir            string `mapstructure:"temp_dir" validate:"required,dircreatable"`
	BackupDir          string `mapstructure:"backup_dir" validate:"required,dircreatable"`
}

// Default returns the built-in default configuration; Load falls back to
// these values field by field.
func Default() Config {
	return Config{
		Enabled:            true,
		CheckIntervalHours: 24,
		Interactive:         true,
		RepoOwner:           "shelfterm",
		RepoName:            "shelfterm",
		TempDir:             defaultTempDir(),
		BackupDir:           defaultBackupDir(),
	}
}

func defaultTempDir() string {
	return os.TempDir() + "/shelfterm-update"
}

func defaultBackupDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return os.TempDir() + "/shelfterm/backups"
	}
	return dir + "/shelfterm/backups"
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("dircreatable", validateDirCreatable)
	return v
}

// validateDirCreatable reports whether the directory exists or can be
// created (spec.md §4.11: "directory paths must be creatable").
func validateDirCreatable(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return false
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return false
	}
	return true
}

// Load builds the effective configuration from defaults, an optional
// JSON file at filePath (skipped if empty or missing), and
// UPDATE_-prefixed environment variables. Any single field that fails
// validation is individually reset to its default value and a warning
// is logged; the engine never refuses to run over one bad key
// (spec.md §4.11).
func Load(filePath string, logger *slog.Logger) Config {
	if logger == nil {
		logger = slog.Default()
	}
	def := Default()

	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v, def)

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.MergeInConfig(); err != nil {
			if !os.IsNotExist(err) {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					logger.Warn("failed to read update config file, using defaults and environment", "path", filePath, "error", err)
				}
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Bind each key to its spec.md §6.4 environment variable name
	// explicitly: several of them (interactive, repo_owner, repo_name,
	// temp_dir, backup_dir) don't match the key-name-derived default that
	// SetEnvPrefix/AutomaticEnv alone would produce.
	for key, envVar := range map[string]string{
		"enabled":              "UPDATE_ENABLED",
		"check_interval_hours": "UPDATE_CHECK_INTERVAL_HOURS",
		"interactive":          "UPDATE_INTERACTIVE_MODE",
		"repo_owner":           "UPDATE_GITHUB_REPO_OWNER",
		"repo_name":            "UPDATE_GITHUB_REPO_NAME",
		"temp_dir":             "UPDATE_TEMP_DIRECTORY",
		"backup_dir":           "UPDATE_BACKUP_DIRECTORY",
	} {
		_ = v.BindEnv(key, envVar)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Warn("failed to parse update configuration, using defaults", "error", err)
		return def
	}

	return sanitize(cfg, def, logger)
}

func setDefaults(v *viper.Viper, def Config) {
	v.SetDefault("enabled", def.Enabled)
	v.SetDefault("check_interval_hours", def.CheckIntervalHours)
	v.SetDefault("interactive", def.Interactive)
	v.SetDefault("repo_owner", def.RepoOwner)
	v.SetDefault("repo_name", def.RepoName)
	v.SetDefault("temp_dir", def.TempDir)
	v.SetDefault("backup_dir", def.BackupDir)
}

// sanitize runs struct-tag validation and, field by field, replaces any
// invalid value with its default rather than failing the whole config.
func sanitize(cfg, def Config, logger *slog.Logger) Config {
	v := newValidator()
	err := v.Struct(cfg)
	if err == nil {
		return cfg
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		logger.Warn("update configuration validation failed, using defaults", "error", err)
		return def
	}

	for _, fe := range verrs {
		logger.Warn("invalid update configuration value, using default", "field", fe.Field(), "tag", fe.Tag())
		switch fe.Field() {
		case "CheckIntervalHours":
			cfg.CheckIntervalHours = def.CheckIntervalHours
		case "RepoOwner":
			cfg.RepoOwner = def.RepoOwner
		case "RepoName":
			cfg.RepoName = def.RepoName
		case "TempDir":
			cfg.TempDir = def.TempDir
		case "BackupDir":
			cfg.BackupDir = def.BackupDir
		}
	}

	// The sanitized value is not validated again: a default that would
	// itself trip a validator (e.g. an unwritable temp dir default) is
	// returned as-is, with the warnings already logged.
	return cfg
}
