package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/danieljhkim/launchcheck/internal/classify"
	"github.com/danieljhkim/launchcheck/internal/fetch"
	"github.com/danieljhkim/launchcheck/internal/install"
)

// Setting keys.
const (
	KeyManifestURL          = "manifest_url"
	KeyFetchTimeout         = "fetch_timeout"
	KeyInstallDir           = "install_dir"
	KeyExecutables          = "executables"
	KeyDataDir              = "data_dir"
	KeyLocale               = "locale"
	KeyPatchExtension       = "patch_extension"
	KeyConfigFiles          = "config_files"
	KeyOptionalDirs         = "optional_dirs"
	KeyIgnoreDirs           = "ignore_dirs"
	KeyWorkers              = "workers"
	KeyLogLevel             = "log_level"
	KeyLogJSON              = "log_json"
	KeyLogToFile            = "log_to_file"
	KeyLauncherVersion      = "launcher_version"
	KeyFingerprintPrefilter = "fingerprint_prefilter"
)

// EnvPrefix is prepended to setting keys for environment overrides.
const EnvPrefix = "LAUNCHCHECK"

// Settings is the resolved configuration.
type Settings struct {
	ManifestURL          string        `mapstructure:"manifest_url"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
	InstallDir           string        `mapstructure:"install_dir"`
	Executables          []string      `mapstructure:"executables"`
	DataDir              string        `mapstructure:"data_dir"`
	Locale               string        `mapstructure:"locale"`
	PatchExtension       string        `mapstructure:"patch_extension"`
	ConfigFiles          []string      `mapstructure:"config_files"`
	OptionalDirs         []string      `mapstructure:"optional_dirs"`
	IgnoreDirs           []string      `mapstructure:"ignore_dirs"`
	Workers              int           `mapstructure:"workers"`
	LogLevel             string        `mapstructure:"log_level"`
	LogJSON              bool          `mapstructure:"log_json"`
	LogToFile            bool          `mapstructure:"log_to_file"`
	LauncherVersion      string        `mapstructure:"launcher_version"`
	FingerprintPrefilter bool          `mapstructure:"fingerprint_prefilter"`
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	rules := classify.DefaultRules()

	v.SetDefault(KeyManifestURL, "")
	v.SetDefault(KeyFetchTimeout, fetch.DefaultTimeout)
	v.SetDefault(KeyInstallDir, "")
	v.SetDefault(KeyExecutables, install.DefaultExecutables())
	v.SetDefault(KeyDataDir, rules.DataDir)
	v.SetDefault(KeyLocale, rules.Locale)
	v.SetDefault(KeyPatchExtension, rules.Extension)
	v.SetDefault(KeyConfigFiles, rules.ConfigFiles)
	v.SetDefault(KeyOptionalDirs, []string{})
	v.SetDefault(KeyIgnoreDirs, classify.DefaultIgnoreDirs())
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogJSON, false)
	v.SetDefault(KeyLogToFile, false)
	v.SetDefault(KeyLauncherVersion, "")
	v.SetDefault(KeyFingerprintPrefilter, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile (if it exists) into v and decodes the result.
// A missing file is not an error.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks settings for values that can never work.
func (s *Settings) Validate() error {
	if s.FetchTimeout < 0 {
		return fmt.Errorf("invalid %s: %s", KeyFetchTimeout, s.FetchTimeout)
	}
	if s.Workers < 0 {
		return fmt.Errorf("invalid %s: %d", KeyWorkers, s.Workers)
	}
	if strings.TrimSpace(s.Locale) == "" {
		return fmt.Errorf("invalid %s: empty", KeyLocale)
	}
	return nil
}

// Rules returns the classification rules described by s.
func (s *Settings) Rules() classify.Rules {
	return classify.Rules{
		DataDir:      s.DataDir,
		Locale:       s.Locale,
		Extension:    strings.TrimPrefix(s.PatchExtension, "."),
		ConfigFiles:  s.ConfigFiles,
		OptionalDirs: s.OptionalDirs,
	}
}

// IgnoreSet returns the generator ignore set described by s.
func (s *Settings) IgnoreSet() *classify.IgnoreSet {
	return classify.NewIgnoreSet(s.IgnoreDirs, classify.DefaultIgnoreFiles())
}
