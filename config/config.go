package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config represents the structure of the configuration file
type Config struct {
	Version     string           `mapstructure:"version"`
	Theme       string           `mapstructure:"theme"`
	EnableCache bool             `mapstructure:"enable_cache"`
	LogLevel    string           `mapstructure:"log_level"`
	Workspace   *WorkspaceConfig `mapstructure:"workspace"`
	Output      *OutputConfig    `mapstructure:"output"`
}

// WorkspaceConfig describes where exercises live and the curriculum cadence.
type WorkspaceConfig struct {
	Root             string   `mapstructure:"root"`
	Groups           []string `mapstructure:"groups"`
	ExercisesDir     string   `mapstructure:"exercises_dir"`
	Extension        string   `mapstructure:"extension"`
	WeeksPerGroup    int      `mapstructure:"weeks_per_group"`
	SessionsPerWeek  int      `mapstructure:"sessions_per_week"`
	FunctionParser   string   `mapstructure:"function_parser"`
	ScaffoldPrefixes []string `mapstructure:"scaffold_prefixes"`
	EntryPoint       string   `mapstructure:"entry_point"`
	StampRevision    bool     `mapstructure:"stamp_revision"`
}

// OutputConfig controls where and how the manifest is written.
type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:     "1.2.0",
	Theme:       "dracula",
	EnableCache: true,
	LogLevel:    "warn",
	Workspace: &WorkspaceConfig{
		Root:             "workspace",
		Groups:           []string{"quarter1-foundations", "quarter2-data-structures", "quarter3-algorithms", "quarter4-projects"},
		ExercisesDir:     "exercises",
		Extension:        ".py",
		WeeksPerGroup:    13,
		SessionsPerWeek:  4,
		FunctionParser:   "regex",
		ScaffoldPrefixes: []string{"test_", "check_", "run_"},
		EntryPoint:       "main",
		StampRevision:    true,
	},
	Output: &OutputConfig{
		Path:   "src/data/verification.json",
		Format: "",
	},
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs initializes the configuration from file, flags, and environment variables, and returns the final config.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	var config *Config

	setDefaults()

	viper.AutomaticEnv()
	bindEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else if path := findConfigFile(cwd); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Bind CLI flags to override config values
	bindFlags(rootCmd)

	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// findConfigFile returns the first studyverify-config file found in cwd.
func findConfigFile(cwd string) string {
	for _, name := range []string{"studyverify-config.yml", "studyverify-config.yaml", "studyverify-config.json"} {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("version", DefaultConfig.Version)
	viper.SetDefault("theme", DefaultConfig.Theme)
	viper.SetDefault("enable_cache", DefaultConfig.EnableCache)
	viper.SetDefault("log_level", DefaultConfig.LogLevel)
	viper.SetDefault("workspace.root", DefaultConfig.Workspace.Root)
	viper.SetDefault("workspace.groups", DefaultConfig.Workspace.Groups)
	viper.SetDefault("workspace.exercises_dir", DefaultConfig.Workspace.ExercisesDir)
	viper.SetDefault("workspace.extension", DefaultConfig.Workspace.Extension)
	viper.SetDefault("workspace.weeks_per_group", DefaultConfig.Workspace.WeeksPerGroup)
	viper.SetDefault("workspace.sessions_per_week", DefaultConfig.Workspace.SessionsPerWeek)
	viper.SetDefault("workspace.function_parser", DefaultConfig.Workspace.FunctionParser)
	viper.SetDefault("workspace.scaffold_prefixes", DefaultConfig.Workspace.ScaffoldPrefixes)
	viper.SetDefault("workspace.entry_point", DefaultConfig.Workspace.EntryPoint)
	viper.SetDefault("workspace.stamp_revision", DefaultConfig.Workspace.StampRevision)
	viper.SetDefault("output.path", DefaultConfig.Output.Path)
	viper.SetDefault("output.format", DefaultConfig.Output.Format)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv() {
	_ = viper.BindEnv("theme", "THEME")
	_ = viper.BindEnv("enable_cache", "ENABLE_CACHE")
	_ = viper.BindEnv("log_level", "LOG_LEVEL")
	_ = viper.BindEnv("workspace.root", "WORKSPACE_ROOT")
	_ = viper.BindEnv("workspace.function_parser", "FUNCTION_PARSER")
	_ = viper.BindEnv("output.path", "OUTPUT_PATH")
	_ = viper.BindEnv("output.format", "OUTPUT_FORMAT")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(rootCmd *cobra.Command) {
	_ = viper.BindPFlag("theme", rootCmd.PersistentFlags().Lookup("theme"))
	_ = viper.BindPFlag("enable_cache", rootCmd.PersistentFlags().Lookup("enable_cache"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log_level"))
	_ = viper.BindPFlag("workspace.root", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("workspace.function_parser", rootCmd.PersistentFlags().Lookup("function_parser"))
	_ = viper.BindPFlag("output.path", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML).")

	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Highlighting theme used by 'inspect' (e.g., 'dracula', 'monokai', 'github').")
	rootCmd.PersistentFlags().Bool("enable_cache", DefaultConfig.EnableCache, "Remember content hashes between scans to flag changed exercises.")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.LogLevel, "Diagnostic log level: debug, info, warn or error.")
	rootCmd.PersistentFlags().StringP("workspace", "w", DefaultConfig.Workspace.Root, "Root directory of the exercise workspace.")
	rootCmd.PersistentFlags().String("function_parser", DefaultConfig.Workspace.FunctionParser, "Function boundary detection: 'regex' or 'treesitter'.")
	rootCmd.PersistentFlags().StringP("output", "o", DefaultConfig.Output.Path, "Path of the manifest file.")
	rootCmd.PersistentFlags().StringP("format", "f", DefaultConfig.Output.Format, "Manifest format: 'json' or 'yaml' (defaults to the output file extension).")

	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

// Validate rejects settings that would make day numbers or output meaningless.
func (c *Config) Validate() error {
	if c.Workspace == nil || c.Output == nil {
		return fmt.Errorf("configuration is missing the workspace or output section")
	}
	if c.Workspace.WeeksPerGroup <= 0 {
		return fmt.Errorf("workspace.weeks_per_group must be positive, got %d", c.Workspace.WeeksPerGroup)
	}
	if c.Workspace.SessionsPerWeek <= 0 {
		return fmt.Errorf("workspace.sessions_per_week must be positive, got %d", c.Workspace.SessionsPerWeek)
	}
	switch c.Workspace.FunctionParser {
	case "regex", "treesitter":
	default:
		return fmt.Errorf("unknown function parser %q (want 'regex' or 'treesitter')", c.Workspace.FunctionParser)
	}
	if GetConfigFileType(c.Output.Path) == "" && c.Output.Format == "" {
		return fmt.Errorf("output.format is required when output.path has no .json/.yaml extension")
	}
	switch strings.ToLower(c.Output.Format) {
	case "", "json", "yaml":
		c.Output.Format = strings.ToLower(c.Output.Format)
	case "yml":
		c.Output.Format = "yaml"
	default:
		return fmt.Errorf("unknown output format %q (want 'json' or 'yaml')", c.Output.Format)
	}
	if !strings.HasPrefix(c.Workspace.Extension, ".") {
		c.Workspace.Extension = "." + c.Workspace.Extension
	}
	return nil
}

// GetConfigFileType returns the type of a file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}
