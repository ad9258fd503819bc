package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/decode/internal/logging"
	"github.com/ppiankov/decode/internal/model"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=..."
var Version = "0.1.0"

// timeNow is the command clock
var timeNow = time.Now

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode - gematria and date numerology over the news",
	Long: `Decode pulls fresh headlines from news feeds, extracts the people, places
and phrases they mention, and runs them through five gematria ciphers and
date numerology.

Every phrase is compared against a reference database of phrases: equal
cipher values are reported as matches. Headline numbers, master days and
life paths add to a ritual score.

The score describes numeric coincidences. It makes no claim about meaning.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "decode v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.decode/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig layers defaults, the config file and DECODE_* environment variables
func initConfig() {
	if err := readDefaults(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
		return
	}

	viper.SetEnvPrefix("DECODE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("llm.api_key", "DECODE_LLM_API_KEY", "OPENAI_API_KEY")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		path := filepath.Join(home, ".decode", "config.yaml")
		if _, err := os.Stat(path); err != nil {
			return
		}
		viper.SetConfigFile(path)
	}

	if err := viper.MergeInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config %s: %v\n", viper.ConfigFileUsed(), err)
		return
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// readDefaults registers every key of the default config so environment
// variables can override keys the config file does not mention
func readDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return err
	}
	v.SetConfigType("yaml")
	return v.ReadConfig(bytes.NewReader(data))
}

// loadConfig decodes the effective configuration
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// bindFlags binds command flags to config keys. Binding happens at run time
// because several commands expose the same key.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(cfg *model.Config) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if cfg.Output.Verbose {
		level = "debug"
	}
	return logging.New(level, cfg.Logging.Format)
}

// setup binds flags, loads config and builds the logger for a command
func setup(cmd *cobra.Command, keys map[string]string) (*model.Config, *zap.Logger, error) {
	if err := bindFlags(cmd, keys); err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
