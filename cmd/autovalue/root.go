package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jhump/autovalue/processor"
)

const (
	keyConfig        = "config"
	keyTests         = "tests"
	keyOutputDir     = "output-dir"
	keyWorkers       = "workers"
	keyCacheHashCode = "cache-hash-code"
	keySkipRegistry  = "skip-registry"
	keyWatch         = "watch"
	keyVerbose       = "verbose"
)

func newRootCommand() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "autovalue [flags] [packages]",
		Short: "Generate implementations of value types",
		Long: `autovalue generates implementations of interfaces annotated with
@autovalue.AutoValue: a struct, a constructor, and Equal, Hash, and String
methods derived from the interface's accessor methods.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := readConfig(v); err != nil {
				return err
			}
			logger, err := newLogger(v.GetBool(keyVerbose))
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			if len(args) == 0 {
				args = []string{"."}
			}
			cfg, err := newConfig(v, args, logger)
			if err != nil {
				logger.Error("invalid configuration", zap.Error(err))
				return err
			}
			if v.GetBool(keyWatch) {
				err = watch(cmd.Context(), cfg)
			} else {
				err = run(cmd.Context(), cfg)
			}
			if err != nil && !errors.Is(err, errFailures) {
				logger.Error("autovalue failed", zap.Error(err))
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.String(keyConfig, "", "config file (default is .autovalue.yaml in the current directory)")
	flags.Bool(keyTests, false, "also process value types declared in _test.go files")
	flags.String(keyOutputDir, "", "root directory for generated files, organized by package path (default is each package's directory)")
	flags.Int(keyWorkers, 0, "maximum number of types generated concurrently per package (default is GOMAXPROCS)")
	flags.Bool(keyCacheHashCode, true, "default for AutoValue.CacheHashCode when an annotation does not set it")
	flags.Bool(keySkipRegistry, false, "do not generate "+processor.RegistryFileName+" files")
	flags.BoolP(keyWatch, "w", false, "regenerate whenever a source file changes")
	flags.BoolP(keyVerbose, "v", false, "log progress at debug level")
	_ = v.BindPFlags(flags)

	v.SetEnvPrefix("AUTOVALUE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return cmd
}

func readConfig(v *viper.Viper) error {
	if file := v.GetString(keyConfig); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(".autovalue")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func newConfig(v *viper.Viper, patterns []string, logger *zap.Logger) (*processor.Config, error) {
	cfg := &processor.Config{
		Patterns:     patterns,
		Tests:        v.GetBool(keyTests),
		OutputDir:    v.GetString(keyOutputDir),
		Workers:      v.GetInt(keyWorkers),
		SkipRegistry: v.GetBool(keySkipRegistry),
		Processors:   processor.AllRegisteredProcessors(),
		Logger:       logger,
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("%s must not be negative: %d", keyWorkers, cfg.Workers)
	}
	if v.IsSet(keyCacheHashCode) {
		cache := v.GetBool(keyCacheHashCode)
		cfg.DefaultCacheHashCode = &cache
	}
	if cfg.OutputDir != "" {
		info, err := os.Stat(cfg.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("checking output directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("output directory %s is not a directory", cfg.OutputDir)
		}
	}
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	conf := zap.NewDevelopmentConfig()
	conf.DisableStacktrace = true
	conf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !verbose {
		conf.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := conf.Build()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger.Named("autovalue"), nil
}
