package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yungbote/songcatalog-backend/internal/app"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

var cfgFile string

// NewRootCmd builds the songcatalog command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "songcatalog",
		Short:         "Genomic analysis submission catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file; keys are environment variable names")
	root.PersistentFlags().String("log-mode", "", "development or production")
	_ = viper.BindPFlag("log_mode", root.PersistentFlags().Lookup("log-mode"))

	root.AddCommand(newServeCmd(), newWorkerCmd(), newMigrateCmd(), newRegisterTypeCmd())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig layers the config file and SONGCATALOG_* variables under the
// plain environment: every resolved key not already set in the environment
// is exported, so app.LoadConfig sees a single source.
func initConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("SONGCATALOG")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	for _, key := range viper.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set && !flagChanged(cmd, key) {
			continue
		}
		val := viper.GetString(key)
		if val == "" {
			continue
		}
		if err := os.Setenv(name, val); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
	}
	return nil
}

// flagChanged reports whether key came from an explicit command line flag,
// which wins over the environment.
func flagChanged(cmd *cobra.Command, key string) bool {
	f := cmd.Flags().Lookup(strings.ReplaceAll(key, "_", "-"))
	return f != nil && f.Changed
}

// bootstrap builds the logger and app for a subcommand.
func bootstrap(ctx context.Context, mode app.Mode) (*app.App, error) {
	cfg := app.LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := app.New(ctx, log, cfg, mode)
	if err != nil {
		log.Error("Startup failed", "error", err)
		log.Sync()
		return nil, err
	}
	return a, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
