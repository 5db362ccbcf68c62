package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yungbote/songcatalog-backend/internal/app"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with in-process upload validation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			a, err := bootstrap(ctx, app.ModeServe)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(ctx)
		},
	}
	cmd.Flags().String("http-addr", "", "listen address, e.g. :8080")
	_ = viper.BindPFlag("http_addr", cmd.Flags().Lookup("http-addr"))
	return cmd
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal upload validation worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			a, err := bootstrap(ctx, app.ModeWorker)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.RunWorker(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			a, err := bootstrap(ctx, app.ModeAdmin)
			if err != nil {
				return err
			}
			defer a.Close()
			a.Log.Info("Migration complete")
			return nil
		},
	}
}
