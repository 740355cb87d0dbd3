package cli

import (
	"context"
	"courseconnect_backend/internal/app"
	"courseconnect_backend/internal/config"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewServeCmd starts the HTTP server.
func NewServeCmd(configDir *string) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configDir)
			if err != nil {
				return err
			}
			// release 模式默认不迁移，--migrate 强制执行
			cfg.ForceMigrate = migrate

			application, err := app.NewApp(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return application.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run database migrations on startup, even in release mode")
	return cmd
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
