// Package cmd holds the clickback subcommands.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ghettovoice/clickback/callback"
	"github.com/ghettovoice/clickback/internal/config"
	"github.com/ghettovoice/clickback/internal/log"
	"github.com/ghettovoice/clickback/internal/server"
)

func NewServeCommand(conf *config.Config) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start HTTP server that creates and dispatches callback commands",
		Example: "clickback serve --address=:8080 --callback-lifetime=1h --callback-uses=3",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := conf.Validate(); err != nil {
				return err
			}

			logger := newLogger(conf)
			log.SetDefault(logger)

			return serve(cmd.Context(), conf, logger)
		},
	}

	if err := conf.BindFlags(cmd.Flags(), config.ServeOptions); err != nil {
		return nil, err
	}

	return cmd, nil
}

func newLogger(conf *config.Config) *slog.Logger {
	opts := &log.Options{Dev: conf.LogDev()}
	if conf.LogDebug() {
		opts.Level = slog.LevelDebug
	}
	return log.New(os.Stderr, opts)
}

func serve(ctx context.Context, conf *config.Config, logger *slog.Logger) (err error) {
	reg := callback.NewRegistry[string](&callback.Options{
		SweepInterval: conf.CallbackSweepInterval(),
		Logger:        logger,
	})
	defer func() {
		if cerr := reg.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close registry: %w", cerr)
		}
	}()

	uses := conf.CallbackUses()
	srv := server.New(
		callback.NewProvider(reg, callback.CommandCodec{Prefix: conf.CallbackCommandPrefix()}),
		&server.Options{
			Lifetime: conf.CallbackLifetime(),
			Uses:     &uses,
			Logger:   logger,
		},
	)

	return srv.Run(ctx, conf.ServerAddress())
}
