// Package cli implements the reckless-spender command line.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/reckless-spender/internal/config"
	"github.com/dvloznov/reckless-spender/internal/infra"
	"github.com/dvloznov/reckless-spender/internal/logger"
	"github.com/dvloznov/reckless-spender/internal/store"
)

// app holds what every subcommand needs once the root command has run.
type app struct {
	configPath string
	cfg        *config.Config
	log        zerolog.Logger
	store      store.Store
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "reckless-spender",
		Short: "Import OFX statements and review transactions",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(
		newImportCommand(a),
		newAccountsCommand(a),
		newTransactionsCommand(a),
		newCategoriesCommand(a),
	)

	return rootCmd
}

func (a *app) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.New(cfg.Log.Level, cfg.Log.Format)

	st, err := infra.OpenStore(logger.WithContext(ctx, a.log), cfg.Store)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}
	a.store = st
	return nil
}

// withStore wraps a RunE so the store is closed even when the command fails.
func (a *app) withStore(run func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer func() {
			if a.store != nil {
				a.store.Close()
			}
		}()
		return run(cmd, args)
	}
}
