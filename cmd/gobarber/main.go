package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/miltonyano/gostack-gobarber/internal/config"
	"github.com/miltonyano/gostack-gobarber/internal/logging"
)

type app struct {
	envFile string
	cfg     config.Config
	log     *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "gobarber",
		Short:         "GoBarber appointment booking backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file applied before reading the environment")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newMigrateCmd(a))
	root.AddCommand(newMailerCmd(a))
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	a.cfg = cfg
	a.log = log.With(zap.String("service", "gobarber"))
	return nil
}
