package main

import (
	"os"
	"os/signal"
	"syscall"

	"aura-board/internal/bootstrap"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(newRootCmd().Execute())
}

func newRootCmd() *cobra.Command {
	cfg := &bootstrap.Config{}

	cmd := &cobra.Command{
		Use:   "aura-server",
		Short: "Hosted backend for shared aura boards.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bootstrap.LoadConfig(cmd.Flags(), cfg); err != nil {
				return err
			}

			app, err := bootstrap.NewApp(cfg)
			if err != nil {
				return err
			}
			if err := app.Start(); err != nil {
				app.Shutdown()
				return err
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			logrus.Info("Shutdown signal received...")

			app.Shutdown()
			return nil
		},
	}

	bootstrap.BindFlags(cmd.Flags(), cfg)
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SilenceUsage = true

	return cmd
}
