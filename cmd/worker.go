/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brikvest/apiserver/config"
	"github.com/brikvest/apiserver/internal/mail"
	"github.com/brikvest/apiserver/internal/mq"
)

// workerCmd runs the notification email consumer on its own, for
// deployments that separate the API from background delivery.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Runs the notification email worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		defer func() {
			_ = logger.Sync()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND must be configured to run the worker")
		}
		defer func() {
			_ = queue.Close()
		}()

		worker := mail.NewWorker(mail.NewMailer(cfg.SMTP), queue, logger)
		logger.Info("email worker started")
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
