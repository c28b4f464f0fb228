/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/contactsbook/apiserver/config"
	"github.com/contactsbook/apiserver/internal/mailer"
	"github.com/contactsbook/apiserver/internal/server"
	"github.com/spf13/cobra"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Starts the verification-mail delivery worker",
	Long: `Consumes queued verification mail from the configured broker and
delivers it over SMTP. Requires MAIL_BROKER to be set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		backend, err := server.MailBackend(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if backend == nil {
			return fmt.Errorf("MAIL_BROKER is required to run the worker")
		}
		defer backend.Close()

		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		sender := mailer.NewSMTPSender(cfg.SMTP, cfg.BaseURL, logger)
		worker := mailer.NewWorker(backend, sender, logger)

		if err := worker.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
