package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/miltonyano/gostack-gobarber/internal/mail"
)

func newMailerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mailer",
		Short: "Deliver queued e-mails over SMTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			conn, ch, err := openMailQueue(a.cfg)
			if err != nil {
				a.log.Error("mail queue unavailable", zap.Error(err))
				return err
			}
			defer func() {
				_ = ch.Close()
				if err := conn.Close(); err != nil {
					a.log.Warn("rabbitmq close failed", zap.Error(err))
				}
			}()
			if err := ch.Qos(1, 0, false); err != nil {
				return err
			}

			w := mail.NewWorker(ch, a.cfg.MailQueue, mail.NewSMTPSender(smtpConfig(a.cfg)), a.log)
			return w.Run(ctx)
		},
	}
}
