package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/spf13/cobra"

	"github.com/nhle/paperless-upload/internal/credential"
	"github.com/nhle/paperless-upload/internal/smtpd"
)

const shutdownTimeout = 10 * time.Second

func serveSMTPCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-smtp",
		Short: "Accept mail over SMTP into the local mailbox",
		Long: `Runs a local SMTP drop box. Forward or BCC mail to it and upload the
stored messages later with the upload commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := a.config()
			if err != nil {
				return err
			}
			s, err := a.localStore()
			if err != nil {
				return err
			}

			srvCfg := smtpd.Config{Addr: cfg.SMTP.Addr, Username: cfg.SMTP.Username}
			if addr != "" {
				srvCfg.Addr = addr
			}
			if srvCfg.Username != "" {
				if srvCfg.Password, err = credential.Get(credential.SMTPPasswordKey); err != nil {
					return fmt.Errorf("smtp password: %w (run 'paperless-upload token set --for smtp')", err)
				}
			} else {
				a.logger.Warn("smtp auth disabled; the drop box accepts unauthenticated mail", "addr", srvCfg.Addr)
			}

			srv := smtpd.New(s, srvCfg, a.logger)
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down smtp drop box")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: smtp.addr)")
	return cmd
}
