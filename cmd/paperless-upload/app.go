package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nhle/paperless-upload/internal/credential"
	"github.com/nhle/paperless-upload/internal/dispatch"
	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/paperless"
	"github.com/nhle/paperless-upload/internal/render"
	"github.com/nhle/paperless-upload/internal/source"
	"github.com/nhle/paperless-upload/internal/source/email"
	"github.com/nhle/paperless-upload/internal/store"
	"github.com/nhle/paperless-upload/internal/upload"
)

// app lazily builds the components a command needs.
type app struct {
	flags  *rootFlags
	logger *slog.Logger

	cfg     *model.AppConfig
	mailbox source.Mailbox
	store   *store.SQLiteStore
	tagger  *source.Tagger
}

func defaultConfigPath() string { return model.DefaultConfigPath() }

func (a *app) configPath() string {
	if a.flags.configPath != "" {
		return a.flags.configPath
	}
	return defaultConfigPath()
}

func (a *app) config() (*model.AppConfig, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := model.LoadConfig(a.configPath())
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

// settings re-reads the config file so every upload sees current values.
func (a *app) settings() (*model.Settings, error) {
	cfg, err := model.LoadConfig(a.configPath())
	if err != nil {
		return nil, err
	}
	return cfg.Settings(credential.Lookup(credential.PaperlessTokenKey))
}

func (a *app) client() (*paperless.Client, error) {
	st, err := a.settings()
	if err != nil {
		return nil, err
	}
	return paperless.NewFromSettings(st, a.logger), nil
}

// localStore opens the SQLite mailbox regardless of mailbox.kind.
func (a *app) localStore() (*store.SQLiteStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Mailbox.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating mailbox directory: %w", err)
	}
	s, err := store.NewSQLiteStore(cfg.Mailbox.DBPath)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

func (a *app) openMailbox() (source.Mailbox, error) {
	if a.mailbox != nil {
		return a.mailbox, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}

	switch cfg.Mailbox.Kind {
	case model.MailboxLocal, "":
		s, err := a.localStore()
		if err != nil {
			return nil, err
		}
		a.mailbox = s
	case model.MailboxIMAP:
		imapCfg := cfg.Mailbox.IMAP
		if imapCfg.Host == "" {
			return nil, &model.ConfigurationError{Field: "mailbox.imap.host", Reason: "not set"}
		}
		password, err := credential.Get(credential.IMAPPasswordKey)
		if err != nil {
			return nil, fmt.Errorf("IMAP password: %w (run 'paperless-upload token set --for imap')", err)
		}
		a.mailbox = email.NewMailbox(email.NewIMAPClientFromConfig(imapCfg, password), imapCfg.Folder, a.logger)
	default:
		return nil, &model.ConfigurationError{Field: "mailbox.kind", Reason: fmt.Sprintf("unknown kind %q", cfg.Mailbox.Kind)}
	}
	return a.mailbox, nil
}

// mailTagger negotiates the tagging strategy once per process.
func (a *app) mailTagger(ctx context.Context) (*source.Tagger, error) {
	if a.tagger != nil {
		return a.tagger, nil
	}
	mb, err := a.openMailbox()
	if err != nil {
		return nil, err
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	t := cfg.Workflow.MailTag
	a.tagger = source.Negotiate(ctx, mb, model.MailTag{Key: t.Key, Label: t.Label, Color: t.Color}, a.logger)
	return a.tagger, nil
}

func (a *app) dispatcher(ctx context.Context) (*dispatch.Dispatcher, error) {
	mb, err := a.openMailbox()
	if err != nil {
		return nil, err
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	tagger, err := a.mailTagger(ctx)
	if err != nil {
		return nil, err
	}

	renderer := render.NewFromConfig(mb, cfg.Render, a.logger)
	svc := upload.New(a.settings, mb, renderer,
		upload.WithTagger(tagger),
		upload.WithLogger(a.logger),
	)
	return dispatch.New(svc, a.lookup, dispatch.WithLogger(a.logger)), nil
}

// lookupDispatcher serves read-only commands without opening a mailbox.
func (a *app) lookupDispatcher() *dispatch.Dispatcher {
	return dispatch.New(nil, a.lookup, dispatch.WithLogger(a.logger))
}

func (a *app) lookup() (dispatch.Lookup, error) {
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			a.logger.Warn("closing mailbox", "error", err)
		}
		a.store = nil
	}
}
