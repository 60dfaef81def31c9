// Package smtpd runs a local SMTP drop box. Every accepted message is
// imported into the local mailbox so it can be uploaded later.
package smtpd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

const (
	defaultDomain = "paperless-upload"
	importTimeout = 30 * time.Second
)

// Importer stores a raw RFC 822 message and returns its id.
type Importer interface {
	ImportMessage(ctx context.Context, raw []byte) (string, error)
}

// Config holds the listener settings. An empty Username disables
// authentication.
type Config struct {
	Addr     string
	Username string
	Password string
}

// Server is the SMTP drop box.
type Server struct {
	smtp   *smtp.Server
	logger *slog.Logger
}

// New creates a Server that imports into importer.
func New(importer Importer, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	be := &backend{
		importer: importer,
		logger:   logger,
		username: cfg.Username,
		password: cfg.Password,
	}
	server := smtp.NewServer(be)
	server.Addr = cfg.Addr
	server.Domain = defaultDomain
	server.AllowInsecureAuth = true
	server.ReadTimeout = 15 * time.Second
	server.WriteTimeout = 15 * time.Second
	server.MaxRecipients = 100
	server.MaxMessageBytes = 25 << 20

	return &Server{smtp: server, logger: logger}
}

// ListenAndServe listens on the configured address.
func (s *Server) ListenAndServe() error {
	s.logger.Info("smtp drop box listening", "addr", s.smtp.Addr)
	return s.smtp.ListenAndServe()
}

// Serve accepts connections on l.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("smtp drop box listening", "addr", l.Addr().String())
	return s.smtp.Serve(l)
}

// Shutdown stops accepting connections and waits for open sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.smtp.Shutdown(ctx)
}

// Close stops the server immediately.
func (s *Server) Close() error {
	return s.smtp.Close()
}

type backend struct {
	importer Importer
	logger   *slog.Logger
	username string
	password string
}

func (b *backend) authRequired() bool { return b.username != "" }

func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{backend: b}, nil
}

type session struct {
	backend       *backend
	from          string
	to            []string
	authenticated bool
}

func (s *session) AuthMechanisms() []string {
	if s.backend.authRequired() {
		return []string{sasl.Plain}
	}
	return nil
}

func (s *session) Auth(mech string) (sasl.Server, error) {
	if !s.backend.authRequired() {
		return nil, errors.New("authentication not enabled")
	}
	if mech != sasl.Plain {
		return nil, errors.New("unsupported authentication mechanism")
	}
	return sasl.NewPlainServer(func(_, username, password string) error {
		if username == s.backend.username && password == s.backend.password {
			s.authenticated = true
			return nil
		}
		return errors.New("invalid credentials")
	}), nil
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	if s.backend.authRequired() && !s.authenticated {
		return smtp.ErrAuthRequired
	}
	s.from = normalizeEmail(from)
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	if s.backend.authRequired() && !s.authenticated {
		return smtp.ErrAuthRequired
	}
	s.to = append(s.to, normalizeEmail(to))
	return nil
}

func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &smtp.SMTPError{Code: 554, EnhancedCode: smtp.EnhancedCode{5, 6, 0}, Message: "Empty message"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
	defer cancel()

	id, err := s.backend.importer.ImportMessage(ctx, raw)
	if err != nil {
		s.backend.logger.Error("importing smtp message", "from", s.from, "error", err)
		return &smtp.SMTPError{Code: 451, EnhancedCode: smtp.EnhancedCode{4, 3, 0}, Message: "Message could not be stored"}
	}
	s.backend.logger.Info("message received",
		"message_id", id,
		"from", s.from,
		"recipients", len(s.to),
		"size", len(raw),
	)
	return nil
}

func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

func (s *session) Logout() error {
	return nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
