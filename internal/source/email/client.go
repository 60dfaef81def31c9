package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/paperless-upload/internal/model"
	"github.com/nhle/paperless-upload/internal/source"
)

const dialTimeout = 30 * time.Second

// IMAPClient holds the settings for connecting to an IMAP server.
type IMAPClient struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(
	host, port, username, password string, tls bool,
) *IMAPClient {
	return &IMAPClient{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
	}
}

// NewIMAPClientFromConfig builds a client from mailbox settings.
func NewIMAPClientFromConfig(cfg model.IMAPConfig, password string) *IMAPClient {
	return NewIMAPClient(cfg.Host, strconv.Itoa(cfg.Port), cfg.Username, password, cfg.TLS)
}

// Connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. Cancelling ctx aborts the dial, the
// TLS handshake and the login. The caller is responsible for calling
// Logout on the returned client.
func (c *IMAPClient) Connect(ctx context.Context) (*imapclient.Client, error) {
	addr := net.JoinHostPort(c.host, c.port)

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, contextErr(ctx, err))
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	client, err := c.handshake(ctx, conn)
	if err != nil {
		stop()
		_ = conn.Close()
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, contextErr(ctx, err))
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		stop()
		if ctx.Err() != nil {
			_ = client.Close()
			return nil, fmt.Errorf("logging in to IMAP %s: %w", addr, ctx.Err())
		}
		_ = client.Logout().Wait()
		return nil, &source.AuthError{
			Host: c.host,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v",
				c.username, err,
			),
		}
	}

	if !stop() {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, ctx.Err())
	}
	return client, nil
}

// contextErr prefers the context's error once it is done.
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// handshake sets up implicit TLS or STARTTLS on conn.
func (c *IMAPClient) handshake(ctx context.Context, conn net.Conn) (*imapclient.Client, error) {
	if !c.tls {
		return imapclient.NewStartTLS(conn, &imapclient.Options{
			TLSConfig: &tls.Config{ServerName: c.host},
		})
	}
	tlsConn := tls.Client(conn, &tls.Config{ServerName: c.host, NextProtos: []string{"imap"}})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return imapclient.New(tlsConn, nil), nil
}

// session connects, selects folder and runs fn. The connection is closed
// afterwards.
func (c *IMAPClient) session(
	ctx context.Context,
	folder string,
	readOnly bool,
	fn func(client *imapclient.Client, sel *imap.SelectData) error,
) error {
	client, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	sel, err := client.Select(folder, &imap.SelectOptions{ReadOnly: readOnly}).Wait()
	if err != nil {
		return fmt.Errorf("selecting %s: %w", folder, contextErr(ctx, err))
	}

	if err := fn(client, sel); err != nil {
		return contextErr(ctx, err)
	}
	return nil
}
