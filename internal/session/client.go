// Package session is a minimal IMAP client connection that sends encoded
// commands and collects the response lines for the decoders of the response
// package.
package session

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/fho/imapcodec/internal/command"
	"github.com/fho/imapcodec/internal/log"
	"github.com/fho/imapcodec/internal/neterr"
	"github.com/fho/imapcodec/internal/response"
	"github.com/fho/imapcodec/internal/retry"
	"github.com/fho/imapcodec/internal/wire"
)

const (
	dialTimeout = 120 * time.Second

	capStartTLS = "STARTTLS"
)

type Config struct {
	// Address is the address of the IMAP server. If the port is "993" or
	// "imaps" an implicit TLS (SSL) is established.
	// Otherwise a explicit TLS (STARTTLS) connection is established.
	Address string
	// User and Password are used by Connect to authenticate. When User is
	// empty, the connection stays unauthenticated.
	User     string
	Password string
	// AllowInsecure enables falling back to establishing the
	// connection without encryption when the server does not support TLS
	AllowInsecure bool
	// TLSConfig is used for TLS and STARTTLS connections, if nil the
	// server name is derived from Address.
	TLSConfig *tls.Config
	// LogIMAPData enables logging the exchanged protocol data at debug
	// level. Passwords are part of the log.
	LogIMAPData bool
	Logger      *slog.Logger
	// MaxConnectAttempts is the number of connection attempts with the
	// same retryable error, defaults to 3.
	MaxConnectAttempts int
	RetryIntervals     []time.Duration
}

type Client struct {
	cfg    *Config
	logger *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	br     *bufio.Reader
	bw     *bufio.Writer
	caps   *response.Capability
	tagSeq uint32
}

func NewClient(cfg *Config) *Client {
	return &Client{
		cfg:    cfg,
		logger: log.SloggerWithGroup(cfg.Logger, "session"),
	}
}

// Connect establishes a connection with the IMAP server, reads the greeting
// and authenticates if a user is configured. Connection attempts that fail
// with a temporary network error are retried.
func (c *Client) Connect(ctx context.Context) error {
	maxAttempts := c.cfg.MaxConnectAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}

	intervals := c.cfg.RetryIntervals
	if len(intervals) == 0 {
		intervals = []time.Duration{time.Second, 5 * time.Second, 15 * time.Second}
	}

	r := retry.Runner{
		Fn:                  c.connect,
		IsRetryable:         neterr.IsRetryableError,
		MaxRetriesSameError: maxAttempts,
		RetryIntervals:      intervals,
		Logger:              c.logger,
	}

	if err := r.Run(ctx); err != nil {
		return fmt.Errorf("establishing imap server connection failed: %w", err)
	}

	if c.cfg.User == "" {
		c.logger.Info("connection established", "event", "imap.connection_established")
		return nil
	}

	if err := c.Login(ctx, c.cfg.User, c.cfg.Password); err != nil {
		_ = c.Close()
		return fmt.Errorf("login at imap server failed: %w", err)
	}

	c.logger.Info("connection established, authentication succeeded",
		"event", "imap.connection_established")

	return nil
}

func (c *Client) connect(ctx context.Context) error {
	host, port, err := net.SplitHostPort(c.cfg.Address)
	if err != nil {
		return err
	}

	logger := c.logger.With("server", c.cfg.Address).With("timeout", dialTimeout)
	dialer := net.Dialer{Timeout: dialTimeout}

	if port == "993" || port == "imaps" {
		logger.Debug("connecting to imap server", "tlsmode", "implicit")

		tlsDialer := tls.Dialer{NetDialer: &dialer, Config: c.tlsConfig(host)}
		conn, err := tlsDialer.DialContext(ctx, "tcp", c.cfg.Address)
		if err != nil {
			return err
		}

		return c.start(ctx, conn)
	}

	logger.Debug("connecting to imap server", "tlsmode", "explicit")
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
	if err != nil {
		return err
	}

	if err := c.start(ctx, conn); err != nil {
		return err
	}

	err = c.startTLS(ctx, host)
	if errors.Is(err, ErrStartTLSNotSupported) && c.cfg.AllowInsecure {
		logger.Warn("establishing secure connection failed, continuing without encryption", "tlsmode", "none", "error", err)
		return nil
	}
	if err != nil {
		_ = c.Close()
		return err
	}

	return nil
}

func (c *Client) tlsConfig(host string) *tls.Config {
	if c.cfg.TLSConfig != nil {
		return c.cfg.TLSConfig
	}

	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}

// start takes over conn, reads the server greeting and determines the
// capabilities.
func (c *Client) start(ctx context.Context, conn net.Conn) error {
	c.mu.Lock()
	c.setConn(conn)
	c.mu.Unlock()

	greeting, err := c.readGreeting(ctx)
	if err != nil {
		_ = c.Close()
		return err
	}

	if err := c.refreshCapabilities(ctx, []*wire.Response{greeting}); err != nil {
		_ = c.Close()
		return err
	}

	return nil
}

// setConn must be called with c.mu held.
func (c *Client) setConn(conn net.Conn) {
	var r io.Reader = conn
	var w io.Writer = conn

	if c.cfg.LogIMAPData {
		r = io.TeeReader(conn, log.NewDebugWriter(c.logger, "S"))
		w = io.MultiWriter(conn, log.NewDebugWriter(c.logger, "C"))
	}

	c.conn = conn
	c.br = bufio.NewReader(r)
	c.bw = bufio.NewWriter(w)
}

func (c *Client) readGreeting(ctx context.Context) (*wire.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stop := c.watch(ctx)
	defer stop()

	l, err := c.readResponse()
	if err != nil {
		return nil, c.ioError(ctx, "reading greeting failed", err)
	}

	switch {
	case !l.IsUntagged():
		return nil, fmt.Errorf("expected untagged greeting, got: %q", l)
	case l.IsBYE():
		return nil, fmt.Errorf("server rejected connection: %s", l.Text())
	case l.IsOK(), l.Status() == wire.StatusPREAUTH:
		return l, nil
	default:
		return nil, fmt.Errorf("unexpected greeting: %q", l)
	}
}

func (c *Client) startTLS(ctx context.Context, host string) error {
	if !c.Capabilities().Has(capStartTLS) {
		return ErrStartTLSNotSupported
	}

	cmd, err := command.NewGeneric(capStartTLS, nil)
	if err != nil {
		return err
	}

	if _, err := c.Execute(ctx, cmd); err != nil {
		return fmt.Errorf("STARTTLS failed: %w", err)
	}

	c.mu.Lock()
	tlsConn := tls.Client(c.conn, c.tlsConfig(host))
	err = tlsConn.HandshakeContext(ctx)
	if err == nil {
		c.setConn(tlsConn)
	}
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("tls handshake failed: %w", err)
	}

	// capabilities announced before STARTTLS must be discarded
	return c.refreshCapabilities(ctx, nil)
}

// refreshCapabilities takes the capabilities from lines, if none are
// contained a CAPABILITY command is sent.
func (c *Client) refreshCapabilities(ctx context.Context, lines []*wire.Response) error {
	if len(lines) > 0 {
		caps, err := response.DecodeCapability(lines)
		if err != nil {
			return err
		}

		if len(caps.Names()) > 0 {
			c.setCapabilities(caps)
			return nil
		}
	}

	cmd, err := command.NewGeneric("CAPABILITY", nil)
	if err != nil {
		return err
	}

	lines, err = c.Execute(ctx, cmd)
	if err != nil {
		return err
	}

	caps, err := response.DecodeCapability(lines)
	if err != nil {
		return err
	}

	c.setCapabilities(caps)

	return nil
}

func (c *Client) setCapabilities(caps *response.Capability) {
	c.mu.Lock()
	c.caps = caps
	c.mu.Unlock()

	c.logger.Debug("server capabilities", "capabilities", caps.Names())
}

// Capabilities returns the capabilities last announced by the server.
func (c *Client) Capabilities() *response.Capability {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.caps == nil {
		return &response.Capability{}
	}

	return c.caps
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil

	return err
}
