// Package postgres implements pgmeta's data-access core on top of pgx:
// the connection provider, the catalog reader and the query executor.
//
// Connections are plain *pgx.Conn sessions, never pooled. A Conn serializes
// every caller through a mutex because a pgx connection is not safe for
// concurrent use.
package postgres

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/logger"
)

// Provider opens connections from one Config. Both the long-lived session
// connection and the per-request connections come from here.
type Provider struct {
	cfg *database.Config
	log *logger.Logger
}

// NewProvider returns a Provider for cfg. A nil log discards output.
func NewProvider(cfg *database.Config, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.Nop()
	}
	return &Provider{cfg: cfg, log: log}
}

// Connect opens a new session. Unreachable hosts, rejected credentials and
// missing databases all fail with an errs.ErrKindConnection error whose text
// never contains the password.
func (p *Provider) Connect(ctx context.Context) (*Conn, error) {
	connCfg, err := buildConnConfig(p.cfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid connection settings", redact(err, p.cfg.Password))
	}

	p.log.With().Object("db", p.cfg).Logger().Debug("connecting")

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		e := mapError(redact(err, p.cfg.Password), "failed to connect")
		e.Kind = errs.ErrKindConnection
		return nil, e
	}
	return &Conn{conn: conn}, nil
}

// WithConn opens a short-lived connection, hands it to fn and closes it on
// every exit path. fn's error wins over a close error.
func (p *Provider) WithConn(ctx context.Context, fn func(database.Querier) error) (err error) {
	c, err := p.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// A cancelled ctx would abort the close handshake; use a fresh one.
		if cerr := c.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return c.Do(ctx, fn)
}

// driverConn is the part of *pgx.Conn a Conn drives.
type driverConn interface {
	database.Querier
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	IsClosed() bool
}

// Conn is one exclusively-owned PostgreSQL session.
type Conn struct {
	mu   sync.Mutex
	conn driverConn
}

// Do runs fn with exclusive use of the session. Concurrent callers queue.
// Once the session is closed (explicitly, or by pgx after a cancelled
// statement) Do fails with an errs.ErrKindConnection error.
func (c *Conn) Do(ctx context.Context, fn func(database.Querier) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		return errs.New(errs.ErrKindConnection, "connection is closed")
	}
	if err := ctx.Err(); err != nil {
		return mapError(err, "request cancelled")
	}
	return fn(c.conn)
}

// Ping verifies the session is still usable.
func (c *Conn) Ping(ctx context.Context) error {
	return c.Do(ctx, func(database.Querier) error {
		if err := c.conn.Ping(ctx); err != nil {
			return mapError(err, "ping failed")
		}
		return nil
	})
}

// IsClosed reports whether the session is gone, either closed here or
// dropped by pgx after a cancelled statement.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == nil || c.conn.IsClosed()
}

// Close terminates the session. Closing twice is a no-op.
func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(ctx)
	c.conn = nil
	if err != nil {
		return mapError(err, "close failed")
	}
	return nil
}
