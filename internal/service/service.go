// Package service wires the data-access core into request handling.
//
// A Service owns one long-lived session used for caller-supplied queries and
// opens a fresh short-lived connection for every catalog request. Results come
// back as typed values or, through the *YAML methods, as rendered summaries.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/database/postgres"
	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/logger"
	"github.com/koustreak/pgmeta/internal/summary"
)

// Session is an exclusively-owned connection. Do serializes access to it.
// IsClosed reports a session that can no longer run statements, including
// one the driver dropped after a statement's context ended.
type Session interface {
	Do(ctx context.Context, fn func(database.Querier) error) error
	Close(ctx context.Context) error
	IsClosed() bool
}

// Dialer opens a new Session.
type Dialer func(ctx context.Context) (Session, error)

// PostgresDialer adapts a postgres.Provider to a Dialer.
func PostgresDialer(p *postgres.Provider) Dialer {
	return func(ctx context.Context) (Session, error) {
		c, err := p.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Options tunes a Service.
type Options struct {
	// QueryTimeout bounds each caller-supplied query (0 = no bound). When it
	// fires the driver drops the session along with the running statement and
	// the next call dials a new one.
	QueryTimeout time.Duration
}

// Service answers schema, table and query requests.
type Service struct {
	dial Dialer
	log  *logger.Logger
	opts Options

	mu      sync.Mutex
	session Session
}

// New returns a Service that opens connections with dial.
func New(dial Dialer, log *logger.Logger, opts Options) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{dial: dial, log: log, opts: opts}
}

// Open establishes the session connection. Opening an already open Service
// is a no-op unless its session was dropped, in which case it is replaced.
func (s *Service) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && !s.session.IsClosed() {
		return nil
	}
	return s.dialSession(ctx)
}

// Close releases the session connection.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()

	if sess == nil {
		return nil
	}
	if err := sess.Close(ctx); err != nil {
		s.log.ErrorWith("failed to close session", err, nil)
		return err
	}
	s.log.Info("session closed")
	return nil
}

// Tables lists the ordinary tables of schema on a short-lived connection.
func (s *Service) Tables(ctx context.Context, schema string) (database.DatabaseSummary, error) {
	if strings.TrimSpace(schema) == "" {
		return database.DatabaseSummary{}, errs.New(errs.ErrKindInvalidInput, "schema is required")
	}

	var out database.DatabaseSummary
	err := s.withConn(ctx, func(q database.Querier) error {
		var err error
		out, err = postgres.ListTables(ctx, q, schema)
		return err
	})
	if err != nil {
		return database.DatabaseSummary{}, err
	}

	s.log.DebugWith("listed tables", map[string]interface{}{"schema": schema, "tables": len(out.Tables)})
	return out, nil
}

// Table describes schema.table on a short-lived connection.
func (s *Service) Table(ctx context.Context, schema, table string) (database.TableDescriptor, error) {
	if strings.TrimSpace(schema) == "" || strings.TrimSpace(table) == "" {
		return database.TableDescriptor{}, errs.New(errs.ErrKindInvalidInput, "schema and table are required")
	}

	var out database.TableDescriptor
	err := s.withConn(ctx, func(q database.Querier) error {
		var err error
		out, err = postgres.DescribeTable(ctx, q, schema, table)
		return err
	})
	if err != nil {
		return database.TableDescriptor{}, err
	}

	s.log.DebugWith("described table", map[string]interface{}{"schema": schema, "table": table, "columns": len(out.Columns)})
	return out, nil
}

// Query runs sql on the session connection exactly as given. An empty or
// blank statement is sent too; the server answers it with no rows.
func (s *Service) Query(ctx context.Context, sql string) (database.QueryResult, error) {
	return s.run(ctx, sql)
}

// Preview reads rows of one table on the session connection through a
// parameterized SELECT built from b.
func (s *Service) Preview(ctx context.Context, b *database.SelectBuilder) (database.QueryResult, error) {
	sql, args, err := b.Build()
	if err != nil {
		return database.QueryResult{}, err
	}
	return s.run(ctx, sql, args...)
}

func (s *Service) run(ctx context.Context, sql string, args ...any) (database.QueryResult, error) {
	sess, err := s.current(ctx)
	if err != nil {
		return database.QueryResult{}, err
	}

	if s.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.QueryTimeout)
		defer cancel()
	}

	s.log.With().Str("sql", sql).Int("args", len(args)).Logger().Debug("executing query")

	var out database.QueryResult
	err = sess.Do(ctx, func(q database.Querier) error {
		var err error
		out, err = postgres.Execute(ctx, q, sql, args...)
		return err
	})
	if err != nil {
		s.log.With().Err(err).Str("kind", errs.KindOf(err).String()).Logger().Warn("query failed")
		return database.QueryResult{}, err
	}
	return out, nil
}

// Ping checks the session connection with a trivial statement. A dropped
// session is replaced first, so a healthy server reports healthy again.
func (s *Service) Ping(ctx context.Context) error {
	sess, err := s.current(ctx)
	if err != nil {
		return err
	}
	return sess.Do(ctx, func(q database.Querier) error {
		_, err := postgres.Execute(ctx, q, "SELECT 1")
		return err
	})
}

// SchemaSummary renders Tables as YAML.
func (s *Service) SchemaSummary(ctx context.Context, schema string) (string, error) {
	ds, err := s.Tables(ctx, schema)
	if err != nil {
		return "", err
	}
	return render(ds)
}

// TableDescription renders Table as YAML.
func (s *Service) TableDescription(ctx context.Context, schema, table string) (string, error) {
	td, err := s.Table(ctx, schema, table)
	if err != nil {
		return "", err
	}
	return render(td)
}

// PreviewYAML renders Preview as YAML.
func (s *Service) PreviewYAML(ctx context.Context, b *database.SelectBuilder) (string, error) {
	res, err := s.Preview(ctx, b)
	if err != nil {
		return "", err
	}
	return render(res)
}

// QueryYAML renders Query as YAML.
func (s *Service) QueryYAML(ctx context.Context, sql string) (string, error) {
	res, err := s.Query(ctx, sql)
	if err != nil {
		return "", err
	}
	return render(res)
}

// current returns the open session, dialing a replacement if the driver
// dropped it. The failed statement itself is never retried.
func (s *Service) current(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errs.New(errs.ErrKindConnection, "session is not open")
	}
	if s.session.IsClosed() {
		if err := s.dialSession(ctx); err != nil {
			return nil, err
		}
	}
	return s.session, nil
}

// dialSession replaces s.session with a new connection. s.mu must be held.
// On failure the dropped session stays in place so the next call dials again.
func (s *Service) dialSession(ctx context.Context) error {
	old := s.session
	if old != nil {
		if err := old.Close(context.WithoutCancel(ctx)); err != nil {
			s.log.ErrorWith("failed to close dropped session", err, nil)
		}
	}

	sess, err := s.dial(ctx)
	if err != nil {
		s.log.ErrorWith("failed to open session", err, nil)
		return err
	}
	s.session = sess
	if old != nil {
		s.log.Warn("session reopened")
	} else {
		s.log.Info("session opened")
	}
	return nil
}

// withConn runs fn on a connection that lives for this call only.
func (s *Service) withConn(ctx context.Context, fn func(database.Querier) error) (err error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(context.WithoutCancel(ctx)); cerr != nil {
			s.log.ErrorWith("failed to close connection", cerr, nil)
			if err == nil {
				err = cerr
			}
		}
	}()
	return conn.Do(ctx, fn)
}

func render(v any) (string, error) {
	out, err := summary.YAML(v)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindUnknown, "failed to render summary", err)
	}
	return out, nil
}
