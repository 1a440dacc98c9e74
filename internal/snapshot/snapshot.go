// Package snapshot archives rendered schema summaries to object storage.
//
// A snapshot of schema S taken at time T is laid out as
//
//	<prefix>/<S>/<T>/summary.yaml
//	<prefix>/<S>/<T>/tables/<table>.yaml
//	<prefix>/<S>/<T>/manifest.yaml
//
// with T formatted as 20060102T150405Z in UTC. manifest.yaml is written last,
// only once every other object is stored; a snapshot without it is
// incomplete. A failed Take also deletes what it had written.
package snapshot

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/filestore"
	"github.com/koustreak/pgmeta/internal/logger"
	"github.com/koustreak/pgmeta/internal/summary"
)

const (
	timestampLayout = "20060102T150405Z"
	contentType     = "application/yaml"
	manifestName    = "manifest.yaml"

	// describeLimit caps concurrent table describes, each of which holds its
	// own database connection.
	describeLimit = 4
)

// Catalog is the read side a snapshot is taken from.
type Catalog interface {
	Tables(ctx context.Context, schema string) (database.DatabaseSummary, error)
	Table(ctx context.Context, schema, table string) (database.TableDescriptor, error)
}

// Options locates snapshots inside the store.
type Options struct {
	Bucket string
	Prefix string
}

// Manifest lists what one Take wrote. It is stored as manifest.yaml next to
// the objects it names.
type Manifest struct {
	Schema  string    `yaml:"schema"`
	TakenAt time.Time `yaml:"taken_at"`
	Summary string    `yaml:"summary"`
	Tables  []string  `yaml:"tables"`
}

// Archive writes and reads snapshots.
type Archive struct {
	store   filestore.Store
	catalog Catalog
	opts    Options
	log     *logger.Logger

	now func() time.Time
}

// New returns an Archive over store.
func New(store filestore.Store, catalog Catalog, opts Options, log *logger.Logger) *Archive {
	if log == nil {
		log = logger.Nop()
	}
	return &Archive{
		store:   store,
		catalog: catalog,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

// Take renders schema's summary and every table's description and uploads
// them, followed by the manifest. Nothing is written unless the schema
// summary could be read, and nothing is left behind when a later step fails.
func (a *Archive) Take(ctx context.Context, schema string) (*Manifest, error) {
	if strings.TrimSpace(schema) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "schema is required")
	}

	ds, err := a.catalog.Tables(ctx, schema)
	if err != nil {
		return nil, err
	}

	if err := a.store.EnsureBucket(ctx, a.opts.Bucket); err != nil {
		return nil, err
	}

	taken := a.now().UTC()
	base := path.Join(a.opts.Prefix, schema, taken.Format(timestampLayout))
	m := &Manifest{
		Schema:  schema,
		TakenAt: taken,
		Summary: path.Join(base, "summary.yaml"),
		Tables:  make([]string, len(ds.Tables)),
	}

	var (
		mu      sync.Mutex
		written []string
	)
	record := func(key string) {
		mu.Lock()
		written = append(written, key)
		mu.Unlock()
	}
	fail := func(err error) (*Manifest, error) {
		a.log.With().Err(err).Str("schema", schema).Int("written", len(written)).Logger().
			Error("snapshot incomplete")
		a.discard(context.WithoutCancel(ctx), written)
		return nil, err
	}

	if err := a.put(ctx, m.Summary, ds); err != nil {
		return nil, err
	}
	record(m.Summary)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(describeLimit)
	for i, t := range ds.Tables {
		key := path.Join(base, "tables", t.TableName+".yaml")
		m.Tables[i] = key

		g.Go(func() error {
			td, err := a.catalog.Table(gctx, t.SchemaName, t.TableName)
			if err != nil {
				return err
			}
			if err := a.put(gctx, key, td); err != nil {
				return err
			}
			record(key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	if err := a.put(ctx, path.Join(base, manifestName), m); err != nil {
		return fail(err)
	}

	a.log.InfoWith("snapshot taken", map[string]interface{}{
		"schema": schema,
		"tables": len(m.Tables),
		"key":    base,
	})
	return m, nil
}

// discard deletes the objects of an incomplete snapshot. Failures are logged
// only; the missing manifest already marks the snapshot as incomplete.
func (a *Archive) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := a.store.DeleteObject(ctx, a.opts.Bucket, key); err != nil {
			a.log.With().Err(err).Str("key", key).Logger().Warn("failed to delete partial snapshot object")
		}
	}
}

// List returns the archived objects under prefix, relative to the configured
// snapshot prefix.
func (a *Archive) List(ctx context.Context, prefix string) ([]filestore.ObjectInfo, error) {
	p := a.opts.Prefix
	if prefix != "" {
		p = path.Join(p, prefix)
	}
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return a.store.ListObjects(ctx, a.opts.Bucket, filestore.ListOptions{
		Prefix:    p,
		Recursive: true,
	})
}

// Cat copies the object at key to w.
func (a *Archive) Cat(ctx context.Context, key string, w io.Writer) error {
	obj, err := a.store.GetObject(ctx, a.opts.Bucket, key)
	if err != nil {
		return err
	}
	defer obj.Close()

	if _, err := io.Copy(w, obj); err != nil {
		return errs.Wrap(errs.ErrKindConnection, "failed to read object", err)
	}
	return nil
}

// URL returns a download link for key valid for ttl.
func (a *Archive) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := a.store.StatObject(ctx, a.opts.Bucket, key); err != nil {
		return "", err
	}
	return a.store.PresignGetURL(ctx, a.opts.Bucket, key, ttl)
}

// Close releases the underlying store.
func (a *Archive) Close() error {
	return a.store.Close()
}

func (a *Archive) put(ctx context.Context, key string, v any) error {
	out, err := summary.YAML(v)
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "failed to render "+key, err)
	}

	body := []byte(out)
	_, err = a.store.PutObject(ctx, a.opts.Bucket, key, bytes.NewReader(body), int64(len(body)), filestore.PutOptions{
		ContentType: contentType,
	})
	if err != nil {
		return err
	}
	a.log.With().Str("key", key).Int("bytes", len(body)).Logger().Debug("uploaded")
	return nil
}
