package projectstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "pgx"
)

const cacheSize = 256

// SQLStore keeps projects in one table, with file contents as a JSON column
// and an LRU in front of reads.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	cache   *lru.Cache[string, Project]

	schemaOnce sync.Once
	schemaErr  error
}

func OpenSQL(dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(string(dialect), strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQL(db, dialect)
}

func NewSQL(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	cache, err := lru.New[string, Project](cacheSize)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db, dialect: dialect, cache: cache}, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT 'Project',
  entry_point TEXT NOT NULL DEFAULT '',
  files TEXT NOT NULL DEFAULT '{}',
  updated_at BIGINT NOT NULL
)`)
	})
	return s.schemaErr
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *SQLStore) rebind(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Get(ctx context.Context, id string) (Project, error) {
	id = strings.TrimSpace(id)
	if p, ok := s.cache.Get(id); ok {
		return clone(p), nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return Project{}, err
	}
	var (
		p     Project
		files string
		ms    int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, name, entry_point, files, updated_at FROM projects WHERE id = ?`), id).
		Scan(&p.ID, &p.Name, &p.EntryPoint, &files, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, fmt.Errorf("get project: %w", err)
	}
	if err := json.Unmarshal([]byte(files), &p.Files); err != nil {
		return Project{}, fmt.Errorf("decode project files: %w", err)
	}
	p.UpdatedAt = time.UnixMilli(ms).UTC()
	s.cache.Add(p.ID, p)
	return clone(p), nil
}

func (s *SQLStore) Put(ctx context.Context, p Project) (Project, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return Project{}, err
	}
	p = normalize(p)
	p.UpdatedAt = p.UpdatedAt.Truncate(time.Millisecond)
	files, err := json.Marshal(p.Files)
	if err != nil {
		return Project{}, fmt.Errorf("encode project files: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
INSERT INTO projects (id, name, entry_point, files, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id)
DO UPDATE SET name=EXCLUDED.name,
  entry_point=EXCLUDED.entry_point,
  files=EXCLUDED.files,
  updated_at=EXCLUDED.updated_at`),
		p.ID, p.Name, p.EntryPoint, string(files), p.UpdatedAt.UnixMilli())
	if err != nil {
		return Project{}, fmt.Errorf("put project: %w", err)
	}
	s.cache.Remove(p.ID)
	return clone(p), nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM projects WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	s.cache.Remove(id)
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]Project, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, entry_point, updated_at FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()
	var out []Project
	for rows.Next() {
		var (
			p  Project
			ms int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.EntryPoint, &ms); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.UpdatedAt = time.UnixMilli(ms).UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortProjects(out)
	return out, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func clone(p Project) Project {
	files := make(map[string]string, len(p.Files))
	for k, v := range p.Files {
		files[k] = v
	}
	p.Files = files
	return p
}
