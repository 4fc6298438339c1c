// Package loadlog persists PluginLoaded events to SQLite or Postgres so the
// admin API can show which plugins were instantiated and when.
package loadlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ferro-labs/plugdir/hook"
	"github.com/ferro-labs/plugdir/plugin"
)

// Entry is one recorded plugin load.
type Entry struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Version     string    `json:"version,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Query filters List results. Limit <= 0 defaults to 50.
type Query struct {
	Type   string
	Limit  int
	Offset int
}

// ListResult is a page of entries plus the total matching count.
type ListResult struct {
	Data  []Entry `json:"data"`
	Total int     `json:"total"`
}

// Writer persists load entries.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

// Reader lists persisted load entries, newest first.
type Reader interface {
	List(ctx context.Context, q Query) (ListResult, error)
}

// NoopWriter ignores all writes.
type NoopWriter struct{}

func (NoopWriter) Write(_ context.Context, _ Entry) error { return nil }

// SQLWriter persists entries to SQLite/Postgres.
type SQLWriter struct {
	db      *sql.DB
	dialect string
}

func NewSQLiteWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "plugdir-loads.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite load log: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "sqlite"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func NewPostgresWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres load log: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "postgres"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLWriter) init() error {
	if err := w.db.Ping(); err != nil {
		return fmt.Errorf("ping %s load log: %w", w.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS plugin_loads (
	id INTEGER PRIMARY KEY,
	plugin_type TEXT NOT NULL,
	name TEXT NOT NULL,
	version TEXT,
	description TEXT,
	created_at TIMESTAMP NOT NULL
);`

	if w.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS plugin_loads (
	id BIGSERIAL PRIMARY KEY,
	plugin_type TEXT NOT NULL,
	name TEXT NOT NULL,
	version TEXT,
	description TEXT,
	created_at TIMESTAMPTZ NOT NULL
);`
	}

	if _, err := w.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize load log schema: %w", err)
	}
	return nil
}

// bind rewrites ? placeholders for the active dialect.
func (w *SQLWriter) bind(query string) string {
	if w.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (w *SQLWriter) Write(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := w.bind(`INSERT INTO plugin_loads(plugin_type, name, version, description, created_at)
	VALUES(?, ?, ?, ?, ?)`)

	_, err := w.db.ExecContext(ctx, query,
		entry.Type,
		entry.Name,
		entry.Version,
		entry.Description,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write load log: %w", err)
	}
	return nil
}

func (w *SQLWriter) List(ctx context.Context, q Query) (ListResult, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	where := ""
	var args []interface{}
	if q.Type != "" {
		where = " WHERE plugin_type = ?"
		args = append(args, q.Type)
	}

	var total int
	if err := w.db.QueryRowContext(ctx, w.bind("SELECT COUNT(*) FROM plugin_loads"+where), args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count load log: %w", err)
	}

	query := w.bind(`SELECT id, plugin_type, name, COALESCE(version, ''), COALESCE(description, ''), created_at
	FROM plugin_loads` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	rows, err := w.db.QueryContext(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list load log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := ListResult{Data: []Entry{}, Total: total}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Type, &e.Name, &e.Version, &e.Description, &e.CreatedAt); err != nil {
			return ListResult{}, fmt.Errorf("scan load log: %w", err)
		}
		result.Data = append(result.Data, e)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("list load log: %w", err)
	}
	return result, nil
}

func (w *SQLWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// Attach records every PluginLoaded event fired on hooks into w. Write
// failures are logged and never reach the registry that fired the hook.
func Attach(hooks *hook.Registry, w Writer, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	plugin.OnLoaded(hooks, func(pluginType string, p plugin.Plugin) {
		info := p.Info()
		entry := Entry{
			Type:        pluginType,
			Name:        info.Name,
			Version:     info.Version,
			Description: info.Description,
			CreatedAt:   time.Now().UTC(),
		}
		if err := w.Write(context.Background(), entry); err != nil {
			logger.Warn("failed to record plugin load", "type", pluginType, "name", info.Name, "error", err)
		}
	})
}
