// Package store persists hearth families, items and notes with database/sql.
//
// Two drivers are supported: the pure-Go SQLite driver (default, single file
// or ":memory:") and MySQL. Tables are created on open; every query is keyed
// by family name so one family never reads another family's rows.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/hearth/internal/config"
	"github.com/fyrsmithlabs/hearth/internal/home"
	"github.com/fyrsmithlabs/hearth/internal/logging"
)

// SQL is a home.Store backed by a SQL database.
type SQL struct {
	db      *sql.DB
	dialect dialect
	logger  *logging.Logger
}

var _ home.Store = (*SQL)(nil)

// Open connects to the database described by cfg and creates missing tables.
func Open(ctx context.Context, cfg config.StoreConfig, logger *logging.Logger) (*SQL, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	var (
		db  *sql.DB
		d   dialect
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite, "":
		db, err = openSQLite(cfg.DSN.Value())
		d = sqliteDialect
	case config.DriverMySQL:
		db, err = openMySQL(cfg.DSN.Value())
		d = mysqlDialect
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	s := &SQL{db: db, dialect: d, logger: logger.Named("store")}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", d.name, err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info(ctx, "store opened",
		zap.String("driver", d.name),
		logging.Secret("dsn", cfg.DSN),
	)
	return s, nil
}

func openSQLite(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("sqlite dsn is required")
	}
	if path := sqlitePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and avoids SQLITE_BUSY
	// between writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return db, nil
}

// sqlitePath returns the filesystem path of a sqlite DSN, or "" for memory databases.
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return path
}

func openMySQL(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("mysql dsn is required")
	}
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	mc.MultiStatements = false
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	if _, ok := mc.Params["charset"]; !ok {
		mc.Params["charset"] = "utf8mb4"
	}

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	return db, nil
}

func (s *SQL) migrate(ctx context.Context) error {
	for _, ddl := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

// Driver returns the dialect name.
func (s *SQL) Driver() string { return s.dialect.name }

// Ping verifies the database is reachable.
func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQL) Close() error {
	return s.db.Close()
}

// EnsureFamily returns the named family, inserting a default row first if needed.
func (s *SQL) EnsureFamily(ctx context.Context, name string) (home.Family, error) {
	f := home.NewFamily(name)
	_, err := s.db.ExecContext(ctx, s.dialect.insertFamily,
		f.Name, f.Lights, f.Temperature, f.Humidity, string(f.Mode), toUnix(f.UpdatedAt))
	if err != nil {
		return home.Family{}, fmt.Errorf("insert family: %w", err)
	}
	return s.GetFamily(ctx, name)
}

// GetFamily loads the named family.
func (s *SQL) GetFamily(ctx context.Context, name string) (home.Family, error) {
	var (
		f       home.Family
		mode    string
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, lights, temperature, humidity, mode, updated_at FROM families WHERE name = ?`, name,
	).Scan(&f.Name, &f.Lights, &f.Temperature, &f.Humidity, &mode, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return home.Family{}, fmt.Errorf("family %q: %w", name, home.ErrNotFound)
	}
	if err != nil {
		return home.Family{}, fmt.Errorf("select family: %w", err)
	}
	f.Mode = home.Mode(mode)
	f.UpdatedAt = fromUnix(updated)
	return f, nil
}

// UpdateFamily writes every mutable family column.
func (s *SQL) UpdateFamily(ctx context.Context, f home.Family) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE families SET lights = ?, temperature = ?, humidity = ?, mode = ?, updated_at = ? WHERE name = ?`,
		f.Lights, f.Temperature, f.Humidity, string(f.Mode), toUnix(f.UpdatedAt), f.Name)
	if err != nil {
		return fmt.Errorf("update family: %w", err)
	}
	return expectRow(res, "family", f.Name)
}

const itemColumns = `id, name, quantity, unit, location, category, family_name, created_at, updated_at`

// ListItems returns every item owned by family in storage order.
func (s *SQL) ListItems(ctx context.Context, family string) ([]home.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE family_name = ? ORDER BY created_at, id`, family)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	items := make([]home.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetItem loads one item of family.
func (s *SQL) GetItem(ctx context.Context, family, id string) (home.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE family_name = ? AND id = ?`, family, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return home.Item{}, fmt.Errorf("item %s: %w", id, home.ErrNotFound)
	}
	return item, err
}

// InsertItem stores a new item.
func (s *SQL) InsertItem(ctx context.Context, item home.Item) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Quantity, item.Unit, item.Location, item.Category,
		item.Family, toUnix(item.CreatedAt), toUnix(item.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// UpdateItem overwrites the mutable columns of an existing item.
func (s *SQL) UpdateItem(ctx context.Context, item home.Item) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET name = ?, quantity = ?, unit = ?, location = ?, category = ?, updated_at = ?
		 WHERE family_name = ? AND id = ?`,
		item.Name, item.Quantity, item.Unit, item.Location, item.Category, toUnix(item.UpdatedAt),
		item.Family, item.ID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return expectRow(res, "item", item.ID)
}

// DeleteItem removes one item of family.
func (s *SQL) DeleteItem(ctx context.Context, family, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE family_name = ? AND id = ?`, family, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return expectRow(res, "item", id)
}

// ListNotes returns the notes of family, newest first.
func (s *SQL) ListNotes(ctx context.Context, family string) ([]home.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, family_name, created_at FROM notes WHERE family_name = ? ORDER BY created_at DESC, id DESC`,
		family)
	if err != nil {
		return nil, fmt.Errorf("select notes: %w", err)
	}
	defer rows.Close()

	notes := make([]home.Note, 0)
	for rows.Next() {
		var (
			n       home.Note
			created int64
		)
		if err := rows.Scan(&n.ID, &n.Content, &n.Family, &created); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.CreatedAt = fromUnix(created)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// InsertNote stores a new note.
func (s *SQL) InsertNote(ctx context.Context, note home.Note) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, content, family_name, created_at) VALUES (?, ?, ?, ?)`,
		note.ID, note.Content, note.Family, toUnix(note.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// DeleteNote removes one note of family.
func (s *SQL) DeleteNote(ctx context.Context, family, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE family_name = ? AND id = ?`, family, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return expectRow(res, "note", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (home.Item, error) {
	var (
		item             home.Item
		created, updated int64
	)
	err := row.Scan(&item.ID, &item.Name, &item.Quantity, &item.Unit, &item.Location,
		&item.Category, &item.Family, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return home.Item{}, err
		}
		return home.Item{}, fmt.Errorf("scan item: %w", err)
	}
	item.CreatedAt = fromUnix(created)
	item.UpdatedAt = fromUnix(updated)
	return item, nil
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, home.ErrNotFound)
	}
	return nil
}

// Timestamps are stored as Unix nanoseconds so both dialects share one encoding.
func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
