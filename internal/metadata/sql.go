package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/segmentio/ksuid"
	_ "modernc.org/sqlite"

	"github.com/angeloszaimis/blobstream/config"
)

const schema = `CREATE TABLE IF NOT EXISTS files (
	id           TEXT PRIMARY KEY,
	object_key   TEXT NOT NULL,
	display_name TEXT NOT NULL,
	mime_type    TEXT NOT NULL DEFAULT '',
	size         BIGINT NOT NULL,
	created_at   BIGINT NOT NULL
)`

const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

// SQLStore keeps file descriptors in a relational table.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenStore connects to dsn with the given driver and creates the files
// table when missing.
func OpenStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case config.DriverSQLite:
		dsn = withSQLitePragmas(dsn)
	case config.DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported metadata driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create files table: %w", err)
	}

	return &SQLStore{db: db, driver: driver}, nil
}

func withSQLitePragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}

// Resolve looks id up. Identifiers that are not KSUIDs are rejected before
// touching the database.
func (s *SQLStore) Resolve(ctx context.Context, id string) (FileDescriptor, error) {
	if _, err := ksuid.Parse(id); err != nil {
		return FileDescriptor{}, fmt.Errorf("%w: %s", ErrInvalidIdentifier, err)
	}

	query := fmt.Sprintf(
		"SELECT id, object_key, display_name, mime_type, size FROM files WHERE id = %s",
		s.placeholder(1),
	)

	var f FileDescriptor
	err := s.db.QueryRowContext(ctx, query, id).Scan(&f.ID, &f.ObjectKey, &f.DisplayName, &f.MimeType, &f.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return FileDescriptor{}, ErrNotFound
	}
	if err != nil {
		return FileDescriptor{}, fmt.Errorf("resolve %s: %w", id, err)
	}

	return f, nil
}

// Register stores f under a freshly generated identifier and returns the
// stored descriptor. Any ID already set on f is ignored.
func (s *SQLStore) Register(ctx context.Context, f FileDescriptor) (FileDescriptor, error) {
	if f.ObjectKey == "" {
		return FileDescriptor{}, errors.New("register: object key is required")
	}
	if f.Size < 0 {
		return FileDescriptor{}, fmt.Errorf("register: negative size %d", f.Size)
	}
	if f.DisplayName == "" {
		f.DisplayName = f.ObjectKey[strings.LastIndex(f.ObjectKey, "/")+1:]
	}

	f.ID = ksuid.New().String()

	query := fmt.Sprintf(
		"INSERT INTO files (id, object_key, display_name, mime_type, size, created_at) VALUES (%s, %s, %s, %s, %s, %s)",
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5), s.placeholder(6),
	)

	if _, err := s.db.ExecContext(ctx, query, f.ID, f.ObjectKey, f.DisplayName, f.MimeType, f.Size, time.Now().Unix()); err != nil {
		return FileDescriptor{}, fmt.Errorf("register %s: %w", f.ObjectKey, err)
	}

	return f, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) placeholder(n int) string {
	if s.driver == config.DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}
