package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"forgedeck/internal/forge"

	_ "modernc.org/sqlite"
)

// errCorrupt marks an unreadable disk entry. It never leaves this package:
// the manager turns it into a plain cache miss.
var errCorrupt = errors.New("cache: corrupt entry")

// diskLayer persists serialized entries in a single SQLite database under
// the user cache directory. WAL mode keeps readers and the write path from
// blocking each other when several tasks complete at once.
type diskLayer struct {
	db *sql.DB
}

func openDiskLayer(path string) (*diskLayer, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	d := &diskLayer{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return d, nil
}

func (d *diskLayer) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		key        TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		fetched_at INTEGER NOT NULL,
		payload    BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);
	`
	_, err := d.db.Exec(schema)
	return err
}

func (d *diskLayer) close() error { return d.db.Close() }

// get loads and decodes one entry. Missing rows return (zero, false, nil);
// rows whose payload no longer decodes return errCorrupt.
func (d *diskLayer) get(key forge.ResourceKey) (Entry, bool, error) {
	var (
		kind      string
		fetchedAt int64
		payload   []byte
	)
	err := d.db.QueryRow(
		`SELECT kind, fetched_at, payload FROM entries WHERE key = ?`,
		key.String(),
	).Scan(&kind, &fetchedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	if forge.Kind(kind) != key.Kind {
		return Entry{}, false, errCorrupt
	}
	value, err := forge.DecodePayload(key.Kind, payload)
	if err != nil {
		return Entry{}, false, errCorrupt
	}
	return Entry{
		Key:       key,
		Value:     value,
		FetchedAt: time.UnixMilli(fetchedAt).UTC(),
	}, true, nil
}

// put upserts the serialized payload for a key.
func (d *diskLayer) put(key forge.ResourceKey, payload []byte, fetchedAt time.Time) error {
	return retryOnContention(func() error {
		_, err := d.db.Exec(
			`INSERT INTO entries (key, kind, fetched_at, payload) VALUES (?, ?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET kind = excluded.kind,
			   fetched_at = excluded.fetched_at, payload = excluded.payload`,
			key.String(), string(key.Kind), fetchedAt.UnixMilli(), payload,
		)
		return err
	})
}

func (d *diskLayer) delete(key forge.ResourceKey) error {
	return retryOnContention(func() error {
		_, err := d.db.Exec(`DELETE FROM entries WHERE key = ?`, key.String())
		return err
	})
}

func (d *diskLayer) purge() error {
	return retryOnContention(func() error {
		_, err := d.db.Exec(`DELETE FROM entries`)
		return err
	})
}
