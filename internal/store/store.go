package store

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"github.com/tliron/commonlog"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"

	"tally/internal/ir"
)

var (
	// ErrUnitNotFound indicates no cached unit exists for a key.
	ErrUnitNotFound = errors.New("unit not found")
	// ErrUnknownDriver indicates a driver name other than sqlite or postgres.
	ErrUnknownDriver = errors.New("unknown store driver")
)

var log = commonlog.GetLogger("tally.store")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store persists extern constants and a cache of compiled units.
type Store struct {
	db     *sql.DB
	driver string
	mu     sync.Mutex
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS constants (
		name  TEXT PRIMARY KEY,
		value DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS units (
		key  TEXT PRIMARY KEY,
		code BYTEA NOT NULL
	)`,
}

// Open connects to the database and creates the tables if needed.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db, driver: driver}

	if driver == DriverSQLite {
		// Set busy timeout for concurrent access
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting busy timeout: %w", err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating table: %w", err)
		}
	}

	log.Infof("opened %s store", driver)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Driver() string {
	return s.driver
}

// bind rewrites ? placeholders to $n for postgres.
func (s *Store) bind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// SetConstant stores or replaces a constant.
func (s *Store) SetConstant(name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(s.bind(
		"INSERT INTO constants (name, value) VALUES (?, ?) ON CONFLICT (name) DO UPDATE SET value = excluded.value"),
		name, value)
	if err != nil {
		return fmt.Errorf("saving constant %s: %w", name, err)
	}
	return nil
}

// DeleteConstant removes a constant. It reports whether one existed.
func (s *Store) DeleteConstant(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(s.bind("DELETE FROM constants WHERE name = ?"), name)
	if err != nil {
		return false, fmt.Errorf("deleting constant %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting constant %s: %w", name, err)
	}
	return n > 0, nil
}

// Constants returns every stored constant.
func (s *Store) Constants() (map[string]float64, error) {
	rows, err := s.db.Query("SELECT name, value FROM constants ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying constants: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scanning constant: %w", err)
		}
		out[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying constants: %w", err)
	}
	return out, nil
}

// Key returns the cache key for a source text: the hex BLAKE2b-256 digest.
func Key(src string) string {
	sum := blake2b.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// SaveUnit caches bc under key in its CBOR form.
func (s *Store) SaveUnit(key string, bc *ir.ByteCode) error {
	data, err := ir.MarshalByteCode(bc)
	if err != nil {
		return fmt.Errorf("encoding unit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(s.bind(
		"INSERT INTO units (key, code) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET code = excluded.code"),
		key, data)
	if err != nil {
		return fmt.Errorf("saving unit: %w", err)
	}
	log.Debugf("cached unit %s (%d bytes)", key, len(data))
	return nil
}

// LoadUnit returns the cached unit for key, or ErrUnitNotFound.
func (s *Store) LoadUnit(key string) (*ir.ByteCode, error) {
	var data []byte
	err := s.db.QueryRow(s.bind("SELECT code FROM units WHERE key = ?"), key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnitNotFound
		}
		return nil, fmt.Errorf("querying unit: %w", err)
	}
	bc, err := ir.UnmarshalByteCode(data)
	if err != nil {
		return nil, fmt.Errorf("unit %s: %w", key, err)
	}
	return bc, nil
}

// PurgeUnits drops every cached unit.
func (s *Store) PurgeUnits() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM units"); err != nil {
		return fmt.Errorf("purging units: %w", err)
	}
	return nil
}
