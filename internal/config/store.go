// Package config also owns the persisted per-user config store: the
// API keys and LocusGraph connection settings a `locus config` run
// saves, kept in a small SQLite table and mirrored to a
// shell-sourceable env file so a new shell picks them up without
// re-running the CLI. Grounded on original_source's
// locus_cli/src/commands/config.rs (db::set_config/get_config/sync_env_file).
package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is the per-user config table at <dir>/locus.db, mirrored to
// <dir>/env on every write.
type Store struct {
	db  *sql.DB
	dir string
}

// OpenStore opens (creating if absent) the config store under dir,
// creating dir itself if necessary.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("config: create %s: %w", dir, err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, "locus.db"))
	if err != nil {
		return nil, fmt.Errorf("config: open locus.db: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("config: apply schema: %w", err)
	}
	return &Store{db: db, dir: dir}, nil
}

// DefaultStoreDir returns ~/.locus, the store location the CLI uses
// when the caller doesn't override it.
func DefaultStoreDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".locus"), nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Set writes one key/value pair and re-syncs the env file from the
// table's full contents.
func (s *Store) Set(key, value string) error {
	if _, err := s.db.Exec(
		`INSERT INTO config (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	); err != nil {
		return fmt.Errorf("config: set %s: %w", key, err)
	}
	return s.syncEnvFile()
}

// Get returns one key's value, or ("", false) if unset.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("config: get %s: %w", key, err)
	}
	return value, true, nil
}

// All returns every stored key/value pair.
func (s *Store) All() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM config`)
	if err != nil {
		return nil, fmt.Errorf("config: list: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("config: scan: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// EnvFilePath returns the shell-sourceable env file this store mirrors
// its contents to.
func (s *Store) EnvFilePath() string { return filepath.Join(s.dir, "env") }

// syncEnvFile rewrites the env file from the table's current contents,
// one `export KEY="value"` line per key, sorted for a stable diff.
func (s *Store) syncEnvFile() error {
	all, err := s.All()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "export %s=%q\n", k, all[k])
	}

	return os.WriteFile(s.EnvFilePath(), []byte(b.String()), 0o600)
}

// MaskAPIKey renders a key safe for display: short keys become all
// asterisks, longer ones keep their first and last four characters.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return fmt.Sprintf("%s...%s", key[:4], key[len(key)-4:])
}
