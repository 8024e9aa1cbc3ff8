// Package settings is the string key/value config store backing ranking
// knobs, Prowlarr credentials and indexer-plugin configuration. Values
// live in the config table; reads go through an in-process cache so the
// ranking path does not hit the database per comparison.
package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"sync"
)

// Getter is the read side. Anything that needs config at query time
// (ranking, plugins, prowlarr) should depend on this, not on Store.
type Getter interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

type Store struct {
	DB *sql.DB

	mu    sync.RWMutex
	cache map[string]string
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, cache: make(map[string]string)}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	v, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return v, true, nil
	}

	var val string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM config WHERE key=$1`, key).Scan(&val)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}

	s.mu.Lock()
	s.cache[key] = val
	s.mu.Unlock()
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO config (key, value) VALUES ($1,$2)
ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value`, key, value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM config WHERE key=$1`, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}

// Flush drops the in-process cache, forcing the next reads through the DB.
func (s *Store) Flush() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Typed helpers over any Getter. Absent or malformed values fall back to
// the default; only DB errors propagate.

func GetString(ctx context.Context, g Getter, key, def string) (string, error) {
	v, ok, err := g.Get(ctx, key)
	if err != nil || !ok || v == "" {
		return def, err
	}
	return v, nil
}

func GetInt(ctx context.Context, g Getter, key string, def int) (int, error) {
	v, ok, err := g.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	n, perr := strconv.Atoi(v)
	if perr != nil {
		return def, nil
	}
	return n, nil
}

func GetFloat(ctx context.Context, g Getter, key string, def float64) (float64, error) {
	v, ok, err := g.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	f, perr := strconv.ParseFloat(v, 64)
	if perr != nil {
		return def, nil
	}
	return f, nil
}

func GetBool(ctx context.Context, g Getter, key string, def bool) (bool, error) {
	v, ok, err := g.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	switch v {
	case "1", "true", "True":
		return true, nil
	case "0", "false", "False":
		return false, nil
	}
	return def, nil
}

// GetJSON unmarshals the stored value into out. Returns false when the
// key is absent or does not parse.
func GetJSON(ctx context.Context, g Getter, key string, out any) (bool, error) {
	v, ok, err := g.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if jerr := json.Unmarshal([]byte(v), out); jerr != nil {
		return false, nil
	}
	return true, nil
}
