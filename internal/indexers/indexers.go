// Package indexers holds the secondary-metadata plugins: optional,
// credential-gated enrichers that tag candidate sources with richer
// author/narrator data than the aggregator returns. Plugins are isolated
// from each other; one broken plugin never blocks ranking.
package indexers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vbonduro/AudioBookRequest/internal/settings"
	"github.com/vbonduro/AudioBookRequest/pkg/types"
)

var (
	ErrMissingRequired = errors.New("required configuration missing")
	ErrInvalidType     = errors.New("configuration value has wrong type")
)

// Env carries the shared handles a plugin may borrow during one
// enrichment call. Read-only apart from the sources being edited.
type Env struct {
	Settings settings.Getter
	HTTP     *http.Client
}

type FieldType string

const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
	FieldBool   FieldType = "bool"
	FieldFloat  FieldType = "float"
)

// Field declares one configurable plugin setting. The admin UI renders
// an input per field; values land in the settings store under Key.
type Field struct {
	Key         string
	DisplayName string
	Description string
	Type        FieldType
	Required    bool
	Default     string
}

// Values holds resolved configuration, already validated against the
// declared field types.
type Values map[string]string

func (v Values) String(key string) string { return v[key] }

func (v Values) Int(key string) int {
	n, _ := strconv.Atoi(v[key])
	return n
}

func (v Values) Float(key string) float64 {
	f, _ := strconv.ParseFloat(v[key], 64)
	return f
}

func (v Values) Bool(key string) bool {
	switch v[key] {
	case "1", "true", "True":
		return true
	}
	return false
}

// Resolve reads each declared field from the settings store, applying
// defaults and enforcing required/typed fields.
func Resolve(ctx context.Context, g settings.Getter, fields []Field) (Values, error) {
	out := make(Values, len(fields))
	for _, f := range fields {
		raw, ok, err := g.Get(ctx, f.Key)
		if err != nil {
			return nil, err
		}
		if !ok || raw == "" {
			raw = f.Default
		}
		if raw == "" {
			if f.Required {
				return nil, fmt.Errorf("%w: %s", ErrMissingRequired, f.Key)
			}
			continue
		}
		switch f.Type {
		case FieldInt:
			if _, perr := strconv.Atoi(raw); perr != nil {
				return nil, fmt.Errorf("%w: %s must be an integer", ErrInvalidType, f.Key)
			}
		case FieldFloat:
			if _, perr := strconv.ParseFloat(raw, 64); perr != nil {
				return nil, fmt.Errorf("%w: %s must be a float", ErrInvalidType, f.Key)
			}
		case FieldBool:
			switch raw {
			case "0", "1", "true", "false", "True", "False":
			default:
				return nil, fmt.Errorf("%w: %s must be a bool", ErrInvalidType, f.Key)
			}
		}
		out[f.Key] = raw
	}
	return out, nil
}

// Indexer is one pluggable metadata provider. Instances are created
// fresh per enrichment call, so state built in Setup (the per-query
// result map) never leaks across requests.
type Indexer interface {
	Name() string

	// Configurations declares the plugin's settings schema.
	Configurations() []Field

	// Active reports whether the admin enabled the plugin.
	Active(cfg Values) bool

	// Setup runs the plugin's own backend search for the book and
	// caches whatever EditSourceMetadata will need.
	Setup(ctx context.Context, env *Env, book *types.Book, cfg Values) error

	// IsMatchingSource is a pure predicate: does this plugin own the
	// source?
	IsMatchingSource(source *types.Source) bool

	// EditSourceMetadata overwrites authors/narrators and unions new
	// indexer flags on an owned source.
	EditSourceMetadata(ctx context.Context, env *Env, source *types.Source) error
}

// Factory builds a fresh plugin instance for one enrichment call.
type Factory func() Indexer

// DefaultRegistry is the fixed, ordered plugin list. Order matters: the
// first plugin matching a source owns it.
func DefaultRegistry() []Factory {
	return []Factory{
		NewMam,
	}
}
