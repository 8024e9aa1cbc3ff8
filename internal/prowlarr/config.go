package prowlarr

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/vbonduro/AudioBookRequest/internal/settings"
)

// ErrMisconfigured is the one error the core lets escape to the caller:
// without a base URL and API key nothing downstream can work.
var ErrMisconfigured = errors.New("prowlarr base url or api key not set")

const (
	keyAPIKey     = "prowlarr_api_key"
	keyBaseURL    = "prowlarr_base_url"
	keySourceTTL  = "prowlarr_source_ttl"
	keyCategories = "prowlarr_categories"
	keyIndexers   = "prowlarr_indexers"
)

// Config reads the Prowlarr connection settings from the config store.
type Config struct {
	Settings settings.Getter
}

func (c Config) APIKey(ctx context.Context) (string, error) {
	return settings.GetString(ctx, c.Settings, keyAPIKey, "")
}

func (c Config) BaseURL(ctx context.Context) (string, error) {
	v, err := settings.GetString(ctx, c.Settings, keyBaseURL, "")
	return strings.TrimRight(v, "/"), err
}

func (c Config) SourceTTL(ctx context.Context) (time.Duration, error) {
	secs, err := settings.GetInt(ctx, c.Settings, keySourceTTL, 24*60*60)
	return time.Duration(secs) * time.Second, err
}

// Categories defaults to 3030, the Torznab audiobook category.
func (c Config) Categories(ctx context.Context) ([]int, error) {
	v, ok, err := c.Settings.Get(ctx, keyCategories)
	if err != nil || !ok {
		return []int{3030}, err
	}
	var cats []int
	if json.Unmarshal([]byte(v), &cats) != nil {
		return []int{3030}, nil
	}
	return cats, nil
}

// Indexers returns the admin-selected indexer ids, empty meaning all.
func (c Config) Indexers(ctx context.Context) ([]int, error) {
	var ids []int
	_, err := settings.GetJSON(ctx, c.Settings, keyIndexers, &ids)
	return ids, err
}

// Validate returns ErrMisconfigured unless both the base URL and API key
// are present.
func (c Config) Validate(ctx context.Context) error {
	base, err := c.BaseURL(ctx)
	if err != nil {
		return err
	}
	key, err := c.APIKey(ctx)
	if err != nil {
		return err
	}
	if base == "" || key == "" {
		return ErrMisconfigured
	}
	return nil
}
