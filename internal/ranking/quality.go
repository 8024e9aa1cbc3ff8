package ranking

import (
	"context"

	"github.com/vbonduro/AudioBookRequest/internal/settings"
	"github.com/vbonduro/AudioBookRequest/pkg/types"
)

// Config keys in the settings store. Ranges and the list-valued knobs are
// stored as JSON.
const (
	keyQualityFLAC         = "quality_flac"
	keyQualityM4B          = "quality_m4b"
	keyQualityMP3          = "quality_mp3"
	keyQualityUnknownAudio = "quality_unknown_audio"
	keyQualityUnknown      = "quality_unknown"
	keyMinSeeders          = "quality_min_seeders"
	keyNameExistsRatio     = "quality_name_exists_ratio"
	keyTitleExistsRatio    = "quality_title_exists_ratio"
	keyIndexerFlags        = "quality_indexer_flags"
	keyFormatOrder         = "quality_format_order"
	keyIndexerOrder        = "quality_indexer_order"
)

var rangeKeys = map[types.FileFormat]string{
	types.FormatFLAC:         keyQualityFLAC,
	types.FormatM4B:          keyQualityM4B,
	types.FormatMP3:          keyQualityMP3,
	types.FormatUnknownAudio: keyQualityUnknownAudio,
	types.FormatUnknown:      keyQualityUnknown,
}

// Config resolves the admin-mutable ranking knobs from the settings
// store. Load takes a snapshot so one ranking call sees one consistent
// config even if an admin saves mid-flight.
type Config struct {
	Settings settings.Getter
}

func defaultRankingConfig() *types.RankingConfig {
	ranges := make(map[types.FileFormat]types.QualityRange, len(rangeKeys))
	for f := range rangeKeys {
		ranges[f] = types.QualityRange{FromKbits: 20, ToKbits: 400}
	}
	return &types.RankingConfig{
		Ranges:           ranges,
		MinSeeders:       1,
		NameExistsRatio:  75,
		TitleExistsRatio: 90,
		FormatOrder: []types.FileFormat{
			types.FormatFLAC,
			types.FormatM4B,
			types.FormatMP3,
			types.FormatUnknownAudio,
			types.FormatUnknown,
		},
	}
}

// Load reads the full ranking config, falling back to defaults for any
// key that is absent. Only store errors propagate.
func (c Config) Load(ctx context.Context) (*types.RankingConfig, error) {
	cfg := defaultRankingConfig()

	for format, key := range rangeKeys {
		var r types.QualityRange
		ok, err := settings.GetJSON(ctx, c.Settings, key, &r)
		if err != nil {
			return nil, err
		}
		if ok {
			cfg.Ranges[format] = r
		}
	}

	var err error
	if cfg.MinSeeders, err = settings.GetInt(ctx, c.Settings, keyMinSeeders, cfg.MinSeeders); err != nil {
		return nil, err
	}
	if cfg.NameExistsRatio, err = settings.GetInt(ctx, c.Settings, keyNameExistsRatio, cfg.NameExistsRatio); err != nil {
		return nil, err
	}
	if cfg.TitleExistsRatio, err = settings.GetInt(ctx, c.Settings, keyTitleExistsRatio, cfg.TitleExistsRatio); err != nil {
		return nil, err
	}
	if _, err = settings.GetJSON(ctx, c.Settings, keyIndexerFlags, &cfg.IndexerFlags); err != nil {
		return nil, err
	}
	if _, err = settings.GetJSON(ctx, c.Settings, keyFormatOrder, &cfg.FormatOrder); err != nil {
		return nil, err
	}
	if _, err = settings.GetJSON(ctx, c.Settings, keyIndexerOrder, &cfg.IndexerOrder); err != nil {
		return nil, err
	}
	return cfg, nil
}
