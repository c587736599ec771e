// Package overlay resolves the settings an alert widget renders with:
// a streamer's base settings layered under the matched donation level.
package overlay

// EffectiveSettings is the flattened view the widget consumes. Amounts
// of customization live in free-form media entries (sound, image,
// animation URLs) keyed by slot name.
type EffectiveSettings struct {
	Duration int               `json:"duration"`
	Volume   int               `json:"volume"`
	Template string            `json:"template"`
	Media    map[string]string `json:"media"`
}

// DonationLevel customizes alerts inside an amount range. MaxAmount
// zero means open-ended.
type DonationLevel struct {
	Name      string `json:"name"`
	MinAmount int64  `json:"min_amount"`
	MaxAmount int64  `json:"max_amount"`

	Settings       EffectiveSettings `json:"settings"`
	ExclusiveMedia bool              `json:"exclusive_media"`
}

// SelectLevel returns the first level whose amount range contains
// amount, or nil when none matches. Levels are checked in the order
// given; the caller keeps them sorted by ascending MinAmount.
func SelectLevel(levels []DonationLevel, amount int64) *DonationLevel {
	for i := range levels {
		level := &levels[i]
		if amount < level.MinAmount {
			continue
		}
		if level.MaxAmount > 0 && amount > level.MaxAmount {
			continue
		}
		return level
	}
	return nil
}

// Resolve layers a donation level over the base settings. Scalar fields
// from the level win when set; media entries merge key-by-key with the
// level winning, unless the level is exclusive, in which case the base
// media is dropped entirely.
func Resolve(base EffectiveSettings, level *DonationLevel) EffectiveSettings {
	out := EffectiveSettings{
		Duration: base.Duration,
		Volume:   base.Volume,
		Template: base.Template,
		Media:    make(map[string]string, len(base.Media)),
	}
	for k, v := range base.Media {
		out.Media[k] = v
	}
	if level == nil {
		return out
	}

	if level.Settings.Duration > 0 {
		out.Duration = level.Settings.Duration
	}
	if level.Settings.Volume > 0 {
		out.Volume = level.Settings.Volume
	}
	if level.Settings.Template != "" {
		out.Template = level.Settings.Template
	}

	if level.ExclusiveMedia && len(level.Settings.Media) > 0 {
		out.Media = make(map[string]string, len(level.Settings.Media))
	}
	for k, v := range level.Settings.Media {
		out.Media[k] = v
	}
	return out
}
