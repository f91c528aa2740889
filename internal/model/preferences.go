package model

// PreferenceMode is the reserved preference key holding the interaction mode.
const PreferenceMode = "mode"

// Mode is the user's interaction preference. The front end switches to
// spoken navigation when it is ModeVoice.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeVoice  Mode = "voice"
)

// ParseMode returns the Mode for s, or false when s is not a known mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeNormal, ModeVoice:
		return Mode(s), true
	default:
		return "", false
	}
}

// Preferences is the free-form per-user preference map (theme, language,
// font size, ...). Values are anything encoding/json can produce.
//
// Only "mode" has a fixed meaning. It holds a Mode string or nil (JSON null,
// meaning "not chosen yet"). Writers validate it; see service.PreferenceService.
type Preferences map[string]any

// DefaultPreferences is what a new account starts with: no mode chosen yet.
func DefaultPreferences() Preferences {
	return Preferences{PreferenceMode: nil}
}

// Mode returns the stored mode, or false if it is unset, null, or not a
// known mode.
func (p Preferences) Mode() (Mode, bool) {
	s, ok := p[PreferenceMode].(string)
	if !ok {
		return "", false
	}
	return ParseMode(s)
}

// Merge returns a new map holding p overlaid with partial.
// The merge is shallow: a nested object in partial replaces the stored one.
func (p Preferences) Merge(partial Preferences) Preferences {
	merged := make(Preferences, len(p)+len(partial))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	return merged
}
