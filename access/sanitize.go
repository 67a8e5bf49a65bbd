package access

import "github.com/open-rails/coursekit/content"

// Policy is a school's content protection limits for preview flows.
type Policy struct {
	MaxPreviewChars   int
	MaxPreviewSeconds int
}

// Defaults applied when a school has no stored policy or zero-valued fields.
const (
	DefaultMaxPreviewChars   = 1500
	DefaultMaxPreviewSeconds = 90
)

func (p Policy) withDefaults() Policy {
	if p.MaxPreviewChars <= 0 {
		p.MaxPreviewChars = DefaultMaxPreviewChars
	}
	if p.MaxPreviewSeconds <= 0 {
		p.MaxPreviewSeconds = DefaultMaxPreviewSeconds
	}
	return p
}

// ShouldFetchMaterials reports whether a caller should retrieve the payload
// at all. For LOCKED and DRIP_LOCKED the answer is no: never fetch-then-hide.
func ShouldFetchMaterials(level Level) bool {
	return level == LevelFull || level == LevelPreview
}

// SanitizeMaterial redacts a payload per access level. LOCKED/DRIP_LOCKED get
// nil (no payload crosses the boundary), FULL gets the material verbatim, and
// PREVIEW gets text truncated to the policy's char limit ("..." appended when
// cut) and duration capped at the preview seconds limit.
//
// Media URLs pass through unchanged at PREVIEW: true media time-limiting is a
// player-side responsibility. Known limitation.
func SanitizeMaterial(m *content.Material, level Level, policy Policy) *content.Material {
	if m == nil {
		return nil
	}
	switch level {
	case LevelFull:
		return m
	case LevelPreview:
		p := policy.withDefaults()
		out := *m
		if runes := []rune(out.ContentText); len(runes) > p.MaxPreviewChars {
			out.ContentText = string(runes[:p.MaxPreviewChars]) + "..."
		}
		if out.DurationSeconds > p.MaxPreviewSeconds {
			out.DurationSeconds = p.MaxPreviewSeconds
		}
		return &out
	default:
		return nil
	}
}
