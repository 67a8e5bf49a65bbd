// Package audit translates governed entity mutations into immutable audit
// entries. The builder is pure: it diffs two snapshots and emits entries only
// for fields whose value actually changed.
package audit

import (
	"context"
	"reflect"
)

// EntityType names a governed entity.
type EntityType string

const (
	EntityCourse           EntityType = "Course"
	EntityLesson           EntityType = "Lesson"
	EntityOffer            EntityType = "Offer"
	EntityCoupon           EntityType = "Coupon"
	EntityProtectionPolicy EntityType = "ContentProtectionPolicy"
	EntitySchoolAuthPolicy EntityType = "SchoolAuthPolicy"
)

// Entry is one append-only audit record. CreatedAt is assigned by the sink.
type Entry struct {
	SchoolID   string
	EntityType EntityType
	EntityID   string
	Action     string
	ActorID    string
	Metadata   map[string]any
}

// Sink records entries to an external store. Implementations should be
// best-effort from the caller's perspective: a failed audit write must not
// roll back the governed mutation it describes.
type Sink interface {
	Record(ctx context.Context, entries []Entry) error
}

// actionFunc names the semantic action for a field change.
type actionFunc func(from, to any) string

func fixed(action string) actionFunc {
	return func(_, _ any) string { return action }
}

// toggled picks by the new boolean value (e.g., published vs unpublished).
func toggled(whenTrue, whenFalse string) actionFunc {
	return func(_, to any) string {
		if b, ok := to.(bool); ok && b {
			return whenTrue
		}
		return whenFalse
	}
}

type fieldRule struct {
	field  string
	action actionFunc
}

// monitoredFields lists, per entity type, which fields produce entries and
// under which action codes.
var monitoredFields = map[EntityType][]fieldRule{
	EntityCourse: {
		{"is_published", toggled("COURSE_PUBLISHED", "COURSE_UNPUBLISHED")},
		{"is_free", toggled("COURSE_MADE_FREE", "COURSE_MADE_PAID")},
		{"title", fixed("COURSE_TITLE_CHANGED")},
		{"instructor", fixed("COURSE_INSTRUCTOR_CHANGED")},
	},
	EntityLesson: {
		{"is_published", toggled("LESSON_PUBLISHED", "LESSON_UNPUBLISHED")},
		{"drip_publish_at", fixed("LESSON_DRIP_CHANGED")},
		{"drip_days_after_enroll", fixed("LESSON_DRIP_CHANGED")},
	},
	EntityOffer: {
		{"price_cents", fixed("OFFER_PRICE_CHANGED")},
		{"is_active", toggled("OFFER_ACTIVATED", "OFFER_DEACTIVATED")},
	},
	EntityCoupon: {
		{"code", fixed("COUPON_CODE_CHANGED")},
		{"discount_percent", fixed("COUPON_DISCOUNT_CHANGED")},
		{"is_active", toggled("COUPON_ACTIVATED", "COUPON_DEACTIVATED")},
	},
	EntityProtectionPolicy: {
		{"max_preview_chars", fixed("POLICY_PREVIEW_LIMITS_CHANGED")},
		{"max_preview_seconds", fixed("POLICY_PREVIEW_LIMITS_CHANGED")},
	},
	EntitySchoolAuthPolicy: {
		{"require_sso", fixed("AUTH_POLICY_CHANGED")},
		{"allowed_domains", fixed("AUTH_POLICY_CHANGED")},
	},
}

// BuildEntries diffs two snapshots of a governed entity and returns zero or
// more entries. A field counts as changed only when at least one side is
// present and the values differ; two absent values never produce an entry.
// The school id resolves from after falling back to before; when neither side
// carries one, the result is empty.
func BuildEntries(entityType EntityType, before, after map[string]any, actorID string) []Entry {
	schoolID := stringField(after, "school_id")
	if schoolID == "" {
		schoolID = stringField(before, "school_id")
	}
	if schoolID == "" {
		return []Entry{}
	}
	entityID := stringField(after, "id")
	if entityID == "" {
		entityID = stringField(before, "id")
	}

	rules := monitoredFields[entityType]
	entries := make([]Entry, 0, len(rules))
	for _, rule := range rules {
		from := before[rule.field]
		to := after[rule.field]
		if !changed(from, to) {
			continue
		}
		entries = append(entries, Entry{
			SchoolID:   schoolID,
			EntityType: entityType,
			EntityID:   entityID,
			Action:     rule.action(from, to),
			ActorID:    actorID,
			Metadata: map[string]any{
				"field": rule.field,
				"from":  from,
				"to":    to,
			},
		})
	}
	return entries
}

// changed reports a real value change: at least one side present, values
// differing.
func changed(from, to any) bool {
	if from == nil && to == nil {
		return false
	}
	return !reflect.DeepEqual(from, to)
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
