package drip

import (
	"fmt"
	"time"
)

// Countdown is a human-oriented breakdown of the wait until a lesson unlocks.
type Countdown struct {
	Days    int    `json:"days"`
	Hours   int    `json:"hours"`
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

var countdownMessages = map[string]struct {
	availableNow string
	inDays       string // days, hours
	inHours      string // hours, minutes
	inMinutes    string // minutes
}{
	"en": {"Available now", "Available in %dd %dh", "Available in %dh %dm", "Available in %dm"},
	"es": {"Disponible ahora", "Disponible en %dd %dh", "Disponible en %dh %dm", "Disponible en %dm"},
}

// FormatCountdown breaks the wait until availableAt into day/hour/minute
// components with a label in the requested language (falling back to
// English). A nil or already-passed instant yields all-zero components and
// the "Available now" label.
func FormatCountdown(availableAt *time.Time, now time.Time, language string) Countdown {
	msgs, ok := countdownMessages[language]
	if !ok {
		msgs = countdownMessages["en"]
	}
	if availableAt == nil || !availableAt.After(now) {
		return Countdown{Label: msgs.availableNow}
	}
	// Round up so a wait never displays as zero while still locked.
	remaining := availableAt.Sub(now)
	totalMinutes := int((remaining + time.Minute - 1) / time.Minute)
	c := Countdown{
		Days:    totalMinutes / (24 * 60),
		Hours:   (totalMinutes / 60) % 24,
		Minutes: totalMinutes % 60,
	}
	switch {
	case c.Days > 0:
		c.Label = fmt.Sprintf(msgs.inDays, c.Days, c.Hours)
	case c.Hours > 0:
		c.Label = fmt.Sprintf(msgs.inHours, c.Hours, c.Minutes)
	default:
		c.Label = fmt.Sprintf(msgs.inMinutes, c.Minutes)
	}
	return c
}
