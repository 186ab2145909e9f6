// Package classifier infers on-screen applications and an activity
// verdict from OCR text.
package classifier

import (
	"unicode/utf8"

	"workforce-monitor/internal/models"
)

// ActiveTextThreshold is the character count above which non-idle text
// counts as active work.
const ActiveTextThreshold = 100

// DetectApplications returns every known application with at least one
// matching signature. Each application appears at most once. A nil text
// yields no applications.
func DetectApplications(text *string) []App {
	if text == nil {
		return nil
	}
	var found []App
	for _, s := range signatures {
		for _, p := range s.patterns {
			if p.MatchString(*text) {
				found = append(found, App{Name: s.name, Category: s.category})
				break
			}
		}
	}
	return found
}

// DetectActivityLevel classifies text. Idle signals win over length, so a
// long lock-screen message is still idle.
func DetectActivityLevel(text *string) models.ActivityLevel {
	if text == nil {
		return models.ActivityUnknown
	}
	for _, p := range idleSignals {
		if p.MatchString(*text) {
			return models.ActivityIdle
		}
	}
	if utf8.RuneCountInString(*text) > ActiveTextThreshold {
		return models.ActivityActive
	}
	return models.ActivityUnknown
}

// AppNames flattens detected apps to their names.
func AppNames(apps []App) []string {
	names := make([]string, 0, len(apps))
	for _, a := range apps {
		names = append(names, a.Name)
	}
	return names
}
