package agent

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"workforce-monitor/internal/models"
)

const (
	TopAppsPerReport = 5
	minutesPerHour   = 60
)

type sample struct {
	screenshotID string
	apps         []string
	level        models.ActivityLevel
	window       string
	text         *string
}

// HourWindow collects the uploads of one clock hour on the agent.
type HourWindow struct {
	Start   time.Time
	samples []sample
}

func NewHourWindow(t time.Time) *HourWindow {
	return &HourWindow{Start: hourStart(t)}
}

// Contains reports whether t falls in the window's hour.
func (w *HourWindow) Contains(t time.Time) bool {
	return hourStart(t).Equal(w.Start)
}

func (w *HourWindow) End() time.Time {
	return w.Start.Add(time.Hour)
}

func (w *HourWindow) Len() int {
	return len(w.samples)
}

func (w *HourWindow) Add(screenshotID string, apps []string, level models.ActivityLevel, window string, text *string) {
	w.samples = append(w.samples, sample{
		screenshotID: screenshotID,
		apps:         apps,
		level:        level,
		window:       window,
		text:         text,
	})
}

// Report summarizes the window. pick chooses the representative
// screenshot index in [0, n).
func (w *HourWindow) Report(sessionID string, interval time.Duration, keywords []string, pick func(n int) int) models.HourlyReportRequest {
	req := models.HourlyReportRequest{
		HourStart:        w.Start,
		HourEnd:          w.End(),
		ScreenshotsTaken: len(w.samples),
		TopAppsDetected:  w.topApps(TopAppsPerReport),
		KeywordsDetected: w.keywords(keywords),
	}
	if sessionID != "" {
		req.SessionID = &sessionID
	}
	if len(w.samples) > 0 {
		id := w.samples[pick(len(w.samples))].screenshotID
		req.RandomScreenshotID = &id
	}

	var active, idle, unknown int
	for _, s := range w.samples {
		switch s.level {
		case models.ActivityActive:
			active++
		case models.ActivityIdle:
			idle++
		default:
			unknown++
		}
	}
	req.ActiveMinutes = toMinutes(active, interval)
	req.IdleMinutes = toMinutes(idle, interval)

	summary := fmt.Sprintf("%d screenshots: %d active, %d idle, %d unknown", len(w.samples), active, idle, unknown)
	if title := w.topWindow(); title != "" {
		summary += fmt.Sprintf("; mostly in %q", title)
	}
	req.ActivitySummary = &summary
	return req
}

func (w *HourWindow) topApps(n int) []string {
	counts := map[string]int{}
	for _, s := range w.samples {
		for _, app := range s.apps {
			counts[app]++
		}
	}
	return rank(counts, n)
}

func (w *HourWindow) topWindow() string {
	counts := map[string]int{}
	for _, s := range w.samples {
		if s.window != "" && s.window != unknownWindow {
			counts[s.window]++
		}
	}
	top := rank(counts, 1)
	if len(top) == 0 {
		return ""
	}
	return top[0]
}

// keywords returns the watched keywords seen in any OCR text, in watch
// list order.
func (w *HourWindow) keywords(watch []string) []string {
	var found []string
	for _, kw := range watch {
		needle := strings.ToLower(kw)
		for _, s := range w.samples {
			if s.text != nil && strings.Contains(strings.ToLower(*s.text), needle) {
				found = append(found, kw)
				break
			}
		}
	}
	return found
}

func rank(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func toMinutes(captures int, interval time.Duration) int {
	m := int(math.Round(float64(captures) * interval.Minutes()))
	return min(m, minutesPerHour)
}

// hourStart truncates to the UTC hour so windows match the server's
// hour buckets in every zone, including half-hour offsets.
func hourStart(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
