// Package monitoring implements consent, session lifecycle, screenshot
// ingestion, hourly reports and the administrative review reads.
package monitoring

import (
	"log/slog"
	"time"

	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time

	// When non-empty, only consent given for this version counts.
	policyVersion string
}

type Option func(*Service)

// WithClock replaces the server wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithPolicyVersion(version string) Option {
	return func(s *Service) { s.policyVersion = version }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:     db,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HourBucket is the grouping key year-month-day-hour of t in UTC.
func HourBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02-15")
}
