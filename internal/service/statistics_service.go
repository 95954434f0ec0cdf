package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alumniportal/mentoring-api/internal/models"
	appErrors "github.com/alumniportal/mentoring-api/pkg/errors"
)

type statisticsStore interface {
	StatusCounts(ctx context.Context, programID string) ([]models.MatchStatusCount, error)
	AverageScore(ctx context.Context, programID string) (float64, error)
}

type unmatchedCounter interface {
	CountUnmatchedApprovedMentees(ctx context.Context, programID string) (int, error)
}

// StatisticsService aggregates per-program matching figures with a short
// Redis cache in front; a program with zero matches still reports cleanly.
type StatisticsService struct {
	matches       statisticsStore
	registrations unmatchedCounter
	cache         *CacheService
	logger        *zap.Logger
	ttl           time.Duration
	now           func() time.Time
}

// NewStatisticsService wires the statistics aggregation.
func NewStatisticsService(
	matches statisticsStore,
	registrations unmatchedCounter,
	cache *CacheService,
	logger *zap.Logger,
	ttl time.Duration,
) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatisticsService{
		matches:       matches,
		registrations: registrations,
		cache:         cache,
		logger:        logger,
		ttl:           ttl,
		now:           time.Now,
	}
}

// GetStatistics returns the aggregated view for one program.
func (s *StatisticsService) GetStatistics(ctx context.Context, programID string) (*models.ProgramStatistics, error) {
	cacheKey := fmt.Sprintf("matching:%s:statistics", programID)
	var cached models.ProgramStatistics
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	counts, err := s.matches.StatusCounts(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate match counts")
	}
	avg, err := s.matches.AverageScore(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average score")
	}
	unmatched, err := s.registrations.CountUnmatchedApprovedMentees(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unmatched mentees")
	}

	stats := &models.ProgramStatistics{
		ProgramID:        programID,
		UnmatchedMentees: unmatched,
		AverageScore:     avg,
		GeneratedAt:      s.now().UTC(),
	}
	for _, c := range counts {
		stats.Total += c.Count
		switch c.Status {
		case models.MatchStatusAccepted:
			stats.Accepted += c.Count
		case models.MatchStatusPending:
			stats.Pending += c.Count
		case models.MatchStatusRejected, models.MatchStatusAutoRejected:
			stats.RejectedTotal += c.Count
		}
		switch c.Type {
		case models.MatchTypePreferred:
			stats.PreferredMatches += c.Count
		case models.MatchTypeAlgorithm:
			stats.AlgorithmMatches += c.Count
		case models.MatchTypeManual:
			stats.ManualMatches += c.Count
		}
	}

	if err := s.cache.Set(ctx, cacheKey, stats, s.ttl); err != nil {
		s.logger.Warn("statistics cache write failed", zap.String("program_id", programID), zap.Error(err))
	}
	return stats, nil
}
