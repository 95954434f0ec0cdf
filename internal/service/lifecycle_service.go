package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/alumniportal/mentoring-api/internal/dto"
	"github.com/alumniportal/mentoring-api/internal/models"
	appErrors "github.com/alumniportal/mentoring-api/pkg/errors"
)

const minRejectionReasonLen = 10

type matchLifecycleStore interface {
	FindByID(ctx context.Context, id string) (*models.Match, error)
	TransitionFromPending(ctx context.Context, id string, status models.MatchStatus, respondedAt time.Time, reason *string) error
	ListExpiredPending(ctx context.Context, programID *string, now time.Time) ([]models.Match, error)
}

// LifecycleService handles mentor responses and the auto-reject sweep.
type LifecycleService struct {
	matches   matchLifecycleStore
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLifecycleService wires the match lifecycle operations.
func NewLifecycleService(
	matches matchLifecycleStore,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *LifecycleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		matches:   matches,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Respond records a mentor's accept or reject decision. The pending-only
// transition guard in the repository makes concurrent responses and sweep
// races resolve to exactly one winner.
func (s *LifecycleService) Respond(ctx context.Context, matchID, mentorUserID string, req dto.RespondRequest) (*models.Match, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}

	match, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "match not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load match")
	}
	if mentorUserID != "" && match.MentorUserID != mentorUserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "match belongs to a different mentor")
	}
	if match.Status != models.MatchStatusPending {
		return nil, appErrors.ErrInvalidMatchState
	}

	now := s.now().UTC()
	if now.After(match.AutoRejectAt) {
		return nil, appErrors.ErrMatchExpired
	}

	var (
		status models.MatchStatus
		reason *string
	)
	switch req.Action {
	case dto.RespondActionAccept:
		status = models.MatchStatusAccepted
	case dto.RespondActionReject:
		trimmed := strings.TrimSpace(req.Reason)
		if len(trimmed) < minRejectionReasonLen {
			return nil, appErrors.ErrRejectionReasonShort
		}
		status = models.MatchStatusRejected
		reason = &trimmed
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be accept or reject")
	}

	if err := s.matches.TransitionFromPending(ctx, matchID, status, now, reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Someone else transitioned it first.
			return nil, appErrors.ErrInvalidMatchState
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record response")
	}

	match.Status = status
	match.RespondedAt = &now
	match.RejectionReason = reason

	s.metrics.RecordMatchResponse(string(status))
	s.invalidateProgramCache(ctx, match.ProgramID)
	s.logger.Info("match response recorded",
		zap.String("match_id", matchID),
		zap.String("status", string(status)),
	)
	return match, nil
}

// SweepExpiredMatches auto-rejects every pending match whose acceptance
// window has elapsed. Failures on individual records are logged and skipped
// so one bad row never stalls the sweep.
func (s *LifecycleService) SweepExpiredMatches(ctx context.Context, programID *string) (*dto.SweepResponse, error) {
	now := s.now().UTC()
	expired, err := s.matches.ListExpiredPending(ctx, programID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expired matches")
	}

	reason := models.AutoRejectReason
	rejected := 0
	touched := make(map[string]struct{})
	for _, match := range expired {
		err := s.matches.TransitionFromPending(ctx, match.ID, models.MatchStatusAutoRejected, now, &reason)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Already responded between listing and transition.
				continue
			}
			s.logger.Warn("failed to auto-reject match",
				zap.String("match_id", match.ID),
				zap.Error(err),
			)
			continue
		}
		rejected++
		touched[match.ProgramID] = struct{}{}
	}

	for pid := range touched {
		s.invalidateProgramCache(ctx, pid)
	}
	if rejected > 0 {
		s.metrics.RecordAutoRejected(rejected)
		s.logger.Info("auto-reject sweep completed", zap.Int("auto_rejected", rejected))
	}
	return &dto.SweepResponse{AutoRejected: rejected}, nil
}

func (s *LifecycleService) invalidateProgramCache(ctx context.Context, programID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("matching:%s:*", programID)); err != nil {
		s.logger.Warn("failed to invalidate matching cache", zap.String("program_id", programID), zap.Error(err))
	}
}
