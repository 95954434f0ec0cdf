package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/alumniportal/mentoring-api/internal/dto"
	"github.com/alumniportal/mentoring-api/internal/models"
	"github.com/alumniportal/mentoring-api/internal/repository"
	appErrors "github.com/alumniportal/mentoring-api/pkg/errors"
)

type programReader interface {
	FindByID(ctx context.Context, id string) (*models.MentoringProgram, error)
}

type registrationReader interface {
	ListApprovedMentors(ctx context.Context, programID string) ([]models.MentorRegistration, error)
	ListUnmatchedApprovedMentees(ctx context.Context, programID string) ([]models.MenteeRegistration, error)
	FindMenteeByID(ctx context.Context, id string) (*models.MenteeRegistration, error)
	FindMentorByUser(ctx context.Context, programID, userID string) (*models.MentorRegistration, error)
}

type matchWriter interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	Create(ctx context.Context, exec sqlx.ExtContext, match *models.Match) error
	ActiveCountsByMentor(ctx context.Context, programID string) (map[string]int, error)
	ExistsActiveForMentee(ctx context.Context, programID, menteeUserID string) (bool, error)
	List(ctx context.Context, filter models.MatchFilter) ([]models.MatchDetail, int, error)
}

// MatchingServiceConfig carries the engine tunables resolved from configuration.
type MatchingServiceConfig struct {
	Weights             MatchingWeights
	AutoRejectDays      int
	MaxMenteesPerMentor int
}

// MatchingService runs the three-pass assignment engine and handles manual
// overrides. A per-program mutex serialises the read-check-create sequence;
// the partial unique index on matches is the persistence-level backstop.
type MatchingService struct {
	programs      programReader
	registrations registrationReader
	matches       matchWriter
	scorer        *Scorer
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	cfg           MatchingServiceConfig
	now           func() time.Time

	mu           sync.Mutex
	programLocks map[string]*sync.Mutex
}

// NewMatchingService wires the assignment engine.
func NewMatchingService(
	programs programReader,
	registrations registrationReader,
	matches matchWriter,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg MatchingServiceConfig,
) *MatchingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AutoRejectDays <= 0 {
		cfg.AutoRejectDays = 3
	}
	if cfg.MaxMenteesPerMentor <= 0 {
		cfg.MaxMenteesPerMentor = 20
	}
	return &MatchingService{
		programs:      programs,
		registrations: registrations,
		matches:       matches,
		scorer:        NewScorer(cfg.Weights),
		cache:         cache,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
		programLocks:  make(map[string]*sync.Mutex),
	}
}

// mentorSlot tracks a mentor's remaining capacity within one engine invocation.
type mentorSlot struct {
	registration *models.MentorRegistration
	capacity     int
	load         int
}

func (m *mentorSlot) hasCapacity() bool {
	return m.load < m.capacity
}

// RunMatching executes the three-pass assignment for a program and persists
// every created match in a single transaction.
func (s *MatchingService) RunMatching(ctx context.Context, programID string) (*dto.RunMatchingResponse, error) {
	program, err := s.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !program.RegistrationClosed(now) {
		return nil, appErrors.ErrMatchingNotReady
	}
	if !program.MatchingOpen(now) {
		return nil, appErrors.ErrMatchingClosed
	}

	lock := s.lockFor(programID)
	lock.Lock()
	defer lock.Unlock()

	mentors, err := s.registrations.ListApprovedMentors(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentors")
	}
	mentees, err := s.registrations.ListUnmatchedApprovedMentees(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentees")
	}
	activeCounts, err := s.matches.ActiveCountsByMentor(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor load")
	}

	slots := s.buildMentorSlots(program, mentors, activeCounts)
	created, unmatched := s.assign(program, mentees, slots, now)

	if len(created) > 0 {
		if err := s.persistMatches(ctx, created); err != nil {
			return nil, err
		}
		for _, match := range created {
			s.metrics.RecordMatchCreated(string(match.MatchType))
		}
		s.invalidateProgramCache(ctx, programID)
	}

	s.logger.Info("matching run completed",
		zap.String("program_id", programID),
		zap.Int("created", len(created)),
		zap.Int("unmatched", len(unmatched)),
	)

	resp := &dto.RunMatchingResponse{
		ProgramID:    programID,
		CreatedCount: len(created),
		Created:      make([]models.Match, 0, len(created)),
		Unmatched:    unmatched,
	}
	for _, match := range created {
		resp.Created = append(resp.Created, *match)
	}
	return resp, nil
}

// assign runs the preferred and algorithmic passes in memory. Mentees keep
// their stable input order throughout, which makes runs deterministic.
func (s *MatchingService) assign(
	program *models.MentoringProgram,
	mentees []models.MenteeRegistration,
	slots map[string]*mentorSlot,
	now time.Time,
) ([]*models.Match, []models.MenteeRegistration) {
	var created []*models.Match
	remaining := make([]models.MenteeRegistration, 0, len(mentees))

	// Pass 1: honour preference lists in the mentee's stated order.
	for i := range mentees {
		mentee := &mentees[i]
		slot := s.firstPreferredWithCapacity(mentee, slots)
		if slot == nil {
			remaining = append(remaining, *mentee)
			continue
		}
		created = append(created, s.newMatch(program, slot, mentee, models.MatchTypePreferred, now))
		slot.load++
	}

	// Pass 2: best scored fit for everyone left.
	var unmatched []models.MenteeRegistration
	for i := range remaining {
		mentee := &remaining[i]
		slot := s.bestScoredMentor(mentee, slots)
		if slot == nil {
			unmatched = append(unmatched, *mentee)
			continue
		}
		created = append(created, s.newMatch(program, slot, mentee, models.MatchTypeAlgorithm, now))
		slot.load++
	}

	if unmatched == nil {
		unmatched = []models.MenteeRegistration{}
	}
	return created, unmatched
}

func (s *MatchingService) firstPreferredWithCapacity(mentee *models.MenteeRegistration, slots map[string]*mentorSlot) *mentorSlot {
	for _, preferredID := range mentee.PreferredMentors {
		for _, slot := range slots {
			if preferredID != slot.registration.UserID && preferredID != slot.registration.ID {
				continue
			}
			if slot.hasCapacity() {
				return slot
			}
		}
	}
	return nil
}

// bestScoredMentor picks the strictly highest scoring mentor with remaining
// capacity. Ties break by lowest current load, then by smallest user ID.
func (s *MatchingService) bestScoredMentor(mentee *models.MenteeRegistration, slots map[string]*mentorSlot) *mentorSlot {
	candidates := make([]*mentorSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.hasCapacity() {
			candidates = append(candidates, slot)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	scores := make(map[string]float64, len(candidates))
	for _, slot := range candidates {
		scores[slot.registration.UserID] = s.scorer.Score(slot.registration, mentee)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		sa, sb := scores[a.registration.UserID], scores[b.registration.UserID]
		if sa != sb {
			return sa > sb
		}
		if a.load != b.load {
			return a.load < b.load
		}
		return a.registration.UserID < b.registration.UserID
	})
	return candidates[0]
}

func (s *MatchingService) newMatch(
	program *models.MentoringProgram,
	slot *mentorSlot,
	mentee *models.MenteeRegistration,
	matchType models.MatchType,
	now time.Time,
) *models.Match {
	return &models.Match{
		ProgramID:            program.ID,
		TenantID:             program.TenantID,
		MentorUserID:         slot.registration.UserID,
		MenteeUserID:         mentee.UserID,
		MentorRegistrationID: slot.registration.ID,
		MenteeRegistrationID: mentee.ID,
		Status:               models.MatchStatusPending,
		MatchType:            matchType,
		MatchScore:           s.scorer.Score(slot.registration, mentee),
		MatchedAt:            now,
		AutoRejectAt:         now.AddDate(0, 0, s.cfg.AutoRejectDays),
	}
}

func (s *MatchingService) buildMentorSlots(
	program *models.MentoringProgram,
	mentors []models.MentorRegistration,
	activeCounts map[string]int,
) map[string]*mentorSlot {
	fallback := s.cfg.MaxMenteesPerMentor
	if program.MaxMenteesPerMentor != nil && *program.MaxMenteesPerMentor > 0 {
		fallback = *program.MaxMenteesPerMentor
	}
	slots := make(map[string]*mentorSlot, len(mentors))
	for i := range mentors {
		mentor := &mentors[i]
		slots[mentor.UserID] = &mentorSlot{
			registration: mentor,
			capacity:     mentor.EffectiveCapacity(fallback),
			load:         activeCounts[mentor.UserID],
		}
	}
	return slots
}

// persistMatches inserts all created matches atomically. A concurrent run
// hitting the unique index rolls the whole batch back.
func (s *MatchingService) persistMatches(ctx context.Context, created []*models.Match) error {
	tx, err := s.matches.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin matching transaction")
	}
	for _, match := range created {
		if err := s.matches.Create(ctx, tx, match); err != nil {
			_ = tx.Rollback()
			if errors.Is(err, repository.ErrDuplicateActiveMatch) {
				return appErrors.Clone(appErrors.ErrAlreadyMatched, "a concurrent matching run already assigned one of these mentees")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist match")
		}
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit matching transaction")
	}
	return nil
}

// CreateManualMatch records an operator-picked pairing. Scoring still runs so
// the record stays comparable on dashboards.
func (s *MatchingService) CreateManualMatch(ctx context.Context, programID string, req dto.ManualMatchRequest) (*models.Match, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid manual match payload")
	}
	program, err := s.loadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}

	lock := s.lockFor(programID)
	lock.Lock()
	defer lock.Unlock()

	mentee, err := s.registrations.FindMenteeByID(ctx, req.MenteeRegistrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mentee registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentee registration")
	}
	if mentee.ProgramID != programID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mentee registration belongs to a different program")
	}
	if mentee.Status != models.RegistrationStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "mentee registration is not approved")
	}

	alreadyMatched, err := s.matches.ExistsActiveForMentee(ctx, programID, mentee.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing matches")
	}
	if alreadyMatched {
		return nil, appErrors.ErrAlreadyMatched
	}

	mentor, err := s.registrations.FindMentorByUser(ctx, programID, req.MentorUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrMentorNotApproved
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor registration")
	}
	if mentor.Status != models.RegistrationStatusApproved {
		return nil, appErrors.ErrMentorNotApproved
	}

	activeCounts, err := s.matches.ActiveCountsByMentor(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor load")
	}
	fallback := s.cfg.MaxMenteesPerMentor
	if program.MaxMenteesPerMentor != nil && *program.MaxMenteesPerMentor > 0 {
		fallback = *program.MaxMenteesPerMentor
	}
	if activeCounts[mentor.UserID] >= mentor.EffectiveCapacity(fallback) {
		return nil, appErrors.ErrMentorCapacityExceeded
	}

	now := s.now().UTC()
	slot := &mentorSlot{registration: mentor}
	match := s.newMatch(program, slot, mentee, models.MatchTypeManual, now)

	tx, err := s.matches.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := s.matches.Create(ctx, tx, match); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, repository.ErrDuplicateActiveMatch) {
			return nil, appErrors.ErrAlreadyMatched
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist manual match")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit manual match")
	}

	s.metrics.RecordMatchCreated(string(models.MatchTypeManual))
	s.invalidateProgramCache(ctx, programID)
	return match, nil
}

// ListMatches returns matches for dashboard rendering.
func (s *MatchingService) ListMatches(ctx context.Context, filter models.MatchFilter) ([]models.MatchDetail, *models.Pagination, error) {
	if filter.ProgramID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "program id is required")
	}
	matches, total, err := s.matches.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list matches")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return matches, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListUnmatched returns approved mentees without an active match.
func (s *MatchingService) ListUnmatched(ctx context.Context, programID string) ([]models.MenteeRegistration, error) {
	if _, err := s.loadProgram(ctx, programID); err != nil {
		return nil, err
	}
	mentees, err := s.registrations.ListUnmatchedApprovedMentees(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unmatched mentees")
	}
	return mentees, nil
}

func (s *MatchingService) loadProgram(ctx context.Context, programID string) (*models.MentoringProgram, error) {
	program, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

func (s *MatchingService) lockFor(programID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.programLocks[programID]
	if !ok {
		lock = &sync.Mutex{}
		s.programLocks[programID] = lock
	}
	return lock
}

func (s *MatchingService) invalidateProgramCache(ctx context.Context, programID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("matching:%s:*", programID)); err != nil {
		s.logger.Warn("failed to invalidate matching cache", zap.String("program_id", programID), zap.Error(err))
	}
}
