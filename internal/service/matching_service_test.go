package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumniportal/mentoring-api/internal/dto"
	"github.com/alumniportal/mentoring-api/internal/models"
	"github.com/alumniportal/mentoring-api/internal/repository"
	appErrors "github.com/alumniportal/mentoring-api/pkg/errors"
)

type mockProgramRepo struct {
	programs map[string]models.MentoringProgram
}

func (m *mockProgramRepo) FindByID(ctx context.Context, id string) (*models.MentoringProgram, error) {
	if p, ok := m.programs[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

type mockRegistrationRepo struct {
	mentors   []models.MentorRegistration
	mentees   []models.MenteeRegistration
	unmatched []models.MenteeRegistration
}

func (m *mockRegistrationRepo) ListApprovedMentors(ctx context.Context, programID string) ([]models.MentorRegistration, error) {
	return m.mentors, nil
}

func (m *mockRegistrationRepo) ListUnmatchedApprovedMentees(ctx context.Context, programID string) ([]models.MenteeRegistration, error) {
	if m.unmatched != nil {
		return m.unmatched, nil
	}
	return m.mentees, nil
}

func (m *mockRegistrationRepo) FindMenteeByID(ctx context.Context, id string) (*models.MenteeRegistration, error) {
	for i := range m.mentees {
		if m.mentees[i].ID == id {
			return &m.mentees[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockRegistrationRepo) FindMentorByUser(ctx context.Context, programID, userID string) (*models.MentorRegistration, error) {
	for i := range m.mentors {
		if m.mentors[i].UserID == userID {
			return &m.mentors[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockMatchRepo struct {
	db            *sqlx.DB
	sqlMock       sqlmock.Sqlmock
	created       []*models.Match
	activeCounts  map[string]int
	activeMentees map[string]bool
	duplicateFor  string
}

func newMockMatchRepo(t *testing.T) *mockMatchRepo {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })
	mock.MatchExpectationsInOrder(false)
	return &mockMatchRepo{
		db:      sqlx.NewDb(rawDB, "sqlmock"),
		sqlMock: mock,
	}
}

func (m *mockMatchRepo) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	m.sqlMock.ExpectBegin()
	m.sqlMock.ExpectCommit()
	m.sqlMock.ExpectRollback()
	return m.db.BeginTxx(ctx, opts)
}

func (m *mockMatchRepo) Create(ctx context.Context, exec sqlx.ExtContext, match *models.Match) error {
	if match.MenteeUserID == m.duplicateFor {
		return repository.ErrDuplicateActiveMatch
	}
	if match.ID == "" {
		match.ID = "match-" + match.MenteeUserID
	}
	m.created = append(m.created, match)
	return nil
}

func (m *mockMatchRepo) ActiveCountsByMentor(ctx context.Context, programID string) (map[string]int, error) {
	if m.activeCounts == nil {
		return map[string]int{}, nil
	}
	return m.activeCounts, nil
}

func (m *mockMatchRepo) ExistsActiveForMentee(ctx context.Context, programID, menteeUserID string) (bool, error) {
	return m.activeMentees[menteeUserID], nil
}

func (m *mockMatchRepo) List(ctx context.Context, filter models.MatchFilter) ([]models.MatchDetail, int, error) {
	details := make([]models.MatchDetail, 0, len(m.created))
	for _, match := range m.created {
		details = append(details, models.MatchDetail{Match: *match})
	}
	return details, len(details), nil
}

func matchingFixtureProgram() models.MentoringProgram {
	return models.MentoringProgram{
		ID:                        "prog-1",
		TenantID:                  "tenant-1",
		Name:                      "Alumni Mentoring 2026",
		RegistrationEndDateMentor: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		RegistrationEndDateMentee: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		MatchingEndDate:           time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestMatchingService(t *testing.T, programs *mockProgramRepo, registrations *mockRegistrationRepo, matches *mockMatchRepo) *MatchingService {
	t.Helper()
	cacheSvc := NewCacheService(nil, nil, 0, nil, false)
	svc := NewMatchingService(programs, registrations, matches, cacheSvc, nil, nil, nil, MatchingServiceConfig{
		Weights:             DefaultMatchingWeights(),
		AutoRejectDays:      3,
		MaxMenteesPerMentor: 20,
	})
	svc.now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestRunMatchingRegistrationStillOpen(t *testing.T) {
	program := matchingFixtureProgram()
	program.RegistrationEndDateMentee = time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": program}}
	svc := newTestMatchingService(t, programs, &mockRegistrationRepo{}, newMockMatchRepo(t))

	_, err := svc.RunMatching(context.Background(), "prog-1")
	assert.ErrorIs(t, err, appErrors.ErrMatchingNotReady)
}

func TestRunMatchingWindowClosed(t *testing.T) {
	program := matchingFixtureProgram()
	program.MatchingEndDate = time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": program}}
	svc := newTestMatchingService(t, programs, &mockRegistrationRepo{}, newMockMatchRepo(t))

	_, err := svc.RunMatching(context.Background(), "prog-1")
	assert.ErrorIs(t, err, appErrors.ErrMatchingClosed)
}

func TestRunMatchingProgramNotFound(t *testing.T) {
	svc := newTestMatchingService(t, &mockProgramRepo{}, &mockRegistrationRepo{}, newMockMatchRepo(t))

	_, err := svc.RunMatching(context.Background(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRunMatchingPreferredPassHonoursOrder(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	one := 1
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{
			*mentorFixture("m1", "Fintech", "Finance"),
			*mentorFixture("m2", "Banking", "Finance"),
		},
	}
	registrations.mentors[0].Capacity = &one
	first := *menteeFixture("s1", "Fintech", "Finance")
	first.PreferredMentors = []string{"m1", "m2"}
	second := *menteeFixture("s2", "Fintech", "Finance")
	second.PreferredMentors = []string{"m1", "m2"}
	registrations.mentees = []models.MenteeRegistration{first, second}

	matches := newMockMatchRepo(t)
	svc := newTestMatchingService(t, programs, registrations, matches)

	result, err := svc.RunMatching(context.Background(), "prog-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.CreatedCount)

	// First mentee takes its first choice; the second falls through to its
	// second choice because m1 is at capacity.
	assert.Equal(t, "m1", result.Created[0].MentorUserID)
	assert.Equal(t, "s1", result.Created[0].MenteeUserID)
	assert.Equal(t, models.MatchTypePreferred, result.Created[0].MatchType)
	assert.Equal(t, "m2", result.Created[1].MentorUserID)
	assert.Equal(t, "s2", result.Created[1].MenteeUserID)
	assert.Equal(t, models.MatchTypePreferred, result.Created[1].MatchType)
}

func TestRunMatchingAlgorithmPicksBestScore(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{
			*mentorFixture("m1", "Hospital", "Nursing"),
			*mentorFixture("m2", "Fintech", "Finance"),
		},
		mentees: []models.MenteeRegistration{
			*menteeFixture("s1", "Fintech", "Finance"),
		},
	}

	matches := newMockMatchRepo(t)
	svc := newTestMatchingService(t, programs, registrations, matches)

	result, err := svc.RunMatching(context.Background(), "prog-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.CreatedCount)
	assert.Equal(t, "m2", result.Created[0].MentorUserID)
	assert.Equal(t, models.MatchTypeAlgorithm, result.Created[0].MatchType)
	assert.Equal(t, 50.0, result.Created[0].MatchScore)
}

func TestRunMatchingTieBreaksByLoadThenUserID(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{
			*mentorFixture("m2", "Fintech", "Finance"),
			*mentorFixture("m1", "Fintech", "Finance"),
		},
		mentees: []models.MenteeRegistration{
			*menteeFixture("s1", "Fintech", "Finance"),
			*menteeFixture("s2", "Fintech", "Finance"),
		},
	}

	matches := newMockMatchRepo(t)
	matches.activeCounts = map[string]int{"m1": 1, "m2": 0}
	svc := newTestMatchingService(t, programs, registrations, matches)

	result, err := svc.RunMatching(context.Background(), "prog-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.CreatedCount)

	// Equal scores: s1 goes to the lighter m2. Both mentors then carry one
	// match, so s2 breaks the tie on the smaller user id.
	assert.Equal(t, "m2", result.Created[0].MentorUserID)
	assert.Equal(t, "m1", result.Created[1].MentorUserID)
}

func TestRunMatchingRespectsCapacity(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	one := 1
	mentor := *mentorFixture("m1", "Fintech", "Finance")
	mentor.Capacity = &one
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{mentor},
		mentees: []models.MenteeRegistration{
			*menteeFixture("s1", "Fintech", "Finance"),
			*menteeFixture("s2", "Fintech", "Finance"),
			*menteeFixture("s3", "Fintech", "Finance"),
		},
	}

	matches := newMockMatchRepo(t)
	svc := newTestMatchingService(t, programs, registrations, matches)

	result, err := svc.RunMatching(context.Background(), "prog-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Len(t, result.Unmatched, 2)
}

func TestRunMatchingSeedsLoadFromActiveMatches(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	two := 2
	mentor := *mentorFixture("m1", "Fintech", "Finance")
	mentor.Capacity = &two
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{mentor},
		mentees: []models.MenteeRegistration{
			*menteeFixture("s1", "Fintech", "Finance"),
			*menteeFixture("s2", "Fintech", "Finance"),
		},
	}

	matches := newMockMatchRepo(t)
	matches.activeCounts = map[string]int{"m1": 1}
	svc := newTestMatchingService(t, programs, registrations, matches)

	result, err := svc.RunMatching(context.Background(), "prog-1")
	require.NoError(t, err)

	// One slot already consumed by a pre-existing active match.
	assert.Equal(t, 1, result.CreatedCount)
	assert.Len(t, result.Unmatched, 1)
}

func TestRunMatchingIdempotentRerun(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{*mentorFixture("m1", "Fintech", "Finance")},
		mentees: []models.MenteeRegistration{*menteeFixture("s1", "Fintech", "Finance")},
	}

	matches := newMockMatchRepo(t)
	svc := newTestMatchingService(t, programs, registrations, matches)

	first, err := svc.RunMatching(context.Background(), "prog-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.CreatedCount)

	// The mentee now has an active match, so the unmatched query returns
	// nothing and a rerun creates no duplicates.
	registrations.unmatched = []models.MenteeRegistration{}
	second, err := svc.RunMatching(context.Background(), "prog-1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.CreatedCount)
	assert.Len(t, matches.created, 1)
}

func TestRunMatchingDuplicateRace(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{*mentorFixture("m1", "Fintech", "Finance")},
		mentees: []models.MenteeRegistration{*menteeFixture("s1", "Fintech", "Finance")},
	}

	matches := newMockMatchRepo(t)
	matches.duplicateFor = "s1"
	svc := newTestMatchingService(t, programs, registrations, matches)

	_, err := svc.RunMatching(context.Background(), "prog-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrAlreadyMatched.Code, appErr.Code)
}

func TestRunMatchingSetsAutoRejectDeadline(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{*mentorFixture("m1", "Fintech", "Finance")},
		mentees: []models.MenteeRegistration{*menteeFixture("s1", "Fintech", "Finance")},
	}

	matches := newMockMatchRepo(t)
	svc := newTestMatchingService(t, programs, registrations, matches)

	result, err := svc.RunMatching(context.Background(), "prog-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.CreatedCount)

	created := result.Created[0]
	assert.Equal(t, models.MatchStatusPending, created.Status)
	assert.Equal(t, created.MatchedAt.AddDate(0, 0, 3), created.AutoRejectAt)
}

func TestRunMatchingDeterministic(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{
			*mentorFixture("m3", "Fintech", "Finance"),
			*mentorFixture("m1", "Fintech", "Finance"),
			*mentorFixture("m2", "Fintech", "Finance"),
		},
		mentees: []models.MenteeRegistration{
			*menteeFixture("s1", "Fintech", "Finance"),
			*menteeFixture("s2", "Fintech", "Finance"),
		},
	}

	var firstPairs []string
	for run := 0; run < 5; run++ {
		matches := newMockMatchRepo(t)
		svc := newTestMatchingService(t, programs, registrations, matches)
		result, err := svc.RunMatching(context.Background(), "prog-1")
		require.NoError(t, err)

		pairs := make([]string, 0, len(result.Created))
		for _, match := range result.Created {
			pairs = append(pairs, match.MenteeUserID+"->"+match.MentorUserID)
		}
		if firstPairs == nil {
			firstPairs = pairs
			continue
		}
		assert.Equal(t, firstPairs, pairs)
	}
}

func TestCreateManualMatchAlreadyMatched(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	mentee := *menteeFixture("s1", "Fintech", "Finance")
	mentee.ProgramID = "prog-1"
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{*mentorFixture("m1", "Fintech", "Finance")},
		mentees: []models.MenteeRegistration{mentee},
	}

	matches := newMockMatchRepo(t)
	matches.activeMentees = map[string]bool{"s1": true}
	svc := newTestMatchingService(t, programs, registrations, matches)

	_, err := svc.CreateManualMatch(context.Background(), "prog-1", dto.ManualMatchRequest{
		MenteeRegistrationID: mentee.ID,
		MentorUserID:         "m1",
	})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyMatched)
}

func TestCreateManualMatchMentorNotApproved(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	mentee := *menteeFixture("s1", "Fintech", "Finance")
	mentee.ProgramID = "prog-1"
	mentor := *mentorFixture("m1", "Fintech", "Finance")
	mentor.Status = models.RegistrationStatusSubmitted
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{mentor},
		mentees: []models.MenteeRegistration{mentee},
	}

	svc := newTestMatchingService(t, programs, registrations, newMockMatchRepo(t))

	_, err := svc.CreateManualMatch(context.Background(), "prog-1", dto.ManualMatchRequest{
		MenteeRegistrationID: mentee.ID,
		MentorUserID:         "m1",
	})
	assert.ErrorIs(t, err, appErrors.ErrMentorNotApproved)
}

func TestCreateManualMatchCapacityExceeded(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	mentee := *menteeFixture("s1", "Fintech", "Finance")
	mentee.ProgramID = "prog-1"
	one := 1
	mentor := *mentorFixture("m1", "Fintech", "Finance")
	mentor.Capacity = &one
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{mentor},
		mentees: []models.MenteeRegistration{mentee},
	}

	matches := newMockMatchRepo(t)
	matches.activeCounts = map[string]int{"m1": 1}
	svc := newTestMatchingService(t, programs, registrations, matches)

	_, err := svc.CreateManualMatch(context.Background(), "prog-1", dto.ManualMatchRequest{
		MenteeRegistrationID: mentee.ID,
		MentorUserID:         "m1",
	})
	assert.ErrorIs(t, err, appErrors.ErrMentorCapacityExceeded)
}

func TestCreateManualMatchSuccess(t *testing.T) {
	programs := &mockProgramRepo{programs: map[string]models.MentoringProgram{"prog-1": matchingFixtureProgram()}}
	mentee := *menteeFixture("s1", "Fintech", "Finance")
	mentee.ProgramID = "prog-1"
	registrations := &mockRegistrationRepo{
		mentors: []models.MentorRegistration{*mentorFixture("m1", "Fintech", "Finance")},
		mentees: []models.MenteeRegistration{mentee},
	}

	matches := newMockMatchRepo(t)
	svc := newTestMatchingService(t, programs, registrations, matches)

	match, err := svc.CreateManualMatch(context.Background(), "prog-1", dto.ManualMatchRequest{
		MenteeRegistrationID: mentee.ID,
		MentorUserID:         "m1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MatchTypeManual, match.MatchType)
	assert.Equal(t, models.MatchStatusPending, match.Status)
	// Industry and programme line up exactly: 0.30*100 + 0.20*100.
	assert.Equal(t, 50.0, match.MatchScore)
	assert.Equal(t, "m1", match.MentorUserID)
}
