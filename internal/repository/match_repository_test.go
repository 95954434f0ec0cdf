package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumniportal/mentoring-api/internal/models"
)

func newMatchRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestMatchRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	mock.ExpectExec("INSERT INTO matches").
		WillReturnResult(sqlmock.NewResult(0, 1))

	match := &models.Match{
		ProgramID:    "prog-1",
		TenantID:     "tenant-1",
		MentorUserID: "m1",
		MenteeUserID: "s1",
		Status:       models.MatchStatusPending,
		MatchType:    models.MatchTypeAlgorithm,
	}
	require.NoError(t, repo.Create(context.Background(), db, match))
	assert.NotEmpty(t, match.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryCreateDuplicateActive(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	mock.ExpectExec("INSERT INTO matches").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_matches_active_mentee"})

	match := &models.Match{ProgramID: "prog-1", MenteeUserID: "s1"}
	err := repo.Create(context.Background(), db, match)
	assert.ErrorIs(t, err, ErrDuplicateActiveMatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryTransitionFromPending(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE matches SET status = $2, responded_at = $3, rejection_reason = $4`)).
		WithArgs("match-1", models.MatchStatusAccepted, now, nil, models.MatchStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.TransitionFromPending(context.Background(), "match-1", models.MatchStatusAccepted, now, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryTransitionFromPendingRaced(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE matches SET status = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TransitionFromPending(context.Background(), "match-1", models.MatchStatusAutoRejected, now, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryActiveCountsByMentor(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	rows := sqlmock.NewRows([]string{"mentor_user_id", "count"}).
		AddRow("m1", 3).
		AddRow("m2", 1)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT mentor_user_id, COUNT(*) AS count FROM matches`)).
		WithArgs("prog-1", models.MatchStatusPending, models.MatchStatusAccepted).
		WillReturnRows(rows)

	counts, err := repo.ActiveCountsByMentor(context.Background(), "prog-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"m1": 3, "m2": 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryExistsActiveForMentee(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM matches WHERE program_id = $1 AND mentee_user_id = $2`)).
		WithArgs("prog-1", "s1", models.MatchStatusPending, models.MatchStatusAccepted).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsActiveForMentee(context.Background(), "prog-1", "s1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM matches WHERE program_id = $1 AND mentee_user_id = $2`)).
		WithArgs("prog-1", "s2", models.MatchStatusPending, models.MatchStatusAccepted).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsActiveForMentee(context.Background(), "prog-1", "s2")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryListExpiredPendingScoped(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.AddDate(0, 0, -1)
	rows := sqlmock.NewRows([]string{
		"id", "program_id", "tenant_id", "mentor_user_id", "mentee_user_id",
		"mentor_registration_id", "mentee_registration_id", "status", "match_type",
		"match_score", "matched_at", "auto_reject_at", "responded_at", "rejection_reason",
	}).AddRow("match-1", "prog-1", "tenant-1", "m1", "s1", "reg-m1", "reg-s1",
		models.MatchStatusPending, models.MatchTypeAlgorithm, 55.5,
		deadline.AddDate(0, 0, -3), deadline, nil, nil)

	mock.ExpectQuery(`FROM matches WHERE status = \$1 AND auto_reject_at < \$2 AND program_id = \$3`).
		WithArgs(models.MatchStatusPending, now, "prog-1").
		WillReturnRows(rows)

	programID := "prog-1"
	matches, err := repo.ListExpiredPending(context.Background(), &programID, now)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "match-1", matches[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryStatusCounts(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	rows := sqlmock.NewRows([]string{"status", "match_type", "count"}).
		AddRow(models.MatchStatusAccepted, models.MatchTypePreferred, 2).
		AddRow(models.MatchStatusPending, models.MatchTypeAlgorithm, 4)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, match_type, COUNT(*) AS count FROM matches`)).
		WithArgs("prog-1").
		WillReturnRows(rows)

	counts, err := repo.StatusCounts(context.Background(), "prog-1")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.MatchStatusAccepted, counts[0].Status)
	assert.Equal(t, 4, counts[1].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryAverageScoreEmpty(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(AVG(match_score), 0) FROM matches`)).
		WithArgs("prog-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	avg, err := repo.AverageScore(context.Background(), "prog-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "program_id", "tenant_id", "mentor_user_id", "mentee_user_id",
		"mentor_registration_id", "mentee_registration_id", "status", "match_type",
		"match_score", "matched_at", "auto_reject_at", "responded_at", "rejection_reason",
		"mentor_name", "mentee_name",
	}).AddRow("match-1", "prog-1", "tenant-1", "m1", "s1", "reg-m1", "reg-s1",
		models.MatchStatusAccepted, models.MatchTypePreferred, 80.0,
		time.Now(), time.Now(), nil, nil, "Mentor One", "Mentee One")

	mock.ExpectQuery(`SELECT m\.id,`).
		WithArgs("prog-1", models.MatchStatusAccepted).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM matches m`).
		WithArgs("prog-1", models.MatchStatusAccepted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	matches, total, err := repo.List(context.Background(), models.MatchFilter{
		ProgramID: "prog-1",
		Status:    models.MatchStatusAccepted,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, matches, 1)
	assert.Equal(t, "Mentor One", matches[0].MentorName)
	require.NoError(t, mock.ExpectationsWereMet())
}
