package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumniportal/mentoring-api/internal/models"
)

var mentorTestColumns = []string{
	"id", "program_id", "user_id", "tenant_id", "status", "areas_of_mentoring",
	"industry", "programme", "skills", "capacity", "created_at", "updated_at",
}

var menteeTestColumns = []string{
	"id", "program_id", "user_id", "tenant_id", "status", "areas_of_mentoring",
	"target_industry", "programme", "skills", "preferred_mentors", "created_at", "updated_at",
}

func TestRegistrationRepositoryListApprovedMentors(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(mentorTestColumns).
		AddRow("reg-m1", "prog-1", "m1", "tenant-1", models.RegistrationStatusApproved,
			"{Career,Leadership}", "Fintech", "Finance", "{Go,SQL}", 5, now, now)

	mock.ExpectQuery(`FROM mentor_registrations WHERE program_id = \$1 AND status = \$2 ORDER BY user_id`).
		WithArgs("prog-1", models.RegistrationStatusApproved).
		WillReturnRows(rows)

	mentors, err := repo.ListApprovedMentors(context.Background(), "prog-1")
	require.NoError(t, err)
	require.Len(t, mentors, 1)
	assert.Equal(t, "m1", mentors[0].UserID)
	assert.Equal(t, []string{"Go", "SQL"}, []string(mentors[0].Skills))
	require.NotNil(t, mentors[0].Capacity)
	assert.Equal(t, 5, *mentors[0].Capacity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryListUnmatchedApprovedMentees(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(menteeTestColumns).
		AddRow("reg-s1", "prog-1", "s1", "tenant-1", models.RegistrationStatusApproved,
			"{Career}", "Banking", "Economics", "{Excel}", "{m1,m2}", now, now)

	mock.ExpectQuery(`FROM mentee_registrations mr`).
		WithArgs("prog-1", models.RegistrationStatusApproved, models.MatchStatusPending, models.MatchStatusAccepted).
		WillReturnRows(rows)

	mentees, err := repo.ListUnmatchedApprovedMentees(context.Background(), "prog-1")
	require.NoError(t, err)
	require.Len(t, mentees, 1)
	assert.Equal(t, []string{"m1", "m2"}, []string(mentees[0].PreferredMentors))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCountUnmatchedApprovedMentees(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM mentee_registrations mr`).
		WithArgs("prog-1", models.RegistrationStatusApproved, models.MatchStatusPending, models.MatchStatusAccepted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountUnmatchedApprovedMentees(context.Background(), "prog-1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryFindMentorByUser(t *testing.T) {
	db, mock, cleanup := newMatchRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(mentorTestColumns).
		AddRow("reg-m1", "prog-1", "m1", "tenant-1", models.RegistrationStatusApproved,
			"{Career}", "Software", "Computer Science", "{Go}", nil, now, now)

	mock.ExpectQuery(`FROM mentor_registrations WHERE program_id = \$1 AND user_id = \$2`).
		WithArgs("prog-1", "m1").
		WillReturnRows(rows)

	mentor, err := repo.FindMentorByUser(context.Background(), "prog-1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "reg-m1", mentor.ID)
	assert.Nil(t, mentor.Capacity)
	require.NoError(t, mock.ExpectationsWereMet())
}
