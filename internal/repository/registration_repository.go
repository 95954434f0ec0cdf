package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/alumniportal/mentoring-api/internal/models"
)

// RegistrationRepository reads mentor and mentee registrations. Submission and
// review of registrations belong to the surrounding platform; the matching
// engine only consumes approved records.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const mentorColumns = `id, program_id, user_id, tenant_id, status, areas_of_mentoring,
        industry, programme, skills, capacity, created_at, updated_at`

const menteeColumns = `id, program_id, user_id, tenant_id, status, areas_of_mentoring,
        target_industry, programme, skills, preferred_mentors, created_at, updated_at`

// ListApprovedMentors returns all approved mentor registrations for a program.
func (r *RegistrationRepository) ListApprovedMentors(ctx context.Context, programID string) ([]models.MentorRegistration, error) {
	query := fmt.Sprintf(`SELECT %s FROM mentor_registrations WHERE program_id = $1 AND status = $2 ORDER BY user_id`, mentorColumns)
	var mentors []models.MentorRegistration
	if err := r.db.SelectContext(ctx, &mentors, query, programID, models.RegistrationStatusApproved); err != nil {
		return nil, fmt.Errorf("list approved mentors: %w", err)
	}
	return mentors, nil
}

// ListApprovedMentees returns all approved mentee registrations for a program
// in stable submission order.
func (r *RegistrationRepository) ListApprovedMentees(ctx context.Context, programID string) ([]models.MenteeRegistration, error) {
	query := fmt.Sprintf(`SELECT %s FROM mentee_registrations WHERE program_id = $1 AND status = $2 ORDER BY created_at, id`, menteeColumns)
	var mentees []models.MenteeRegistration
	if err := r.db.SelectContext(ctx, &mentees, query, programID, models.RegistrationStatusApproved); err != nil {
		return nil, fmt.Errorf("list approved mentees: %w", err)
	}
	return mentees, nil
}

// ListUnmatchedApprovedMentees returns approved mentees lacking a pending or
// accepted match within the program.
func (r *RegistrationRepository) ListUnmatchedApprovedMentees(ctx context.Context, programID string) ([]models.MenteeRegistration, error) {
	query := fmt.Sprintf(`SELECT %s FROM mentee_registrations mr
        WHERE mr.program_id = $1 AND mr.status = $2
        AND NOT EXISTS (
            SELECT 1 FROM matches m
            WHERE m.program_id = mr.program_id
              AND m.mentee_user_id = mr.user_id
              AND m.status IN ($3, $4)
        )
        ORDER BY mr.created_at, mr.id`, menteeColumns)
	var mentees []models.MenteeRegistration
	if err := r.db.SelectContext(ctx, &mentees, query, programID,
		models.RegistrationStatusApproved, models.MatchStatusPending, models.MatchStatusAccepted); err != nil {
		return nil, fmt.Errorf("list unmatched mentees: %w", err)
	}
	return mentees, nil
}

// CountUnmatchedApprovedMentees counts approved mentees without an active match.
func (r *RegistrationRepository) CountUnmatchedApprovedMentees(ctx context.Context, programID string) (int, error) {
	const query = `SELECT COUNT(*) FROM mentee_registrations mr
        WHERE mr.program_id = $1 AND mr.status = $2
        AND NOT EXISTS (
            SELECT 1 FROM matches m
            WHERE m.program_id = mr.program_id
              AND m.mentee_user_id = mr.user_id
              AND m.status IN ($3, $4)
        )`
	var count int
	if err := r.db.GetContext(ctx, &count, query, programID,
		models.RegistrationStatusApproved, models.MatchStatusPending, models.MatchStatusAccepted); err != nil {
		return 0, fmt.Errorf("count unmatched mentees: %w", err)
	}
	return count, nil
}

// FindMenteeByID returns a mentee registration by its ID.
func (r *RegistrationRepository) FindMenteeByID(ctx context.Context, id string) (*models.MenteeRegistration, error) {
	query := fmt.Sprintf(`SELECT %s FROM mentee_registrations WHERE id = $1`, menteeColumns)
	var mentee models.MenteeRegistration
	if err := r.db.GetContext(ctx, &mentee, query, id); err != nil {
		return nil, err
	}
	return &mentee, nil
}

// FindMentorByUser returns the mentor registration for a user within a program.
func (r *RegistrationRepository) FindMentorByUser(ctx context.Context, programID, userID string) (*models.MentorRegistration, error) {
	query := fmt.Sprintf(`SELECT %s FROM mentor_registrations WHERE program_id = $1 AND user_id = $2`, mentorColumns)
	var mentor models.MentorRegistration
	if err := r.db.GetContext(ctx, &mentor, query, programID, userID); err != nil {
		return nil, err
	}
	return &mentor, nil
}
