package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/alumniportal/mentoring-api/internal/models"
)

// ErrDuplicateActiveMatch is returned when the partial unique index on
// (program_id, mentee_user_id) rejects a second non-terminal match.
var ErrDuplicateActiveMatch = errors.New("mentee already holds an active match")

const uniqueViolationCode = "23505"

// MatchRepository handles persistence of matches.
type MatchRepository struct {
	db *sqlx.DB
}

// NewMatchRepository constructs the repository.
func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// BeginTxx starts a transaction for multi-insert matching runs.
func (r *MatchRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

const matchColumns = `id, program_id, tenant_id, mentor_user_id, mentee_user_id,
        mentor_registration_id, mentee_registration_id, status, match_type, match_score,
        matched_at, auto_reject_at, responded_at, rejection_reason`

// Create persists a new match using the provided executor, which may be a
// transaction. Unique-index violations surface as ErrDuplicateActiveMatch.
func (r *MatchRepository) Create(ctx context.Context, exec sqlx.ExtContext, match *models.Match) error {
	if match.ID == "" {
		match.ID = uuid.NewString()
	}
	const query = `INSERT INTO matches (id, program_id, tenant_id, mentor_user_id, mentee_user_id,
        mentor_registration_id, mentee_registration_id, status, match_type, match_score,
        matched_at, auto_reject_at, responded_at, rejection_reason)
        VALUES (:id, :program_id, :tenant_id, :mentor_user_id, :mentee_user_id,
        :mentor_registration_id, :mentee_registration_id, :status, :match_type, :match_score,
        :matched_at, :auto_reject_at, :responded_at, :rejection_reason)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, match); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode {
			return ErrDuplicateActiveMatch
		}
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

// FindByID returns a match by its ID.
func (r *MatchRepository) FindByID(ctx context.Context, id string) (*models.Match, error) {
	query := fmt.Sprintf(`SELECT %s FROM matches WHERE id = $1`, matchColumns)
	var match models.Match
	if err := r.db.GetContext(ctx, &match, query, id); err != nil {
		return nil, err
	}
	return &match, nil
}

// List returns matches for a program with mentor and mentee names resolved.
func (r *MatchRepository) List(ctx context.Context, filter models.MatchFilter) ([]models.MatchDetail, int, error) {
	base := `FROM matches m
LEFT JOIN users mu ON mu.id = m.mentor_user_id
LEFT JOIN users nu ON nu.id = m.mentee_user_id`
	conditions := []string{"m.program_id = $1"}
	args := []interface{}{filter.ProgramID}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("m.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.MatchType != "" {
		conditions = append(conditions, fmt.Sprintf("m.match_type = $%d", len(args)+1))
		args = append(args, filter.MatchType)
	}
	if filter.MentorUserID != "" {
		conditions = append(conditions, fmt.Sprintf("m.mentor_user_id = $%d", len(args)+1))
		args = append(args, filter.MentorUserID)
	}
	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"matched_at":  "m.matched_at",
		"match_score": "m.match_score",
		"mentor_name": "mu.full_name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "m.matched_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT m.id, m.program_id, m.tenant_id, m.mentor_user_id, m.mentee_user_id,
        m.mentor_registration_id, m.mentee_registration_id, m.status, m.match_type, m.match_score,
        m.matched_at, m.auto_reject_at, m.responded_at, m.rejection_reason,
        mu.full_name AS mentor_name, nu.full_name AS mentee_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var matches []models.MatchDetail
	if err := r.db.SelectContext(ctx, &matches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list matches: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count matches: %w", err)
	}
	return matches, total, nil
}

// ActiveCountsByMentor returns the number of pending plus accepted matches per
// mentor user within a program. Seeds the engine's capacity counters.
func (r *MatchRepository) ActiveCountsByMentor(ctx context.Context, programID string) (map[string]int, error) {
	const query = `SELECT mentor_user_id, COUNT(*) AS count FROM matches
        WHERE program_id = $1 AND status IN ($2, $3)
        GROUP BY mentor_user_id`
	rows, err := r.db.QueryxContext(ctx, query, programID, models.MatchStatusPending, models.MatchStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("count active matches per mentor: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var mentorID string
		var count int
		if err := rows.Scan(&mentorID, &count); err != nil {
			return nil, fmt.Errorf("scan mentor count: %w", err)
		}
		counts[mentorID] = count
	}
	return counts, rows.Err()
}

// ExistsActiveForMentee checks whether the mentee already holds a pending or
// accepted match within the program.
func (r *MatchRepository) ExistsActiveForMentee(ctx context.Context, programID, menteeUserID string) (bool, error) {
	const query = `SELECT 1 FROM matches WHERE program_id = $1 AND mentee_user_id = $2 AND status IN ($3, $4) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, programID, menteeUserID, models.MatchStatusPending, models.MatchStatusAccepted); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active match: %w", err)
	}
	return true, nil
}

// TransitionFromPending updates a pending match to a terminal status. Returns
// sql.ErrNoRows if the match is no longer pending, so concurrent responders
// and the sweep cannot double-fire a transition.
func (r *MatchRepository) TransitionFromPending(ctx context.Context, id string, status models.MatchStatus, respondedAt time.Time, reason *string) error {
	const query = `UPDATE matches SET status = $2, responded_at = $3, rejection_reason = $4
        WHERE id = $1 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, id, status, respondedAt, reason, models.MatchStatusPending)
	if err != nil {
		return fmt.Errorf("transition match: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition match rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListExpiredPending returns pending matches whose acceptance deadline has
// passed. A nil programID scans every program.
func (r *MatchRepository) ListExpiredPending(ctx context.Context, programID *string, now time.Time) ([]models.Match, error) {
	query := fmt.Sprintf(`SELECT %s FROM matches WHERE status = $1 AND auto_reject_at < $2`, matchColumns)
	args := []interface{}{models.MatchStatusPending, now}
	if programID != nil {
		query += fmt.Sprintf(" AND program_id = $%d", len(args)+1)
		args = append(args, *programID)
	}
	query += " ORDER BY auto_reject_at"

	var matches []models.Match
	if err := r.db.SelectContext(ctx, &matches, query, args...); err != nil {
		return nil, fmt.Errorf("list expired matches: %w", err)
	}
	return matches, nil
}

// StatusCounts returns match counts grouped by status and type for a program.
func (r *MatchRepository) StatusCounts(ctx context.Context, programID string) ([]models.MatchStatusCount, error) {
	const query = `SELECT status, match_type, COUNT(*) AS count FROM matches
        WHERE program_id = $1 GROUP BY status, match_type`
	var counts []models.MatchStatusCount
	if err := r.db.SelectContext(ctx, &counts, query, programID); err != nil {
		return nil, fmt.Errorf("count matches by status: %w", err)
	}
	return counts, nil
}

// AverageScore returns the mean match score across all matches of a program.
// Zero when the program has no matches.
func (r *MatchRepository) AverageScore(ctx context.Context, programID string) (float64, error) {
	const query = `SELECT COALESCE(AVG(match_score), 0) FROM matches WHERE program_id = $1`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, programID); err != nil {
		return 0, fmt.Errorf("average match score: %w", err)
	}
	return avg, nil
}
