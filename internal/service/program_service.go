package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/alumniportal/mentoring-api/internal/models"
	appErrors "github.com/alumniportal/mentoring-api/pkg/errors"
)

type programStore interface {
	FindByID(ctx context.Context, id string) (*models.MentoringProgram, error)
	List(ctx context.Context, filter models.ProgramFilter) ([]models.MentoringProgram, int, error)
}

// ProgramService exposes read access to mentoring programs.
type ProgramService struct {
	programs programStore
	logger   *zap.Logger
}

// NewProgramService constructs a ProgramService.
func NewProgramService(programs programStore, logger *zap.Logger) *ProgramService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramService{programs: programs, logger: logger}
}

// GetProgram fetches a single program.
func (s *ProgramService) GetProgram(ctx context.Context, id string) (*models.MentoringProgram, error) {
	program, err := s.programs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

// ListPrograms returns programs for the tenant with pagination.
func (s *ProgramService) ListPrograms(ctx context.Context, filter models.ProgramFilter) ([]models.MentoringProgram, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	programs, total, err := s.programs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	return programs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}
