package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/alumniportal/mentoring-api/internal/models"
	appErrors "github.com/alumniportal/mentoring-api/pkg/errors"
	"github.com/alumniportal/mentoring-api/pkg/export"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

const exportPageSize = 100

type matchLister interface {
	List(ctx context.Context, filter models.MatchFilter) ([]models.MatchDetail, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries the rendered bytes plus HTTP metadata.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders a program's match roster as CSV or PDF. Files stream
// straight back to the caller, nothing is persisted.
type ExportService struct {
	matches matchLister
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(matches matchLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{matches: matches, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ExportMatches collects every match for the program and renders it in the
// requested format.
func (s *ExportService) ExportMatches(ctx context.Context, programID string, format ExportFormat) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	dataset := export.Dataset{
		Headers: []string{"Match ID", "Mentor", "Mentee", "Status", "Type", "Score", "Matched At", "Responded At"},
	}
	page := 1
	for {
		matches, total, err := s.matches.List(ctx, models.MatchFilter{
			ProgramID: programID,
			Page:      page,
			PageSize:  exportPageSize,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load matches for export")
		}
		for _, m := range matches {
			respondedAt := ""
			if m.RespondedAt != nil {
				respondedAt = m.RespondedAt.UTC().Format(time.RFC3339)
			}
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Match ID":     m.ID,
				"Mentor":       m.MentorName,
				"Mentee":       m.MenteeName,
				"Status":       string(m.Status),
				"Type":         string(m.MatchType),
				"Score":        strconv.FormatFloat(m.MatchScore, 'f', 2, 64),
				"Matched At":   m.MatchedAt.UTC().Format(time.RFC3339),
				"Responded At": respondedAt,
			})
		}
		if len(matches) < exportPageSize || len(dataset.Rows) >= total {
			break
		}
		page++
	}

	stamp := s.now().UTC().Format("20060102-150405")
	var (
		payload []byte
		err     error
		result  ExportResult
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		result = ExportResult{
			Filename:    fmt.Sprintf("matches-%s-%s.csv", programID, stamp),
			ContentType: "text/csv",
		}
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Mentoring Matches %s", programID))
		result = ExportResult{
			Filename:    fmt.Sprintf("matches-%s-%s.pdf", programID, stamp),
			ContentType: "application/pdf",
		}
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	result.Payload = payload

	s.logger.Info("match export rendered",
		zap.String("program_id", programID),
		zap.String("format", string(format)),
		zap.Int("rows", len(dataset.Rows)),
	)
	return &result, nil
}
