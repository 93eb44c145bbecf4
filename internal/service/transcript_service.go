package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Ze-Austin/ze-school/pkg/export"
	appErrors "github.com/Ze-Austin/ze-school/pkg/errors"
)

// TranscriptFormat selects the export encoding.
type TranscriptFormat string

const (
	FormatCSV TranscriptFormat = "csv"
	FormatPDF TranscriptFormat = "pdf"
)

// TranscriptDocument is a rendered transcript ready to send.
type TranscriptDocument struct {
	FileName    string
	ContentType string
	Content     []byte
}

// TranscriptService renders a student's grade report as a downloadable file.
type TranscriptService struct {
	grades *GradeService
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewTranscriptService constructs a TranscriptService.
func NewTranscriptService(grades *GradeService, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{
		grades: grades,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var transcriptHeaders = []string{"Course", "Percent", "Letter"}

// Export renders the student's transcript in the requested format.
func (s *TranscriptService) Export(ctx context.Context, studentID string, format TranscriptFormat) (*TranscriptDocument, error) {
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	cgpa, err := s.grades.CGPA(ctx, studentID)
	if err != nil {
		return nil, err
	}
	entries, err := s.grades.Report(ctx, studentID)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Headers: transcriptHeaders,
		Rows:    make([]map[string]string, 0, len(entries)),
		Footer:  fmt.Sprintf("CGPA: %.2f", cgpa.CGPA),
	}
	for _, entry := range entries {
		row := map[string]string{
			"Course":  entry.CourseName,
			"Percent": "-",
			"Letter":  "-",
		}
		if entry.PercentGrade != nil {
			row["Percent"] = strconv.FormatFloat(*entry.PercentGrade, 'f', 1, 64)
		}
		if entry.LetterGrade != nil {
			row["Letter"] = *entry.LetterGrade
		}
		data.Rows = append(data.Rows, row)
	}

	stamp := time.Now().Format("20060102")
	doc := &TranscriptDocument{}
	switch format {
	case FormatCSV:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
		}
		doc.FileName = fmt.Sprintf("transcript_%s_%s.csv", studentID, stamp)
		doc.ContentType = "text/csv"
		doc.Content = content
	case FormatPDF:
		title := fmt.Sprintf("Transcript - %s", cgpa.StudentName)
		content, err := s.pdf.Render(data, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
		}
		doc.FileName = fmt.Sprintf("transcript_%s_%s.pdf", studentID, stamp)
		doc.ContentType = "application/pdf"
		doc.Content = content
	}

	s.logger.Info("transcript exported",
		zap.String("student_id", studentID),
		zap.String("format", string(format)),
	)
	return doc, nil
}
