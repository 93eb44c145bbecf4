package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ze-Austin/ze-school/internal/models"
	appErrors "github.com/Ze-Austin/ze-school/pkg/errors"
)

func newTranscriptFixture(report []models.GradeReportEntry) *TranscriptService {
	grades := newGradeFixture(&mockGradeRepo{report: report}, &mockEnrollmentReader{})
	return NewTranscriptService(grades, nil)
}

func TestTranscriptServiceCSV(t *testing.T) {
	svc := newTranscriptFixture([]models.GradeReportEntry{
		gradedEntry("c1", 91, "A"),
		ungradedEntry("c2"),
	})

	doc, err := svc.Export(context.Background(), "s1", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", doc.ContentType)
	assert.True(t, strings.HasSuffix(doc.FileName, ".csv"))

	content := string(doc.Content)
	assert.Contains(t, content, "Course,Percent,Letter")
	assert.Contains(t, content, "Course c1,91.0,A")
	assert.Contains(t, content, "Course c2,-,-")
	assert.Contains(t, content, "CGPA: 2.00")
}

func TestTranscriptServicePDF(t *testing.T) {
	svc := newTranscriptFixture([]models.GradeReportEntry{
		gradedEntry("c1", 85, "B"),
	})

	doc, err := svc.Export(context.Background(), "s1", FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, strings.HasSuffix(doc.FileName, ".pdf"))
	assert.True(t, strings.HasPrefix(string(doc.Content), "%PDF"))
}

func TestTranscriptServiceUnknownFormat(t *testing.T) {
	svc := newTranscriptFixture([]models.GradeReportEntry{gradedEntry("c1", 85, "B")})

	_, err := svc.Export(context.Background(), "s1", TranscriptFormat("xml"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTranscriptServiceNoEnrollments(t *testing.T) {
	svc := newTranscriptFixture(nil)

	_, err := svc.Export(context.Background(), "s1", FormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
