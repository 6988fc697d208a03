package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
	"github.com/noah-isme/clinic-attendance-api/pkg/export"
	"github.com/noah-isme/clinic-attendance-api/pkg/storage"
)

const (
	monthLayout       = "2006-01"
	eventExportLimit  = 10000
	exportTimeLayout  = "2006-01-02 15:04:05"
	reportDefaultBase = "/api/v1"
)

// reportSource supplies the data behind report exports.
type reportSource interface {
	Period(ctx context.Context, from, to time.Time, divisionID *string) (Reconciliation, error)
	EventLog(ctx context.Context, from, to time.Time, limit int) ([]models.AttendanceEventDetail, error)
	Location() *time.Location
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	source  reportSource
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(source reportSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		source:  source,
		storage: files,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Generate builds the dataset for job, renders it and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	if base == "" {
		base = reportDefaultBase
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", base, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// ParseMonth resolves "YYYY-MM" into the first and last day of that month.
func ParseMonth(raw string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	first, err := time.ParseInLocation(monthLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("month must use YYYY-MM: %w", err)
	}
	return first, first.AddDate(0, 1, -1), nil
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	division := "all"
	if job.Params.DivisionID != nil && *job.Params.DivisionID != "" {
		division = sanitizeFilename(*job.Params.DivisionID)
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", job.Type, sanitizeFilename(job.Params.Month), division, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	from, to, err := ParseMonth(job.Params.Month, s.source.Location())
	if err != nil {
		return export.Dataset{}, "", err
	}
	switch job.Type {
	case models.ReportTypeMonthlyAttendance:
		return s.buildMonthlyDataset(ctx, from, to, job.Params.DivisionID)
	case models.ReportTypeEventLog:
		return s.buildEventDataset(ctx, from, to)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

var monthlyHeaders = []string{"Employee", "Scheduled", "Attended", "On Time", "Late", "No Show", "Covered Only", "Attendance (%)", "On Time (%)", "Late (%)", "No Show (%)"}

func (s *ExportService) buildMonthlyDataset(ctx context.Context, from, to time.Time, divisionID *string) (export.Dataset, string, error) {
	result, err := s.source.Period(ctx, from, to, divisionID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(result.PerEmployee)+1)
	for _, row := range result.PerEmployee {
		rows = append(rows, kpiRow(row.EmployeeName, row.KPI))
	}
	rows = append(rows, kpiRow("TOTAL", result.Totals))

	title := fmt.Sprintf("Monthly Attendance %s", from.Format(monthLayout))
	return export.Dataset{Headers: monthlyHeaders, Rows: rows}, title, nil
}

func kpiRow(name string, k KPI) map[string]string {
	return map[string]string{
		"Employee":       name,
		"Scheduled":      strconv.Itoa(k.Scheduled),
		"Attended":       strconv.Itoa(k.Attended),
		"On Time":        strconv.Itoa(k.OnTime),
		"Late":           strconv.Itoa(k.Late),
		"No Show":        strconv.Itoa(k.NoShow),
		"Covered Only":   strconv.Itoa(k.CoveredOnly),
		"Attendance (%)": formatRate(k.AttendanceRate),
		"On Time (%)":    formatRate(k.OnTimeRate),
		"Late (%)":       formatRate(k.LateRate),
		"No Show (%)":    formatRate(k.NoShowRate),
	}
}

var eventHeaders = []string{"Time", "Action", "Employee", "Witness", "Proxy", "Client IP", "Note"}

func (s *ExportService) buildEventDataset(ctx context.Context, from, to time.Time) (export.Dataset, string, error) {
	events, err := s.source.EventLog(ctx, from, to.AddDate(0, 0, 1), eventExportLimit)
	if err != nil {
		return export.Dataset{}, "", err
	}
	loc := s.source.Location()
	rows := make([]map[string]string, 0, len(events))
	// Oldest first reads naturally in a printed log.
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		proxy := "no"
		if ev.IsProxy {
			proxy = "yes"
		}
		rows = append(rows, map[string]string{
			"Time":      ev.CreatedAt.In(loc).Format(exportTimeLayout),
			"Action":    string(ev.EventType),
			"Employee":  ev.SubjectName,
			"Witness":   deref(ev.WitnessName),
			"Proxy":     proxy,
			"Client IP": deref(ev.ClientIP),
			"Note":      ev.Note,
		})
	}
	title := fmt.Sprintf("Attendance Event Log %s", from.Format(monthLayout))
	return export.Dataset{Headers: eventHeaders, Rows: rows}, title, nil
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
