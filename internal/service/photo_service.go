package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
)

type photoTokenParser interface {
	Parse(token string, allowExpired bool) (ownerID, relPath string, expiresAt time.Time, err error)
}

type photoOpener interface {
	Open(filename string) (*os.File, error)
}

type eventLookup interface {
	FindEvent(ctx context.Context, id string) (*models.AttendanceEvent, error)
}

// PhotoDownload is an opened punch photo ready to stream.
type PhotoDownload struct {
	File      *os.File
	Filename  string
	Size      int64
	EventID   string
	ExpiresAt time.Time
}

// PhotoService resolves signed photo links issued on the dashboard.
type PhotoService struct {
	tokens photoTokenParser
	files  photoOpener
	events eventLookup
}

// NewPhotoService constructs a PhotoService.
func NewPhotoService(tokens photoTokenParser, files photoOpener, events eventLookup) *PhotoService {
	return &PhotoService{tokens: tokens, files: files, events: events}
}

// Resolve verifies token, checks that the event it names still carries the
// same photo, and opens the file. The caller closes File.
func (s *PhotoService) Resolve(ctx context.Context, token string) (*PhotoDownload, error) {
	eventID, relPath, expiresAt, err := s.tokens.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired photo link")
	}

	event, err := s.events.FindEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "photo not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.PhotoPath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "photo link does not match event")
	}

	file, err := s.files.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "photo not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open photo")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat photo")
	}
	return &PhotoDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Size:      info.Size(),
		EventID:   eventID,
		ExpiresAt: expiresAt,
	}, nil
}
