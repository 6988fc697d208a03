package service

import (
	"time"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/pkg/qrtoken"
)

// QRService exposes the rotating kiosk token.
type QRService struct {
	signer *qrtoken.Signer
	now    func() time.Time
}

// NewQRService wraps a signer.
func NewQRService(signer *qrtoken.Signer) *QRService {
	return &QRService{signer: signer, now: time.Now}
}

// Issue returns the token for the current window.
func (s *QRService) Issue() dto.QRTokenResponse {
	issued := s.signer.Issue(s.now())
	return dto.QRTokenResponse{
		Token:         issued.Token,
		ServerNow:     issued.ServerNow,
		ExpiresAt:     issued.ExpiresAt,
		ExpiresIn:     issued.ExpiresIn,
		WindowSeconds: issued.WindowSeconds,
	}
}

// Check reports whether token is still acceptable. ExpiresIn is the remaining
// acceptance time, zero when invalid.
func (s *QRService) Check(token string) dto.QRCheckResponse {
	now := s.now()
	window := s.signer.Window(now)
	remaining := s.signer.RemainingValidity(token, now)
	return dto.QRCheckResponse{
		Valid:         s.signer.Validate(token, now),
		ExpiresIn:     remaining,
		ServerNow:     window.ServerNow,
		ExpiresAt:     window.ExpiresAt,
		WindowSeconds: window.WindowSeconds,
	}
}

// Valid reports whether token is acceptable right now.
func (s *QRService) Valid(token string) bool {
	return s.signer.Validate(token, s.now())
}
