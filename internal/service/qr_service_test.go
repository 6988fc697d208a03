package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/clinic-attendance-api/pkg/qrtoken"
)

func newQRServiceAt(now *time.Time) *QRService {
	svc := NewQRService(qrtoken.NewSigner("kiosk-secret", 60, 70))
	svc.now = func() time.Time { return *now }
	return svc
}

func TestQRServiceIssueAndCheck(t *testing.T) {
	now := time.Unix(1_700_000_040, 0)
	svc := newQRServiceAt(&now)

	issued := svc.Issue()
	assert.Equal(t, 60, issued.WindowSeconds)
	assert.Equal(t, int64(1_700_000_040), issued.ServerNow)
	assert.Equal(t, int64(1_700_000_100), issued.ExpiresAt)
	assert.Equal(t, 60, issued.ExpiresIn)

	check := svc.Check(issued.Token)
	assert.True(t, check.Valid)
	assert.True(t, svc.Valid(issued.Token))

	now = now.Add(69 * time.Second)
	assert.True(t, svc.Check(issued.Token).Valid)

	now = now.Add(2 * time.Second)
	check = svc.Check(issued.Token)
	assert.False(t, check.Valid)
	assert.Equal(t, 0, check.ExpiresIn)
}

func TestQRServiceRejectsGarbage(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	svc := newQRServiceAt(&now)
	for _, token := range []string{"", "abc", "28333333.zzz", "-1.AAAA"} {
		assert.False(t, svc.Check(token).Valid, token)
	}
}
