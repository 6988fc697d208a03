// Package qrtoken issues and validates the rotating kiosk QR token.
//
// A token is a pure function of the wall-clock window index and a secret, so a
// display screen and the server derive the same value for the same window. No
// state is persisted.
package qrtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const payloadPrefix = "qrwin:"

// Issued describes a freshly issued token and the window it belongs to.
type Issued struct {
	Token         string
	ServerNow     int64
	ExpiresAt     int64
	ExpiresIn     int
	WindowSeconds int
}

// Signer derives window tokens from a shared secret.
type Signer struct {
	secret        []byte
	windowSeconds int64
	maxAgeSeconds int64
}

// NewSigner builds a signer. maxAgeSeconds should exceed windowSeconds so a
// token stays acceptable for a few seconds into the next window.
func NewSigner(secret string, windowSeconds, maxAgeSeconds int) *Signer {
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	if maxAgeSeconds <= 0 {
		maxAgeSeconds = windowSeconds + 10
	}
	return &Signer{
		secret:        []byte(secret),
		windowSeconds: int64(windowSeconds),
		maxAgeSeconds: int64(maxAgeSeconds),
	}
}

// WindowSeconds reports the rotation period.
func (s *Signer) WindowSeconds() int {
	return int(s.windowSeconds)
}

// WindowIndex returns floor(now / windowSeconds).
func (s *Signer) WindowIndex(now time.Time) int64 {
	return floorDiv(now.Unix(), s.windowSeconds)
}

// Issue returns the token for the window containing now.
func (s *Signer) Issue(now time.Time) Issued {
	window := s.WindowIndex(now)
	meta := s.Window(now)
	meta.Token = s.sign(window)
	return meta
}

// Window reports window timing for now without a token attached.
func (s *Signer) Window(now time.Time) Issued {
	window := s.WindowIndex(now)
	serverNow := now.Unix()
	expiresAt := (window + 1) * s.windowSeconds
	return Issued{
		ServerNow:     serverNow,
		ExpiresAt:     expiresAt,
		ExpiresIn:     int(expiresAt - serverNow),
		WindowSeconds: int(s.windowSeconds),
	}
}

// Validate reports whether token was issued by this signer and is at most
// maxAge seconds older than the start of its window. It never fails loudly.
func (s *Signer) Validate(token string, now time.Time) bool {
	_, ok := s.age(token, now)
	return ok
}

// RemainingValidity returns the whole seconds token remains acceptable, or 0.
func (s *Signer) RemainingValidity(token string, now time.Time) int {
	age, ok := s.age(token, now)
	if !ok {
		return 0
	}
	return int(s.maxAgeSeconds - age)
}

func (s *Signer) age(token string, now time.Time) (int64, bool) {
	window, err := s.parse(token)
	if err != nil {
		return 0, false
	}
	age := now.Unix() - window*s.windowSeconds
	if age < 0 || age > s.maxAgeSeconds {
		return 0, false
	}
	return age, true
}

func (s *Signer) parse(token string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid token format")
	}
	window, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || window < 0 {
		return 0, fmt.Errorf("invalid window")
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return 0, fmt.Errorf("decode signature: %w", err)
	}
	if !hmac.Equal(signature, s.mac(window)) {
		return 0, fmt.Errorf("invalid token signature")
	}
	return window, nil
}

func (s *Signer) sign(window int64) string {
	return strconv.FormatInt(window, 10) + "." + base64.RawURLEncoding.EncodeToString(s.mac(window))
}

func (s *Signer) mac(window int64) []byte {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(payloadPrefix + strconv.FormatInt(window, 10)))
	return h.Sum(nil)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
