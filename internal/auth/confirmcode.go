package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

const codeBytes = 10

// CodeService issues and verifies confirmation codes as a deterministic
// HMAC over (user id, activation flag, time bucket). No code is ever
// stored: flipping the activation flag changes the hash input, so every
// code issued before activation stops verifying on its own.
type CodeService struct {
	secret []byte
	step   time.Duration
	window int

	now func() time.Time
}

// NewCodeService builds a CodeService. step is the bucket width and ttl
// the total validity window; a code stays acceptable for ttl/step
// buckets after the one it was issued in.
func NewCodeService(secret string, step, ttl time.Duration) *CodeService {
	window := int(ttl / step)
	if window < 1 {
		window = 1
	}
	return &CodeService{
		secret: []byte(secret),
		step:   step,
		window: window,
		now:    time.Now,
	}
}

// Generate returns the code for the current time bucket.
func (s *CodeService) Generate(userID string, active bool) string {
	return s.codeAt(userID, active, s.bucket(s.now()))
}

// Verify recomputes the expected code for every bucket in the validity
// window and compares in constant time.
func (s *CodeService) Verify(userID string, active bool, code string) bool {
	current := s.bucket(s.now())
	match := false
	for i := 0; i < s.window; i++ {
		expected := s.codeAt(userID, active, current-int64(i))
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			match = true
		}
	}
	return match
}

func (s *CodeService) bucket(t time.Time) int64 {
	return t.Unix() / int64(s.step/time.Second)
}

func (s *CodeService) codeAt(userID string, active bool, bucket int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%t:%d", userID, active, bucket)
	return hex.EncodeToString(mac.Sum(nil)[:codeBytes])
}
