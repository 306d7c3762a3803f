// Package stale derives the change-detection token a client holds
// against its cached cart view.
package stale

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/thalesgaldino/silvershop-api/internal/domain"
)

type Service struct {
	now func() time.Time
}

func New() *Service {
	return &Service{now: time.Now}
}

// NewWithClock pins the wall clock, for tests.
func NewWithClock(now func() time.Time) *Service {
	return &Service{now: now}
}

// Compute returns the current token. With a non-empty order the token is
// a digest of the order's last-modified time and identity, so it changes
// exactly when either does. With no order (or an empty one) it digests
// the current wall-clock second: two empty-cart requests in different
// seconds yield different tokens. That asymmetry is deliberate; an empty
// cart has no identity to pin the token to.
func (s *Service) Compute(o *domain.Order) string {
	if o == nil || len(o.Items) == 0 {
		return digest(strconv.FormatInt(s.now().Unix(), 10))
	}
	return digest(o.LastEdited.UTC().Format(time.RFC3339Nano) + strconv.FormatInt(o.ID, 10))
}

// IsStale reports whether the client's cached view is out of date.
func IsStale(clientHash, currentHash string) bool {
	return clientHash != currentHash
}

// Ping implements the echo protocol: the client gets the new token only
// when it differs from the one it sent, otherwise its own token comes
// back unchanged. Equality of request and response is the "nothing
// changed" signal; no separate flag is needed.
func Ping(clientHash, currentHash string) string {
	if IsStale(clientHash, currentHash) {
		return currentHash
	}
	return clientHash
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
