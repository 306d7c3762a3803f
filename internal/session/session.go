package session

import (
	"context"
	"errors"
)

// ErrNoValue is returned when a session key has never been set.
var ErrNoValue = errors.New("session: no value")

// Well-known session keys. List keys live in the lists package next to
// the reconciliation logic that owns them.
const (
	KeyCouponCode = "cart.couponcode"
	KeyCartHash   = "cart.hash"
)

// Store holds per-visitor state. Every call takes the session id
// explicitly; there is no ambient current session.
type Store interface {
	Get(ctx context.Context, sessionID, key string) (string, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID, key string) error
	GetIDs(ctx context.Context, sessionID, key string) ([]int64, error)
	SetIDs(ctx context.Context, sessionID, key string, ids []int64) error
}
