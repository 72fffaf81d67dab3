package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type IdempotencyState string

const (
	IdempotencyInProgress IdempotencyState = "in_progress"
	IdempotencyCompleted  IdempotencyState = "completed"
)

// IdempotencyRecord is the stored outcome of a request bearing an
// Idempotency-Key header.
type IdempotencyRecord struct {
	Key         string
	Fingerprint string
	State       IdempotencyState
	StatusCode  int
	Body        []byte
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired reports whether the record no longer short-circuits retries.
func (r *IdempotencyRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// HashKey turns a client token (or payload) into the stored key form.
func HashKey(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
