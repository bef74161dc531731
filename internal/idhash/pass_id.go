// Package idhash computes deterministic identifiers for audit records.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"wallet-roster/internal/domain"
)

// ComputePassID computes a deterministic reconciliation pass id using SHA256.
// Formula: SHA256(mode|started_at|snapshot_size)
// Returns hex-encoded hash (64 characters).
func ComputePassID(mode domain.Mode, startedAt int64, snapshotSize int) string {
	data := fmt.Sprintf("%s|%d|%d", mode.String(), startedAt, snapshotSize)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
