package domain

import "time"

// StatusHistoryEntry is an immutable audit record of one status change.
// Entries exist only for transitions, never for card creation. They
// cascade-delete with their card and are never mutated.
type StatusHistoryEntry struct {
	ID        int64
	CardID    int64
	OldStatus CardStatus
	NewStatus CardStatus
	ChangedAt time.Time
}
