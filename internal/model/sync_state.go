package model

import "github.com/google/uuid"

// SyncState is the local replication bookkeeping carried by every syncable record.
// None of it travels over the wire.
type SyncState struct {
	IsSynced  bool  `json:"-"`
	IsDeleted bool  `json:"-"`
	Revision  int64 `json:"-"`
}

// SyncRevision returns the local revision counter the row had when it was read.
func (s SyncState) SyncRevision() int64 {
	return s.Revision
}

func pulledState(s SyncState) SyncState {
	s.IsSynced = true
	s.IsDeleted = false
	return s
}

// NewID returns a fresh random record identifier.
func NewID() uuid.UUID {
	return uuid.New()
}
