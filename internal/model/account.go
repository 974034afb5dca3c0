package model

import "github.com/google/uuid"

// Account holds money in a single currency.
type Account struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
	SyncState
	ID uuid.UUID `json:"id"`
}

// SyncKey identifies the account for replication.
func (a Account) SyncKey() uuid.UUID {
	return a.ID
}

// Pulled returns a copy flagged as synced and not deleted.
func (a Account) Pulled() Account {
	a.SyncState = pulledState(a.SyncState)
	return a
}

// FindAccount returns the account with the given id, or nil.
func FindAccount(accounts []Account, id uuid.UUID) *Account {
	for i := range accounts {
		if accounts[i].ID == id {
			return &accounts[i]
		}
	}
	return nil
}
