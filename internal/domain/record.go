package domain

import "time"

// Record provides the identity and timestamp fields shared by every stored entity.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecordID returns the record identifier.
func (r Record) RecordID() string {
	return r.ID
}

// Now returns the current time at the millisecond precision records are stored with.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (r *Record) InitTimestamps() {
	now := Now()
	r.CreatedAt = now
	r.UpdatedAt = now
}

// Touch updates the UpdatedAt timestamp to the current time.
func (r *Record) Touch() {
	r.UpdatedAt = Now()
}
