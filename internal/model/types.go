package model

// -----------------------------------------------------------------------------
// Store Types
// -----------------------------------------------------------------------------

// IDEntry is one row of an id/name store page.
type IDEntry struct {
	ID   string // Resource id used in the request URL
	Name string // Human-readable label, may be empty
}

// -----------------------------------------------------------------------------
// Pipeline Types
// -----------------------------------------------------------------------------

// WorkItem is a single logical request to replay.
// Created by the source in enumeration order and consumed exactly once by the dispatcher.
type WorkItem struct {
	Seq        int64  // Unique sequence id, embedded in the outbound frame prefix
	ResourceID string // Resource id from the store
	Name       string // Label carried from the store entry
	Page       int    // Store page the entry came from
}

// Entry returns the store entry this item was built from.
func (w WorkItem) Entry() IDEntry {
	return IDEntry{ID: w.ResourceID, Name: w.Name}
}
