package model

import (
	"errors"
	"fmt"
)

var ErrInvalidRotationEntry = errors.New("invalid rotation entry")

// RotationEntry is the serving state of one bucket prefix.
// NextIndex is the position of the ad served by the next request.
// An empty ContinuationToken means the store had no further pages
// at the time of the last listing.
type RotationEntry struct {
	NextIndex         int
	Ads               []Ad
	ContinuationToken string
}

// NewRotationEntry returns the entry written after a page is fetched and its first ad served.
func NewRotationEntry(ads []Ad, continuationToken string) *RotationEntry {
	return &RotationEntry{
		NextIndex:         1,
		Ads:               ads,
		ContinuationToken: continuationToken,
	}
}

// Exhausted reports whether every ad of the cached page has been served.
func (e *RotationEntry) Exhausted() bool {
	return e.NextIndex >= len(e.Ads)
}

// HasMore reports whether the store has another page for this prefix.
func (e *RotationEntry) HasMore() bool {
	return e.ContinuationToken != ""
}

// Advanced returns a copy with the cursor moved forward by one.
func (e *RotationEntry) Advanced() *RotationEntry {
	return &RotationEntry{
		NextIndex:         e.NextIndex + 1,
		Ads:               e.Ads,
		ContinuationToken: e.ContinuationToken,
	}
}

// Validate checks 0 <= NextIndex <= len(Ads) and that the page is non-empty.
func (e *RotationEntry) Validate() error {
	if len(e.Ads) == 0 {
		return fmt.Errorf("%w: no ads", ErrInvalidRotationEntry)
	}
	if e.NextIndex < 0 || e.NextIndex > len(e.Ads) {
		return fmt.Errorf("%w: next index %d out of range [0, %d]", ErrInvalidRotationEntry, e.NextIndex, len(e.Ads))
	}
	return nil
}
