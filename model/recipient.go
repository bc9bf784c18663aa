package model

import "time"

// Recipient is the consent view of a destination. OptedOut is the single
// source of truth consulted before every send attempt.
type Recipient struct {
	Id          uint32 `storm:"id,increment"`
	Destination string `storm:"unique"`
	OptedOut    bool
	CreatedAt   time.Time `storm:"index"`
}
