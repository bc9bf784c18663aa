package model

import "time"

const (
	//outbound message statuses
	StatusPending   string = "pending"
	StatusSent             = "sent"
	StatusDelivered        = "delivered"
	StatusFailed           = "failed"

	//terminal status for inbound messages, never reached from pending
	StatusReceived = "received"
)

// statusRank orders the forward-only status lattice pending -> sent -> {delivered, failed}
var statusRank = map[string]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusFailed:    2,
	StatusReceived:  2,
}

// StatusAdvances reports whether moving from one status to another goes forward in the lattice
func StatusAdvances(from, to string) bool {
	return statusRank[to] > statusRank[from]
}

type Message struct {
	Id             uint32 `storm:"id,increment"`
	To             string `storm:"index"`
	From           string
	Body           string
	Status         string `storm:"index"`
	TrackingId     string `storm:"index"`
	ErrorDetail    string
	RecipientId    uint32 `storm:"index"`
	CampaignId     uint32 `storm:"index"`
	AutomationType string
	CreatedAt      time.Time `storm:"index"`
	SentAt         *time.Time
	DeliveredAt    *time.Time
}
