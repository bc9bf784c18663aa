package dto

import "time"

type Id struct {
	Id uint32 `json:"id"`
}

type SendRequest struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
}

type MessageStatus struct {
	Id          uint32     `json:"id"`
	To          string     `json:"to"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	TrackingId  string     `json:"trackingId,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
}

type BulkRecipient struct {
	Destination string `json:"destination"`
	RecipientId uint32 `json:"recipientId,omitempty"`
}

type BulkResult struct {
	Destination string `json:"destination"`
	Success     bool   `json:"success"`
	Skipped     bool   `json:"skipped,omitempty"`
	TrackingId  string `json:"trackingId,omitempty"`
	ErrorKind   string `json:"errorKind,omitempty"`
	Error       string `json:"error,omitempty"`
}

type BulkSummary struct {
	Total   int `json:"total"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type BulkReport struct {
	Results []BulkResult `json:"results"`
	Summary BulkSummary  `json:"summary"`
}

// Event is the business event an automation fires for.
type Event struct {
	RecipientId uint32            `json:"recipientId,omitempty"`
	Destination string            `json:"destination"`
	Vars        map[string]string `json:"vars,omitempty"`
}

type AutomationResult struct {
	Skipped    bool   `json:"skipped"`
	Reason     string `json:"reason,omitempty"`
	MessageId  uint32 `json:"messageId,omitempty"`
	TrackingId string `json:"trackingId,omitempty"`
}

// StatusCallback carries one asynchronous delivery-status update from the
// carrier.
type StatusCallback struct {
	TrackingId   string
	Status       string
	ErrorCode    string
	ErrorMessage string
}

// InboundMessage is a message a recipient sent back to us.
type InboundMessage struct {
	From       string
	To         string
	Body       string
	TrackingId string
}

type CampaignRequest struct {
	Name         string     `json:"name"`
	Message      string     `json:"message"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	SendNow      bool       `json:"sendNow,omitempty"`
}

// StatusEvent is pushed to the configured outbound webhook whenever a
// message changes state.
type StatusEvent struct {
	MessageId  uint32 `json:"messageId"`
	To         string `json:"to"`
	Status     string `json:"status"`
	TrackingId string `json:"trackingId,omitempty"`
	Error      string `json:"error,omitempty"`
}
