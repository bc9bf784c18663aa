package model

import "time"

const (
	CampaignDraft     string = "draft"
	CampaignScheduled        = "scheduled"
	CampaignSending          = "sending"
	CampaignCompleted        = "completed"
	CampaignFailed           = "failed"
)

type Campaign struct {
	Id             uint32 `storm:"id,increment"`
	Name           string
	Body           string
	Status         string    `storm:"index"`
	ScheduledFor   time.Time `storm:"index"`
	SentCount      int
	FailedCount    int
	RecipientCount int
	CreatedAt      time.Time `storm:"index"`
}
