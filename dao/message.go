package dao

import (
	"strings"
	"time"

	"github.com/asdine/storm/v3/q"
	"github.com/salonbook/notifier/model"
)

type MessageDao interface {
	//Create persists a new message record and fills in its id
	Create(msg *model.Message) error
	//Update overwrites an existing message record
	Update(msg *model.Message) error
	//GetOneById returns a message by id
	GetOneById(id uint32) (model.Message, error)
	//MatchByTrackingId returns the message whose tracking id equals the given
	//id, or failing that contains it / is contained by it (carriers may wrap
	//or prefix the id they echo back)
	MatchByTrackingId(trackingId string) (model.Message, bool, error)
	//GetAllByCampaignId returns all messages belonging to a campaign
	GetAllByCampaignId(campaignId uint32) ([]model.Message, error)
	//GetAll returns all messages
	GetAll() ([]model.Message, error)
	//RemoveOlderThanDays removes all messages older than {days}
	RemoveOlderThanDays(days int) error
}

func NewMessageDao(db Db) MessageDao {
	return &messageDao{db: db}
}

type messageDao struct {
	db Db
}

func (d messageDao) Create(msg *model.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return d.db.Save(msg)
}

func (d messageDao) Update(msg *model.Message) error {
	return d.db.Update(msg)
}

func (d messageDao) GetOneById(id uint32) (msg model.Message, err error) {
	err = d.db.One("Id", id, &msg)
	return
}

func (d messageDao) MatchByTrackingId(trackingId string) (model.Message, bool, error) {
	var msg model.Message
	err := d.db.One("TrackingId", trackingId, &msg)
	if err == nil {
		return msg, true, nil
	}
	if err.Error() != "not found" {
		return model.Message{}, false, err
	}

	//fall back to substring match to tolerate wrapped ids
	all, err := d.GetAll()
	if err != nil {
		return model.Message{}, false, err
	}
	for _, m := range all {
		if m.TrackingId == "" {
			continue
		}
		if strings.Contains(m.TrackingId, trackingId) || strings.Contains(trackingId, m.TrackingId) {
			return m, true, nil
		}
	}
	return model.Message{}, false, nil
}

func (d messageDao) GetAllByCampaignId(campaignId uint32) (msgs []model.Message, err error) {
	err = d.db.Find("CampaignId", campaignId, &msgs)
	if err != nil && err.Error() == "not found" {
		return nil, nil
	}
	return
}

func (d messageDao) GetAll() (msgs []model.Message, err error) {
	err = d.db.All(&msgs)
	return
}

func (d messageDao) RemoveOlderThanDays(days int) error {
	err := d.db.Select(q.Lt("CreatedAt", time.Now().Add(-24*time.Duration(days)*time.Hour))).Delete(&model.Message{})
	if err != nil && err.Error() != "not found" {
		return err
	}
	return nil
}
