package dao

import (
	"time"

	"github.com/asdine/storm/v3/q"
	"github.com/salonbook/notifier/model"
)

type CampaignDao interface {
	//Create persists a new campaign and fills in its id
	Create(c *model.Campaign) error
	//Update overwrites an existing campaign record
	Update(c *model.Campaign) error
	//GetOneById returns a campaign by id
	GetOneById(id uint32) (model.Campaign, error)
	//GetDue returns scheduled campaigns whose ScheduledFor has elapsed
	GetDue(now time.Time) ([]model.Campaign, error)
	//GetAll returns all campaigns
	GetAll() ([]model.Campaign, error)
}

func NewCampaignDao(db Db) CampaignDao {
	return &campaignDao{db: db}
}

type campaignDao struct {
	db Db
}

func (d campaignDao) Create(c *model.Campaign) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	return d.db.Save(c)
}

func (d campaignDao) Update(c *model.Campaign) error {
	return d.db.Update(c)
}

func (d campaignDao) GetOneById(id uint32) (c model.Campaign, err error) {
	err = d.db.One("Id", id, &c)
	return
}

func (d campaignDao) GetDue(now time.Time) ([]model.Campaign, error) {
	var due []model.Campaign
	err := d.db.Select(q.Eq("Status", model.CampaignScheduled), q.Lte("ScheduledFor", now)).Find(&due)
	if err != nil && err.Error() == "not found" {
		return nil, nil
	}
	return due, err
}

func (d campaignDao) GetAll() (campaigns []model.Campaign, err error) {
	err = d.db.All(&campaigns)
	return
}
