package dao

import (
	"time"

	"github.com/salonbook/notifier/model"
)

type RecipientDao interface {
	//GetOrCreate returns the recipient for the given canonical destination,
	//creating an opted-in record when none exists
	GetOrCreate(destination string) (model.Recipient, error)
	//GetOneByDestination returns the recipient for the given destination
	GetOneByDestination(destination string) (model.Recipient, error)
	//SetOptedOut flips the consent flag for the given destination
	SetOptedOut(destination string, optedOut bool) error
	//GetAll returns all recipients
	GetAll() ([]model.Recipient, error)
}

func NewRecipientDao(db Db) RecipientDao {
	return &recipientDao{db: db}
}

type recipientDao struct {
	db Db
}

func (r recipientDao) GetOrCreate(destination string) (model.Recipient, error) {
	var rec model.Recipient
	err := r.db.One("Destination", destination, &rec)
	if err == nil {
		return rec, nil
	}
	if err.Error() != "not found" {
		return model.Recipient{}, err
	}

	rec = model.Recipient{Destination: destination, OptedOut: false, CreatedAt: time.Now()}
	err = r.db.Save(&rec)
	return rec, err
}

func (r recipientDao) GetOneByDestination(destination string) (rec model.Recipient, err error) {
	err = r.db.One("Destination", destination, &rec)
	return
}

func (r recipientDao) SetOptedOut(destination string, optedOut bool) error {
	rec, err := r.GetOrCreate(destination)
	if err != nil {
		return err
	}
	//UpdateField persists zero values, which plain Update would skip
	return r.db.UpdateField(&model.Recipient{Id: rec.Id}, "OptedOut", optedOut)
}

func (r recipientDao) GetAll() (recs []model.Recipient, err error) {
	err = r.db.All(&recs)
	return
}
