package dao

import (
	"github.com/asdine/storm/v3/q"
	"github.com/salonbook/notifier/model"
)

type TemplateDao interface {
	//Save persists or updates a template
	Save(t *model.Template) error
	//GetActiveByType returns the active template for an automation type,
	//found=false when none is configured
	GetActiveByType(automationType string) (model.Template, bool, error)
	//GetAll returns all templates
	GetAll() ([]model.Template, error)
}

func NewTemplateDao(db Db) TemplateDao {
	return &templateDao{db: db}
}

type templateDao struct {
	db Db
}

func (d templateDao) Save(t *model.Template) error {
	return d.db.Save(t)
}

func (d templateDao) GetActiveByType(automationType string) (model.Template, bool, error) {
	var tpls []model.Template
	err := d.db.Select(q.Eq("Type", automationType), q.Eq("IsActive", true)).Find(&tpls)
	if err != nil {
		if err.Error() == "not found" {
			return model.Template{}, false, nil
		}
		return model.Template{}, false, err
	}
	if len(tpls) == 0 {
		return model.Template{}, false, nil
	}
	return tpls[0], true, nil
}

func (d templateDao) GetAll() (tpls []model.Template, err error) {
	err = d.db.All(&tpls)
	return
}
