package dao

import (
	"github.com/salonbook/notifier/model"
)

type RuleDao interface {
	//Save persists or updates an automation rule
	Save(r *model.AutomationRule) error
	//GetOneByType returns the rule for an automation type, found=false when
	//no rule has been configured
	GetOneByType(automationType string) (model.AutomationRule, bool, error)
	//GetAll returns all rules
	GetAll() ([]model.AutomationRule, error)
}

func NewRuleDao(db Db) RuleDao {
	return &ruleDao{db: db}
}

type ruleDao struct {
	db Db
}

func (d ruleDao) Save(r *model.AutomationRule) error {
	return d.db.Save(r)
}

func (d ruleDao) GetOneByType(automationType string) (model.AutomationRule, bool, error) {
	var rule model.AutomationRule
	err := d.db.One("Type", automationType, &rule)
	if err != nil {
		if err.Error() == "not found" {
			return model.AutomationRule{}, false, nil
		}
		return model.AutomationRule{}, false, err
	}
	return rule, true, nil
}

func (d ruleDao) GetAll() (rules []model.AutomationRule, err error) {
	err = d.db.All(&rules)
	return
}
