package model

const (
	TriggerAppointmentCreated      string = "appointment_created"
	TriggerOneHourBefore                  = "one_hour_before"
	TriggerTwentyFourHoursBefore          = "twenty_four_hours_before"
	TriggerAppointmentMissed              = "appointment_missed"
	TriggerBirthday                       = "birthday"
	TriggerFollowUp                       = "follow_up"
)

// TriggerTypes lists every automation trigger the engine knows about
var TriggerTypes = []string{
	TriggerAppointmentCreated,
	TriggerOneHourBefore,
	TriggerTwentyFourHoursBefore,
	TriggerAppointmentMissed,
	TriggerBirthday,
	TriggerFollowUp,
}

// AutomationRule holds the administrative toggle and optional template
// override for one trigger type. Absence of a rule means the trigger runs
// with defaults.
type AutomationRule struct {
	Id         uint32 `storm:"id,increment"`
	Type       string `storm:"unique"`
	Enabled    bool
	TemplateId uint32
	Settings   string
}
