package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/salonbook/notifier/model"
	"github.com/salonbook/notifier/service/dto"
	"github.com/salonbook/notifier/sms"
	"github.com/salonbook/notifier/util"
)

// defaultTemplates are used when no administrator-supplied template is active
// for a trigger type.
var defaultTemplates = map[string]string{
	model.TriggerAppointmentCreated:      "Hi {{firstName}}, your appointment at {{businessName}} on {{date}} at {{time}} is confirmed. Reply STOP to opt out.",
	model.TriggerOneHourBefore:           "Hi {{firstName}}, a reminder that your appointment at {{businessName}} starts at {{time}} today. See you soon!",
	model.TriggerTwentyFourHoursBefore:   "Hi {{firstName}}, a reminder that your appointment at {{businessName}} is tomorrow at {{time}}.",
	model.TriggerAppointmentMissed:       "Hi {{firstName}}, we missed you at {{businessName}} today. Reply or call us to reschedule.",
	model.TriggerBirthday:                "Happy birthday, {{firstName}}! All of us at {{businessName}} wish you a wonderful day.",
	model.TriggerFollowUp:                "Hi {{firstName}}, thank you for visiting {{businessName}}. We would love to see you again soon!",
}

var tokenRx = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// RenderTemplate substitutes {{name}} tokens from vars. Tokens without a
// matching variable render as empty string, never as an error and never as a
// literal leftover token.
func RenderTemplate(body string, vars map[string]string) string {
	return tokenRx.ReplaceAllStringFunc(body, func(tok string) string {
		name := tokenRx.FindStringSubmatch(tok)[1]
		return vars[name]
	})
}

// RunAutomation fires one trigger for one business event: checks the rule
// toggle and recipient consent, renders the template and delivers the
// message. It does not deduplicate; the scheduler prevents duplicate
// invocation per entity and occurrence.
func (s service) RunAutomation(ctx context.Context, trigger string, ev dto.Event) (dto.AutomationResult, error) {
	fallback, known := defaultTemplates[trigger]
	if !known {
		return dto.AutomationResult{}, fmt.Errorf("unknown automation type %q", trigger)
	}

	rule, found, err := s.ruleDao.GetOneByType(trigger)
	if err != nil {
		return dto.AutomationResult{}, err
	}
	if found && !rule.Enabled {
		return dto.AutomationResult{Skipped: true, Reason: "automation disabled"}, nil
	}

	dest, err := sms.NormalizeDestination(ev.Destination, s.countryCode)
	if err != nil {
		return dto.AutomationResult{}, err
	}

	rec, err := s.recipientDao.GetOrCreate(dest)
	if err != nil {
		return dto.AutomationResult{}, err
	}
	if rec.OptedOut {
		return dto.AutomationResult{Skipped: true, Reason: "recipient opted out"}, nil
	}

	//a missing or inactive template falls back to the built-in default
	body := fallback
	if tpl, ok, err := s.templateDao.GetActiveByType(trigger); err != nil {
		return dto.AutomationResult{}, err
	} else if ok && !util.IsBlank(tpl.Body) {
		body = tpl.Body
	}

	text := RenderTemplate(body, ev.Vars)

	msg := &model.Message{
		To:             dest,
		From:           s.from,
		Body:           text,
		Status:         model.StatusPending,
		RecipientId:    rec.Id,
		AutomationType: trigger,
		CreatedAt:      time.Now(),
	}
	if err := s.messageDao.Create(msg); err != nil {
		return dto.AutomationResult{}, err
	}

	res, sendErr := s.retrier.Send(ctx, dest, text)
	s.finishMessage(msg, res, sendErr)
	if sendErr != nil {
		return dto.AutomationResult{MessageId: msg.Id}, sendErr
	}

	return dto.AutomationResult{MessageId: msg.Id, TrackingId: res.TrackingId}, nil
}
