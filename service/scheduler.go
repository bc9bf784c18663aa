package service

import (
	"context"
	"time"

	"github.com/salonbook/notifier/dao"
	"github.com/salonbook/notifier/model"
	"github.com/salonbook/notifier/service/dto"
	"go.uber.org/zap"
)

// Appointment is the scheduler's view of one appointment in the external
// scheduling store.
type Appointment struct {
	Id          uint32
	RecipientId uint32
	Destination string
	StartAt     time.Time
	Vars        map[string]string
}

// AppointmentSource is the external appointment store. StartingBetween and
// MissedBefore return only entries not yet notified for the given trigger;
// the Mark* calls persist that marker.
type AppointmentSource interface {
	StartingBetween(ctx context.Context, from, to time.Time, trigger string) ([]Appointment, error)
	MissedBefore(ctx context.Context, cutoff time.Time) ([]Appointment, error)
	MarkNotified(ctx context.Context, appointmentId uint32, trigger string) error
	MarkMissed(ctx context.Context, appointmentId uint32) error
}

// ClientRecord is the scheduler's view of one client in the external
// customer store.
type ClientRecord struct {
	Id          uint32
	RecipientId uint32
	Destination string
	Vars        map[string]string
}

// ClientSource is the external customer store. BirthdaysOn returns clients
// whose birth month/day equals the given day and who have not been
// congratulated that day yet.
type ClientSource interface {
	BirthdaysOn(ctx context.Context, day time.Time) ([]ClientRecord, error)
	MarkCongratulated(ctx context.Context, clientId uint32, day time.Time) error
}

// TickSummary reports what one scheduler tick did.
type TickSummary struct {
	Reminders int
	Missed    int
	Birthdays int
	Campaigns int
	Purged    bool
	Errors    []error
}

// Scheduler periodically queries time windows and fires automations,
// dispatches due campaigns and purges old messages.
//
// Delivery is at-least-once per (entity, trigger) per occurrence: the
// notified marker is written after the send, so a crash between the two
// duplicates a notification rather than losing it.
type Scheduler struct {
	svc           Service
	campaignDao   dao.CampaignDao
	messageDao    dao.MessageDao
	appointments  AppointmentSource
	clients       ClientSource
	interval      time.Duration
	retentionDays int

	now          func() time.Time
	lastPurgeDay string
}

func NewScheduler(
	svc Service,
	campaignDao dao.CampaignDao,
	messageDao dao.MessageDao,
	appointments AppointmentSource,
	clients ClientSource,
	interval time.Duration,
	retentionDays int,
) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Scheduler{
		svc:           svc,
		campaignDao:   campaignDao,
		messageDao:    messageDao,
		appointments:  appointments,
		clients:       clients,
		interval:      interval,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// Start launches the scheduler loop in a background goroutine and returns a
// stop function.
func (s *Scheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	return cancel
}

// RunOnce executes a single tick. A failure on one entity is collected and
// never prevents processing of the remaining entities.
func (s *Scheduler) RunOnce(ctx context.Context) TickSummary {
	var sum TickSummary
	now := s.now()

	s.runReminders(ctx, now, &sum)
	s.runMissed(ctx, now, &sum)
	s.runBirthdays(ctx, now, &sum)
	s.runCampaigns(ctx, now, &sum)
	s.runRetention(now, &sum)

	if len(sum.Errors) > 0 {
		zap.L().Warn("Scheduler tick finished with errors", zap.Int("errorCount", len(sum.Errors)))
	}
	return sum
}

func (s *Scheduler) runReminders(ctx context.Context, now time.Time, sum *TickSummary) {
	if s.appointments == nil {
		return
	}

	windows := []struct {
		trigger  string
		from, to time.Time
	}{
		{model.TriggerOneHourBefore, now, now.Add(time.Hour)},
		{model.TriggerTwentyFourHoursBefore, now.Add(24 * time.Hour), now.Add(25 * time.Hour)},
	}

	for _, w := range windows {
		appts, err := s.appointments.StartingBetween(ctx, w.from, w.to, w.trigger)
		if err != nil {
			sum.Errors = append(sum.Errors, err)
			continue
		}
		for _, a := range appts {
			res, err := s.svc.RunAutomation(ctx, w.trigger, eventFor(a.RecipientId, a.Destination, a.Vars))
			if err != nil {
				//no marker written: the entity is retried next tick
				sum.Errors = append(sum.Errors, err)
				continue
			}
			if !res.Skipped {
				sum.Reminders++
			}
			if err := s.appointments.MarkNotified(ctx, a.Id, w.trigger); err != nil {
				sum.Errors = append(sum.Errors, err)
			}
		}
	}
}

func (s *Scheduler) runMissed(ctx context.Context, now time.Time, sum *TickSummary) {
	if s.appointments == nil {
		return
	}

	appts, err := s.appointments.MissedBefore(ctx, now.Add(-time.Hour))
	if err != nil {
		sum.Errors = append(sum.Errors, err)
		return
	}
	for _, a := range appts {
		res, err := s.svc.RunAutomation(ctx, model.TriggerAppointmentMissed, eventFor(a.RecipientId, a.Destination, a.Vars))
		if err != nil {
			sum.Errors = append(sum.Errors, err)
			continue
		}
		if !res.Skipped {
			sum.Missed++
		}
		if err := s.appointments.MarkMissed(ctx, a.Id); err != nil {
			sum.Errors = append(sum.Errors, err)
		}
	}
}

func (s *Scheduler) runBirthdays(ctx context.Context, now time.Time, sum *TickSummary) {
	if s.clients == nil {
		return
	}

	clients, err := s.clients.BirthdaysOn(ctx, now)
	if err != nil {
		sum.Errors = append(sum.Errors, err)
		return
	}
	for _, c := range clients {
		res, err := s.svc.RunAutomation(ctx, model.TriggerBirthday, eventFor(c.RecipientId, c.Destination, c.Vars))
		if err != nil {
			sum.Errors = append(sum.Errors, err)
			continue
		}
		if !res.Skipped {
			sum.Birthdays++
		}
		if err := s.clients.MarkCongratulated(ctx, c.Id, now); err != nil {
			sum.Errors = append(sum.Errors, err)
		}
	}
}

func (s *Scheduler) runCampaigns(ctx context.Context, now time.Time, sum *TickSummary) {
	if s.campaignDao == nil {
		return
	}

	due, err := s.campaignDao.GetDue(now)
	if err != nil {
		sum.Errors = append(sum.Errors, err)
		return
	}
	for _, c := range due {
		if err := s.svc.DispatchCampaign(ctx, c.Id); err != nil {
			sum.Errors = append(sum.Errors, err)
			continue
		}
		sum.Campaigns++
	}
}

// runRetention purges messages older than the retention period, once per day
// inside a fixed early-morning window
func (s *Scheduler) runRetention(now time.Time, sum *TickSummary) {
	if s.messageDao == nil {
		return
	}
	if now.Hour() != 2 || now.Minute() >= 5 {
		return
	}

	day := now.Format("2006-01-02")
	if day == s.lastPurgeDay {
		return
	}

	if err := s.messageDao.RemoveOlderThanDays(s.retentionDays); err != nil {
		sum.Errors = append(sum.Errors, err)
		return
	}
	s.lastPurgeDay = day
	sum.Purged = true
	zap.L().Info("Purged messages past retention", zap.Int("retentionDays", s.retentionDays))
}

func eventFor(recipientId uint32, destination string, vars map[string]string) dto.Event {
	return dto.Event{RecipientId: recipientId, Destination: destination, Vars: vars}
}
