package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cskr/pubsub"
	"github.com/salonbook/notifier/model"
	"github.com/salonbook/notifier/sms"
	"golang.org/x/time/rate"
)

const (
	PHONE  = "(555) 123-4567"
	PHONE2 = "(555) 987-6543"
	E164   = "+15551234567"
	E1642  = "+15559876543"
	FROM   = "+15550000001"
	TEXT   = "Hello World!"
)

type mockSender struct {
	calls []sentCall
	errs  []error //consumed per call, nil entry means success
	seq   int
}

type sentCall struct {
	dest string
	body string
}

func (m *mockSender) Send(ctx context.Context, dest, body string) (sms.Result, error) {
	m.calls = append(m.calls, sentCall{dest: dest, body: body})
	m.seq++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return sms.Result{}, err
		}
	}
	return sms.Result{TrackingId: fmt.Sprintf("SM-mock-%03d", m.seq)}, nil
}

type memMessageDao struct {
	nextId uint32
	msgs   map[uint32]model.Message
	order  []uint32
}

func newMemMessageDao() *memMessageDao {
	return &memMessageDao{msgs: make(map[uint32]model.Message)}
}

func (d *memMessageDao) Create(msg *model.Message) error {
	d.nextId++
	msg.Id = d.nextId
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	d.msgs[msg.Id] = *msg
	d.order = append(d.order, msg.Id)
	return nil
}

func (d *memMessageDao) Update(msg *model.Message) error {
	d.msgs[msg.Id] = *msg
	return nil
}

func (d *memMessageDao) GetOneById(id uint32) (model.Message, error) {
	msg, ok := d.msgs[id]
	if !ok {
		return model.Message{}, errNotFound
	}
	return msg, nil
}

func (d *memMessageDao) MatchByTrackingId(trackingId string) (model.Message, bool, error) {
	for _, id := range d.order {
		m := d.msgs[id]
		if m.TrackingId == "" {
			continue
		}
		if m.TrackingId == trackingId ||
			strings.Contains(m.TrackingId, trackingId) ||
			strings.Contains(trackingId, m.TrackingId) {
			return m, true, nil
		}
	}
	return model.Message{}, false, nil
}

func (d *memMessageDao) GetAllByCampaignId(campaignId uint32) ([]model.Message, error) {
	var out []model.Message
	for _, id := range d.order {
		if d.msgs[id].CampaignId == campaignId {
			out = append(out, d.msgs[id])
		}
	}
	return out, nil
}

func (d *memMessageDao) GetAll() ([]model.Message, error) {
	out := make([]model.Message, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.msgs[id])
	}
	return out, nil
}

func (d *memMessageDao) RemoveOlderThanDays(days int) error {
	cutoff := time.Now().Add(-24 * time.Duration(days) * time.Hour)
	kept := d.order[:0]
	for _, id := range d.order {
		if d.msgs[id].CreatedAt.Before(cutoff) {
			delete(d.msgs, id)
			continue
		}
		kept = append(kept, id)
	}
	d.order = kept
	return nil
}

type memRecipientDao struct {
	nextId uint32
	recs   map[string]model.Recipient
}

func newMemRecipientDao() *memRecipientDao {
	return &memRecipientDao{recs: make(map[string]model.Recipient)}
}

func (d *memRecipientDao) GetOrCreate(destination string) (model.Recipient, error) {
	if rec, ok := d.recs[destination]; ok {
		return rec, nil
	}
	d.nextId++
	rec := model.Recipient{Id: d.nextId, Destination: destination, CreatedAt: time.Now()}
	d.recs[destination] = rec
	return rec, nil
}

func (d *memRecipientDao) GetOneByDestination(destination string) (model.Recipient, error) {
	rec, ok := d.recs[destination]
	if !ok {
		return model.Recipient{}, errNotFound
	}
	return rec, nil
}

func (d *memRecipientDao) SetOptedOut(destination string, optedOut bool) error {
	rec, err := d.GetOrCreate(destination)
	if err != nil {
		return err
	}
	rec.OptedOut = optedOut
	d.recs[destination] = rec
	return nil
}

func (d *memRecipientDao) GetAll() ([]model.Recipient, error) {
	out := make([]model.Recipient, 0, len(d.recs))
	for _, rec := range d.recs {
		out = append(out, rec)
	}
	return out, nil
}

type memCampaignDao struct {
	nextId    uint32
	campaigns map[uint32]model.Campaign
}

func newMemCampaignDao() *memCampaignDao {
	return &memCampaignDao{campaigns: make(map[uint32]model.Campaign)}
}

func (d *memCampaignDao) Create(c *model.Campaign) error {
	d.nextId++
	c.Id = d.nextId
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	d.campaigns[c.Id] = *c
	return nil
}

func (d *memCampaignDao) Update(c *model.Campaign) error {
	d.campaigns[c.Id] = *c
	return nil
}

func (d *memCampaignDao) GetOneById(id uint32) (model.Campaign, error) {
	c, ok := d.campaigns[id]
	if !ok {
		return model.Campaign{}, errNotFound
	}
	return c, nil
}

func (d *memCampaignDao) GetDue(now time.Time) ([]model.Campaign, error) {
	var out []model.Campaign
	for _, c := range d.campaigns {
		if c.Status == model.CampaignScheduled && !c.ScheduledFor.After(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *memCampaignDao) GetAll() ([]model.Campaign, error) {
	out := make([]model.Campaign, 0, len(d.campaigns))
	for _, c := range d.campaigns {
		out = append(out, c)
	}
	return out, nil
}

type memTemplateDao struct {
	nextId uint32
	tpls   []model.Template
}

func (d *memTemplateDao) Save(t *model.Template) error {
	if t.Id == 0 {
		d.nextId++
		t.Id = d.nextId
		d.tpls = append(d.tpls, *t)
		return nil
	}
	for i := range d.tpls {
		if d.tpls[i].Id == t.Id {
			d.tpls[i] = *t
		}
	}
	return nil
}

func (d *memTemplateDao) GetActiveByType(automationType string) (model.Template, bool, error) {
	for _, t := range d.tpls {
		if t.Type == automationType && t.IsActive {
			return t, true, nil
		}
	}
	return model.Template{}, false, nil
}

func (d *memTemplateDao) GetAll() ([]model.Template, error) {
	return d.tpls, nil
}

type memRuleDao struct {
	nextId uint32
	rules  map[string]model.AutomationRule
}

func newMemRuleDao() *memRuleDao {
	return &memRuleDao{rules: make(map[string]model.AutomationRule)}
}

func (d *memRuleDao) Save(r *model.AutomationRule) error {
	if r.Id == 0 {
		d.nextId++
		r.Id = d.nextId
	}
	d.rules[r.Type] = *r
	return nil
}

func (d *memRuleDao) GetOneByType(automationType string) (model.AutomationRule, bool, error) {
	r, ok := d.rules[automationType]
	if !ok {
		return model.AutomationRule{}, false, nil
	}
	return r, true, nil
}

func (d *memRuleDao) GetAll() ([]model.AutomationRule, error) {
	out := make([]model.AutomationRule, 0, len(d.rules))
	for _, r := range d.rules {
		out = append(out, r)
	}
	return out, nil
}

type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

var errNotFound = notFoundError{}

// fixture wires a service over in-memory daos, an always-admitting rate
// limiter and a single-attempt retrier so no test ever sleeps.
type fixture struct {
	svc        service
	sender     *mockSender
	messages   *memMessageDao
	recipients *memRecipientDao
	campaigns  *memCampaignDao
	templates  *memTemplateDao
	rules      *memRuleDao
}

func newFixture() *fixture {
	f := &fixture{
		sender:     &mockSender{},
		messages:   newMemMessageDao(),
		recipients: newMemRecipientDao(),
		campaigns:  newMemCampaignDao(),
		templates:  &memTemplateDao{},
		rules:      newMemRuleDao(),
	}
	f.svc = service{
		sender:        f.sender,
		retrier:       sms.NewRetrier(f.sender, 1),
		messageDao:    f.messages,
		recipientDao:  f.recipients,
		campaignDao:   f.campaigns,
		templateDao:   f.templates,
		ruleDao:       f.rules,
		ps:            pubsub.New(10),
		httpClient:    &http.Client{Timeout: time.Second},
		pace:          rate.NewLimiter(rate.Inf, 0),
		from:          FROM,
		countryCode:   "1",
		messageMaxLen: 480,
	}
	return f
}
