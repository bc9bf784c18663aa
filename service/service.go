package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cskr/pubsub"
	"github.com/salonbook/notifier/dao"
	"github.com/salonbook/notifier/model"
	"github.com/salonbook/notifier/service/dto"
	"github.com/salonbook/notifier/sms"
	"github.com/salonbook/notifier/util"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type InvalidPayloadErr struct {
	message string
}

func (e *InvalidPayloadErr) Error() string {
	return e.message
}

func NewInvalidPayloadError(msg string) *InvalidPayloadErr {
	return &InvalidPayloadErr{message: msg}
}

const statusTopic = "status"

type Service interface {
	SendMessage(ctx context.Context, req dto.SendRequest) (dto.Id, error)
	CheckStatus(id uint32) (dto.MessageStatus, error)
	SendBulk(ctx context.Context, recipients []dto.BulkRecipient, body string, campaignId uint32) (dto.BulkReport, error)
	RunAutomation(ctx context.Context, trigger string, ev dto.Event) (dto.AutomationResult, error)
	HandleStatusCallback(ctx context.Context, cb dto.StatusCallback) error
	HandleInbound(ctx context.Context, in dto.InboundMessage) error
	CreateCampaign(ctx context.Context, req dto.CampaignRequest) (dto.Id, error)
	DispatchCampaign(ctx context.Context, id uint32) error
}

type service struct {
	sender        sms.Sender
	retrier       *sms.Retrier
	messageDao    dao.MessageDao
	recipientDao  dao.RecipientDao
	campaignDao   dao.CampaignDao
	templateDao   dao.TemplateDao
	ruleDao       dao.RuleDao
	ps            *pubsub.PubSub
	httpClient    *http.Client
	pace          *rate.Limiter
	from          string
	countryCode   string
	webhook       string
	messageMaxLen int
}

func NewService(
	sender sms.Sender,
	retrier *sms.Retrier,
	messageDao dao.MessageDao,
	recipientDao dao.RecipientDao,
	campaignDao dao.CampaignDao,
	templateDao dao.TemplateDao,
	ruleDao dao.RuleDao,
	from, countryCode, webhook string,
	messageMaxLen int,
) Service {
	if messageMaxLen <= 0 {
		messageMaxLen = 480
	}
	s := &service{
		sender:        sender,
		retrier:       retrier,
		messageDao:    messageDao,
		recipientDao:  recipientDao,
		campaignDao:   campaignDao,
		templateDao:   templateDao,
		ruleDao:       ruleDao,
		ps:            pubsub.New(100),
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		pace:          rate.NewLimiter(rate.Limit(10), 1), //~100ms between bulk dispatches
		from:          from,
		countryCode:   countryCode,
		webhook:       webhook,
		messageMaxLen: messageMaxLen,
	}

	go s.forwardStatusEvents()

	return s
}

func (s service) SendMessage(ctx context.Context, req dto.SendRequest) (dto.Id, error) {

	//overall message validation
	if util.IsBlank(req.Text) || util.IsBlank(req.Phone) {
		return dto.Id{}, NewInvalidPayloadError("Invalid message")
	}

	//check max length of sms
	if len([]rune(req.Text)) > s.messageMaxLen {
		return dto.Id{}, NewInvalidPayloadError("Message too long. Must be <= " + strconv.Itoa(s.messageMaxLen) + " symbols in length")
	}

	dest, err := sms.NormalizeDestination(req.Phone, s.countryCode)
	if err != nil {
		return dto.Id{}, err
	}

	rec, err := s.recipientDao.GetOrCreate(dest)
	if err != nil {
		return dto.Id{}, err
	}
	if rec.OptedOut {
		return dto.Id{}, sms.NewSendError(sms.ErrConsentDenied, "recipient "+dest+" opted out")
	}

	msg := &model.Message{
		To:          dest,
		From:        s.from,
		Body:        req.Text,
		Status:      model.StatusPending,
		RecipientId: rec.Id,
		CreatedAt:   time.Now(),
	}
	if err := s.messageDao.Create(msg); err != nil {
		return dto.Id{}, err
	}

	res, sendErr := s.retrier.Send(ctx, dest, req.Text)
	s.finishMessage(msg, res, sendErr)

	return dto.Id{Id: msg.Id}, sendErr
}

func (s service) CheckStatus(id uint32) (dto.MessageStatus, error) {
	msg, err := s.messageDao.GetOneById(id)
	if err != nil {
		return dto.MessageStatus{}, err
	}

	return dto.MessageStatus{
		Id:          msg.Id,
		To:          msg.To,
		Body:        msg.Body,
		Status:      msg.Status,
		TrackingId:  msg.TrackingId,
		Error:       msg.ErrorDetail,
		CreatedAt:   msg.CreatedAt,
		SentAt:      msg.SentAt,
		DeliveredAt: msg.DeliveredAt,
	}, nil
}

func (s service) CreateCampaign(ctx context.Context, req dto.CampaignRequest) (dto.Id, error) {
	if util.IsBlank(req.Name) || util.IsBlank(req.Message) {
		return dto.Id{}, NewInvalidPayloadError("Invalid campaign")
	}

	c := &model.Campaign{
		Name:      req.Name,
		Body:      req.Message,
		Status:    model.CampaignDraft,
		CreatedAt: time.Now(),
	}
	if req.ScheduledFor != nil {
		c.Status = model.CampaignScheduled
		c.ScheduledFor = *req.ScheduledFor
	}
	if req.SendNow {
		//the scheduler picks it up on its next tick
		c.Status = model.CampaignScheduled
		c.ScheduledFor = time.Now()
	}

	if err := s.campaignDao.Create(c); err != nil {
		return dto.Id{}, err
	}
	return dto.Id{Id: c.Id}, nil
}

func (s service) DispatchCampaign(ctx context.Context, id uint32) error {
	c, err := s.campaignDao.GetOneById(id)
	if err != nil {
		return err
	}
	if c.Status == model.CampaignSending || c.Status == model.CampaignCompleted {
		return fmt.Errorf("campaign %d is already %s", id, c.Status)
	}

	recs, err := s.recipientDao.GetAll()
	if err != nil {
		return err
	}
	targets := make([]dto.BulkRecipient, 0, len(recs))
	for _, r := range recs {
		if r.OptedOut {
			continue
		}
		targets = append(targets, dto.BulkRecipient{Destination: r.Destination, RecipientId: r.Id})
	}

	c.Status = model.CampaignSending
	c.RecipientCount = len(targets)
	if err := s.campaignDao.Update(&c); err != nil {
		return err
	}

	report, err := s.SendBulk(ctx, targets, c.Body, c.Id)

	c.SentCount = report.Summary.Sent
	c.FailedCount = report.Summary.Failed
	if err != nil || (report.Summary.Total > 0 && report.Summary.Sent == 0) {
		c.Status = model.CampaignFailed
	} else {
		c.Status = model.CampaignCompleted
	}
	if updErr := s.campaignDao.Update(&c); updErr != nil {
		zap.L().Error("Error updating campaign after dispatch", zap.Uint32("campaignId", c.Id), zap.Error(updErr))
	}

	zap.L().Info("Campaign dispatched",
		zap.Uint32("campaignId", c.Id),
		zap.String("status", c.Status),
		zap.Int("sent", c.SentCount),
		zap.Int("failed", c.FailedCount),
	)
	return err
}

// finishMessage records the outcome of a send attempt on the message row and
// publishes the status change.
func (s service) finishMessage(msg *model.Message, res sms.Result, sendErr error) {
	now := time.Now()
	if sendErr == nil {
		msg.Status = model.StatusSent
		msg.TrackingId = res.TrackingId
		msg.SentAt = &now
	} else {
		msg.Status = model.StatusFailed
		msg.ErrorDetail = sendErr.Error()
	}
	if err := s.messageDao.Update(msg); err != nil {
		zap.L().Error("Error updating message after send", zap.Uint32("messageId", msg.Id), zap.Error(err))
	}
	s.publishStatus(*msg)
}

func (s service) publishStatus(msg model.Message) {
	s.ps.TryPub(dto.StatusEvent{
		MessageId:  msg.Id,
		To:         msg.To,
		Status:     msg.Status,
		TrackingId: msg.TrackingId,
		Error:      msg.ErrorDetail,
	}, statusTopic)
}

// forwardStatusEvents pushes message state changes to the configured webhook
func (s service) forwardStatusEvents() {
	ch := s.ps.Sub(statusTopic)
	for val := range ch {
		ev, ok := val.(dto.StatusEvent)
		if !ok {
			continue
		}
		if util.IsBlank(s.webhook) {
			continue
		}

		body, err := json.Marshal(ev)
		if err != nil {
			zap.L().Error("Error marshaling status event", zap.Error(err))
			continue
		}

		req, err := http.NewRequest("POST", s.webhook, bytes.NewBuffer(body))
		if err != nil {
			zap.L().Error("Error calling web hook", zap.Error(err))
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			zap.L().Error("Error calling web hook", zap.Error(err))
			continue
		}
		resp.Body.Close()

		if !(resp.StatusCode >= 200 && resp.StatusCode <= 202) {
			zap.L().Warn("Webhook returned unexpected status", zap.String("status", resp.Status))
		}
	}
}
