package service

import (
	"context"
	"strings"
	"time"

	"github.com/salonbook/notifier/model"
	"github.com/salonbook/notifier/service/dto"
	"github.com/salonbook/notifier/sms"
	"github.com/salonbook/notifier/util"
	"go.uber.org/zap"
)

// carrierStatuses is the closed mapping from the carrier's delivery-status
// vocabulary to the internal status enum. Statuses missing here are logged
// and dropped rather than silently coerced.
var carrierStatuses = map[string]string{
	"queued":      model.StatusSent,
	"accepted":    model.StatusSent,
	"sending":     model.StatusSent,
	"sent":        model.StatusSent,
	"delivered":   model.StatusDelivered,
	"failed":      model.StatusFailed,
	"undelivered": model.StatusFailed,
}

const (
	keywordStop  = "STOP"
	keywordStart = "START"
	keywordHelp  = "HELP"

	optOutReply = "You have been unsubscribed and will receive no further messages. Reply START to resubscribe."
	optInReply  = "You have been resubscribed and will receive messages again. Reply STOP to unsubscribe."
	helpReply   = "Reply STOP to unsubscribe or START to resubscribe. Msg&data rates may apply."
)

// HandleStatusCallback reconciles one asynchronous delivery-status update
// against the local message record. Unknown tracking ids and unknown carrier
// statuses are logged and dropped; the webhook endpoint answers 200 either
// way.
func (s service) HandleStatusCallback(ctx context.Context, cb dto.StatusCallback) error {
	if util.IsBlank(cb.TrackingId) {
		zap.L().Warn("Delivery status without tracking id, dropped")
		return nil
	}

	msg, found, err := s.messageDao.MatchByTrackingId(cb.TrackingId)
	if err != nil {
		return err
	}
	if !found {
		zap.L().Info("Delivery status for unknown tracking id, dropped", zap.String("trackingId", cb.TrackingId))
		return nil
	}

	status, ok := carrierStatuses[strings.ToLower(strings.TrimSpace(cb.Status))]
	if !ok {
		zap.L().Warn("Unknown carrier delivery status, dropped",
			zap.String("trackingId", cb.TrackingId),
			zap.String("status", cb.Status),
		)
		return nil
	}

	//callbacks can arrive late and out of order; status only moves forward
	if !model.StatusAdvances(msg.Status, status) {
		return nil
	}

	now := time.Now()
	msg.Status = status
	switch status {
	case model.StatusSent:
		if msg.SentAt == nil {
			msg.SentAt = &now
		}
	case model.StatusDelivered:
		if msg.SentAt == nil {
			msg.SentAt = &now
		}
		msg.DeliveredAt = &now
	case model.StatusFailed:
		detail := cb.ErrorMessage
		if util.IsBlank(detail) {
			detail = "carrier reported failure"
		}
		if !util.IsBlank(cb.ErrorCode) {
			detail += " (code " + cb.ErrorCode + ")"
		}
		msg.ErrorDetail = detail
	}

	if err := s.messageDao.Update(&msg); err != nil {
		return err
	}
	s.publishStatus(msg)
	return nil
}

// HandleInbound processes a message a recipient sent back: consent keywords
// mutate the opt-out flag and are acknowledged; anything else is recorded as
// a received message with no further action.
func (s service) HandleInbound(ctx context.Context, in dto.InboundMessage) error {
	dest, err := sms.NormalizeDestination(in.From, s.countryCode)
	if err != nil {
		zap.L().Warn("Inbound message from malformed source, dropped", zap.String("from", in.From))
		return nil
	}

	switch strings.ToUpper(strings.TrimSpace(in.Body)) {
	case keywordStop:
		if err := s.recipientDao.SetOptedOut(dest, true); err != nil {
			return err
		}
		zap.L().Info("Recipient opted out", zap.String("destination", dest))
		//the acknowledgment is legally required: it bypasses the consent
		//check but stays subject to rate limiting
		s.sendServiceReply(ctx, dest, optOutReply)

	case keywordStart:
		if err := s.recipientDao.SetOptedOut(dest, false); err != nil {
			return err
		}
		zap.L().Info("Recipient opted in", zap.String("destination", dest))
		s.sendServiceReply(ctx, dest, optInReply)

	case keywordHelp:
		s.sendServiceReply(ctx, dest, helpReply)

	default:
		rec, err := s.recipientDao.GetOrCreate(dest)
		if err != nil {
			return err
		}
		to := in.To
		if util.IsBlank(to) {
			to = s.from
		}
		msg := &model.Message{
			To:          to,
			From:        dest,
			Body:        in.Body,
			Status:      model.StatusReceived,
			TrackingId:  in.TrackingId,
			RecipientId: rec.Id,
			CreatedAt:   time.Now(),
		}
		return s.messageDao.Create(msg)
	}

	return nil
}

func (s service) sendServiceReply(ctx context.Context, dest, text string) {
	res, err := s.sender.Send(ctx, dest, text)
	if err != nil {
		zap.L().Warn("Error sending service reply", zap.String("destination", dest), zap.Error(err))
		return
	}

	now := time.Now()
	msg := &model.Message{
		To:         dest,
		From:       s.from,
		Body:       text,
		Status:     model.StatusSent,
		TrackingId: res.TrackingId,
		CreatedAt:  now,
		SentAt:     &now,
	}
	if err := s.messageDao.Create(msg); err != nil {
		zap.L().Error("Error recording service reply", zap.String("destination", dest), zap.Error(err))
	}
}
