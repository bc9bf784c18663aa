package service

import (
	"context"
	"time"

	"github.com/salonbook/notifier/model"
	"github.com/salonbook/notifier/service/dto"
	"github.com/salonbook/notifier/sms"
	"go.uber.org/zap"
)

// SendBulk dispatches one message body to many recipients sequentially,
// pacing dispatches to smooth bursts. A per-recipient failure never aborts
// the batch; every recipient yields exactly one result entry. Canceling ctx
// stops the loop and returns the results collected so far.
func (s service) SendBulk(ctx context.Context, recipients []dto.BulkRecipient, body string, campaignId uint32) (dto.BulkReport, error) {
	report := dto.BulkReport{Results: make([]dto.BulkResult, 0, len(recipients))}

	for _, r := range recipients {
		if err := s.pace.Wait(ctx); err != nil {
			report.Summary.Total = len(report.Results)
			return report, err
		}

		res := s.sendOne(ctx, r, body, campaignId)
		report.Results = append(report.Results, res)

		switch {
		case res.Success:
			report.Summary.Sent++
		case res.Skipped:
			report.Summary.Skipped++
		default:
			report.Summary.Failed++
		}
	}

	report.Summary.Total = len(report.Results)
	return report, nil
}

func (s service) sendOne(ctx context.Context, r dto.BulkRecipient, body string, campaignId uint32) dto.BulkResult {
	out := dto.BulkResult{Destination: r.Destination}

	dest, err := sms.NormalizeDestination(r.Destination, s.countryCode)
	if err != nil {
		out.ErrorKind = string(sms.KindOf(err))
		out.Error = err.Error()
		//record the failure: every attempted recipient leaves a message row
		s.recordFailedMessage(r.Destination, r.RecipientId, body, campaignId, err)
		return out
	}

	rec, err := s.recipientDao.GetOrCreate(dest)
	if err != nil {
		out.ErrorKind = string(sms.ErrProviderError)
		out.Error = err.Error()
		return out
	}
	if rec.OptedOut {
		//never attempted, logged as skipped not failed
		out.Skipped = true
		out.ErrorKind = string(sms.ErrConsentDenied)
		out.Error = "recipient opted out"
		return out
	}

	msg := &model.Message{
		To:          dest,
		From:        s.from,
		Body:        body,
		Status:      model.StatusPending,
		RecipientId: rec.Id,
		CampaignId:  campaignId,
		CreatedAt:   time.Now(),
	}
	if err := s.messageDao.Create(msg); err != nil {
		out.ErrorKind = string(sms.ErrProviderError)
		out.Error = err.Error()
		return out
	}

	//bulk sends are not retried: backing off inside the loop would stall
	//every recipient behind the failing one
	res, sendErr := s.sender.Send(ctx, dest, body)
	s.finishMessage(msg, res, sendErr)

	if sendErr != nil {
		out.ErrorKind = string(sms.KindOf(sendErr))
		out.Error = sendErr.Error()
		return out
	}

	out.Success = true
	out.TrackingId = res.TrackingId
	return out
}

func (s service) recordFailedMessage(dest string, recipientId uint32, body string, campaignId uint32, sendErr error) {
	msg := &model.Message{
		To:          dest,
		From:        s.from,
		Body:        body,
		Status:      model.StatusFailed,
		ErrorDetail: sendErr.Error(),
		RecipientId: recipientId,
		CampaignId:  campaignId,
		CreatedAt:   time.Now(),
	}
	if err := s.messageDao.Create(msg); err != nil {
		zap.L().Error("Error recording failed message", zap.String("to", dest), zap.Error(err))
	}
}
