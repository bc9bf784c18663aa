package sms

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const nullClientNote = "carrier not configured, message logged but not sent"

// NullClient is the degraded delivery mode used when no carrier credentials
// are configured. It logs the message and returns a locally generated
// placeholder tracking id. It never fails, so automation flows stay
// exercisable without a live carrier.
type NullClient struct{}

func NewNullClient() *NullClient {
	return &NullClient{}
}

func (c *NullClient) Send(ctx context.Context, to, from, body string) (Result, error) {
	trackingId := "local-" + uuid.NewString()
	zap.L().Info(nullClientNote,
		zap.String("to", to),
		zap.String("from", from),
		zap.String("trackingId", trackingId),
		zap.Int("bodyLen", len(body)),
	)
	return Result{TrackingId: trackingId, Note: nullClientNote}, nil
}
