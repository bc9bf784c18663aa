package sms

import (
	"context"
	"errors"

	"github.com/twilio/twilio-go"
	twilioClient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// twilioErrorKinds is the closed mapping from carrier error codes to the
// internal taxonomy. Codes missing here are treated as transient provider
// errors and retried.
var twilioErrorKinds = map[int]ErrorKind{
	21211: ErrInvalidDestination, //invalid 'To' number
	21614: ErrInvalidDestination, //'To' is not a mobile number
	21217: ErrInvalidDestination, //out of region

	14107: ErrQuotaExceeded, //message rate limit exceeded
	20429: ErrQuotaExceeded, //too many requests
	21611: ErrQuotaExceeded, //message queue full

	21610: ErrUndeliverable, //recipient unsubscribed at carrier level
	30003: ErrUndeliverable, //unreachable handset
	30004: ErrUndeliverable, //message blocked
	30005: ErrUndeliverable, //unknown destination handset
	30006: ErrUndeliverable, //landline or unreachable carrier
}

// TwilioClient sends messages through the Twilio REST API.
type TwilioClient struct {
	client *twilio.RestClient
}

func NewTwilioClient(accountSid, authToken string) *TwilioClient {
	return &TwilioClient{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSid,
			Password: authToken,
		}),
	}
}

func (c *TwilioClient) Send(ctx context.Context, to, from, body string) (Result, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	msg, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return Result{}, mapCarrierError(err)
	}
	if msg.Sid == nil || *msg.Sid == "" {
		return Result{}, NewSendError(ErrProviderError, "carrier accepted message without a tracking id")
	}

	return Result{TrackingId: *msg.Sid}, nil
}

func mapCarrierError(err error) error {
	var rerr *twilioClient.TwilioRestError
	if !errors.As(err, &rerr) {
		return &SendError{Kind: ErrProviderError, Message: err.Error()}
	}
	kind, ok := twilioErrorKinds[rerr.Code]
	if !ok {
		kind = ErrProviderError
	}
	return &SendError{Kind: kind, Message: rerr.Message, Code: rerr.Code}
}
