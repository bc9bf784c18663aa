package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/salonbook/notifier/service"
	"github.com/salonbook/notifier/service/dto"
	"github.com/salonbook/notifier/sms"
	"go.uber.org/zap"
)

const emptyTwiml = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// SendSms godoc
// @Summary Send sms
// @Description Sends a single sms message to the specified phone
// @Accept json
// @Produce json
// @Param sms body dto.SendRequest true "Message"
// @Success 200 {object} dto.Id
// @Failure 400 "error description"
// @Router /sms [post]
func GetSendSmsFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(dto.SendRequest)
		if err := c.Bind(req); err != nil {
			return err
		}

		id, err := srv.SendMessage(c.Request().Context(), *req)
		if err != nil {
			return errorResponse(c, err)
		}

		return c.JSON(http.StatusOK, id)
	}
}

// CheckSms godoc
// @Summary Check sms
// @Description Checks sms message delivery status
// @Produce json
// @Param id path int true "Message id"
// @Success 200 {object} dto.MessageStatus
// @Failure 404 "error description"
// @Router /sms/{id} [get]
func GetCheckSmsFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id64, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			return err
		}

		status, err := srv.CheckStatus(uint32(id64))
		if err != nil {
			if err.Error() == "not found" {
				return c.String(http.StatusNotFound, "Message not found "+c.Param("id"))
			}
			return errorResponse(c, err)
		}

		return c.JSON(http.StatusOK, status)
	}
}

// CreateCampaign godoc
// @Summary Create campaign
// @Description Creates a bulk campaign, optionally scheduled or sent now
// @Accept json
// @Produce json
// @Param campaign body dto.CampaignRequest true "Campaign"
// @Success 200 {object} dto.Id
// @Failure 400 "error description"
// @Router /campaigns [post]
func GetCreateCampaignFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(dto.CampaignRequest)
		if err := c.Bind(req); err != nil {
			return err
		}

		id, err := srv.CreateCampaign(c.Request().Context(), *req)
		if err != nil {
			return errorResponse(c, err)
		}

		return c.JSON(http.StatusOK, id)
	}
}

// SendCampaign godoc
// @Summary Dispatch campaign
// @Description Starts dispatching a campaign to all opted-in recipients
// @Produce json
// @Param id path int true "Campaign id"
// @Success 202 "accepted"
// @Failure 404 "error description"
// @Router /campaigns/{id}/send [post]
func GetSendCampaignFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		id64, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			return err
		}

		//dispatching can take a while, run it detached from the request;
		//the request context dies with the response, so use a fresh one
		go func(id uint32) {
			if err := srv.DispatchCampaign(context.Background(), id); err != nil {
				zap.L().Error("Error dispatching campaign", zap.Uint32("campaignId", id), zap.Error(err))
			}
		}(uint32(id64))

		return c.NoContent(http.StatusAccepted)
	}
}

// RunAutomation godoc
// @Summary Run automation
// @Description Fires one automation trigger for a business event
// @Accept json
// @Produce json
// @Param type path string true "Automation type"
// @Param event body dto.Event true "Event"
// @Success 200 {object} dto.AutomationResult
// @Failure 400 "error description"
// @Router /automations/{type}/run [post]
func GetRunAutomationFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ev := new(dto.Event)
		if err := c.Bind(ev); err != nil {
			return err
		}

		res, err := srv.RunAutomation(c.Request().Context(), c.Param("type"), *ev)
		if err != nil {
			return errorResponse(c, err)
		}

		return c.JSON(http.StatusOK, res)
	}
}

// StatusWebhook godoc
// @Summary Carrier delivery-status callback
// @Description Accepts the carrier's asynchronous delivery-status callback; always answers 200
// @Accept x-www-form-urlencoded
// @Produce xml
// @Success 200 "empty TwiML response"
// @Router /webhooks/status [post]
func GetStatusWebhookFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		cb := dto.StatusCallback{
			TrackingId:   c.FormValue("MessageSid"),
			Status:       c.FormValue("MessageStatus"),
			ErrorCode:    c.FormValue("ErrorCode"),
			ErrorMessage: c.FormValue("ErrorMessage"),
		}

		//internal failures must not make the carrier retry-storm us
		if err := srv.HandleStatusCallback(c.Request().Context(), cb); err != nil {
			zap.L().Error("Error handling delivery status callback", zap.String("trackingId", cb.TrackingId), zap.Error(err))
		}

		return c.Blob(http.StatusOK, "application/xml", []byte(emptyTwiml))
	}
}

// InboundWebhook godoc
// @Summary Carrier inbound-message callback
// @Description Accepts inbound messages (STOP/START/HELP keywords and replies); always answers 200
// @Accept x-www-form-urlencoded
// @Produce xml
// @Success 200 "empty TwiML response"
// @Router /webhooks/inbound [post]
func GetInboundWebhookFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		in := dto.InboundMessage{
			From:       c.FormValue("From"),
			To:         c.FormValue("To"),
			Body:       c.FormValue("Body"),
			TrackingId: c.FormValue("MessageSid"),
		}

		if err := srv.HandleInbound(c.Request().Context(), in); err != nil {
			zap.L().Error("Error handling inbound message", zap.String("from", in.From), zap.Error(err))
		}

		return c.Blob(http.StatusOK, "application/xml", []byte(emptyTwiml))
	}
}

func errorResponse(c echo.Context, err error) error {
	var serr *sms.SendError
	if errors.As(err, &serr) {
		switch serr.Kind {
		case sms.ErrInvalidDestination:
			return c.String(http.StatusBadRequest, err.Error())
		case sms.ErrConsentDenied:
			return c.String(http.StatusForbidden, err.Error())
		case sms.ErrRateLimited:
			return c.String(http.StatusTooManyRequests, err.Error())
		default:
			return c.String(http.StatusBadGateway, err.Error())
		}
	}

	var perr *service.InvalidPayloadErr
	if errors.As(err, &perr) {
		return c.String(http.StatusBadRequest, err.Error())
	}

	zap.L().Error("Request failed", zap.Error(err))
	return c.String(http.StatusInternalServerError, "System malfunction. Please, try later")
}
