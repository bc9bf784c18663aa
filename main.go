package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/salonbook/notifier/controller"
	"github.com/salonbook/notifier/dao"
	"github.com/salonbook/notifier/service"
	"github.com/salonbook/notifier/sms"
	"github.com/salonbook/notifier/util"
	"go.uber.org/zap"
)

// @title Notification delivery engine HTTP API
// @description Outbound text-message delivery with rate limiting, retries and delivery-status reconciliation

func init() {
	_ = godotenv.Load()
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//create db client
	dbClient, err := dao.GetClient(util.GetEnv("DB_PATH", "notifier.db"))
	if err != nil {
		logger.Fatal("Error opening database", zap.Error(err))
	}

	//per-destination rate limiter with background pruning
	limiter := sms.NewRateLimiter(sms.Limits{
		PerMinute: util.GetEnvAsInt("RATE_PER_MINUTE", 10),
		PerHour:   util.GetEnvAsInt("RATE_PER_HOUR", 100),
		PerDay:    util.GetEnvAsInt("RATE_PER_DAY", 1000),
	})
	limiter.Start(ctx)

	//carrier client, degraded to logged-only mode without credentials
	var client sms.Client
	accountSid := util.GetEnv("TWILIO_ACCOUNT_SID", "")
	authToken := util.GetEnv("TWILIO_AUTH_TOKEN", "")
	if util.IsBlank(accountSid) || util.IsBlank(authToken) {
		logger.Warn("Carrier credentials not configured, messages will be logged but not sent")
		client = sms.NewNullClient()
	} else {
		client = sms.NewTwilioClient(accountSid, authToken)
	}

	from := util.GetEnv("SMS_FROM_NUMBER", "")
	countryCode := util.GetEnv("COUNTRY_CODE", "1")

	sender := sms.NewSender(client, limiter, from, countryCode)
	retrier := sms.NewRetrier(sender, util.GetEnvAsInt("SEND_MAX_ATTEMPTS", 3))

	messageDao := dao.NewMessageDao(dbClient)
	recipientDao := dao.NewRecipientDao(dbClient)
	campaignDao := dao.NewCampaignDao(dbClient)
	templateDao := dao.NewTemplateDao(dbClient)
	ruleDao := dao.NewRuleDao(dbClient)

	svc := service.NewService(
		sender,
		retrier,
		messageDao,
		recipientDao,
		campaignDao,
		templateDao,
		ruleDao,
		from,
		countryCode,
		util.GetEnv("WEB_HOOK", ""),
		util.GetEnvAsInt("SMS_MAX_LEN", 480),
	)

	//appointment and client stores belong to the surrounding CRM and are
	//wired in by the host deployment; without them the scheduler still
	//dispatches campaigns and purges old messages
	scheduler := service.NewScheduler(
		svc,
		campaignDao,
		messageDao,
		nil,
		nil,
		time.Duration(util.GetEnvAsInt("SCHED_INTERVAL_MIN", 5))*time.Minute,
		util.GetEnvAsInt("RETENTION_DAYS", 30),
	)
	stopScheduler := scheduler.Start(ctx)
	defer stopScheduler()

	//attach http handlers
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.BodyLimit("8K"))

	bindRoutes(e, svc)

	go func() {
		if err := e.Start(":" + util.GetEnv("HTTP_PORT", "8080")); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Error starting http server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down http server", zap.Error(err))
	}
}

func bindRoutes(e *echo.Echo, svc service.Service) {

	e.POST("/sms", controller.GetSendSmsFunc(svc))
	e.GET("/sms/:id", controller.GetCheckSmsFunc(svc))

	e.POST("/campaigns", controller.GetCreateCampaignFunc(svc))
	e.POST("/campaigns/:id/send", controller.GetSendCampaignFunc(svc))

	e.POST("/automations/:type/run", controller.GetRunAutomationFunc(svc))

	e.POST("/webhooks/status", controller.GetStatusWebhookFunc(svc))
	e.POST("/webhooks/inbound", controller.GetInboundWebhookFunc(svc))
}
