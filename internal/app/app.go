// Package app wires the core's components into a runnable process, the
// analogue of the teacher's internal/app/app.go NewApplication/Initialize/Run
// shape, rebuilt around this spec's own component graph (Probe Engine,
// Health Evaluator, Scheduler, Worker, Alert Engine, Relay) instead of the
// teacher's instance/cluster/host management surface.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ysicing/pulseguard/internal/alert"
	"github.com/ysicing/pulseguard/internal/cache"
	"github.com/ysicing/pulseguard/internal/config"
	"github.com/ysicing/pulseguard/internal/db"
	"github.com/ysicing/pulseguard/internal/health"
	"github.com/ysicing/pulseguard/internal/maintenance"
	"github.com/ysicing/pulseguard/internal/relay"
	"github.com/ysicing/pulseguard/internal/repository"
	execrepo "github.com/ysicing/pulseguard/internal/repository/scheduler"
	"github.com/ysicing/pulseguard/internal/scheduler"
	"github.com/ysicing/pulseguard/internal/services/notification"
	"github.com/ysicing/pulseguard/internal/worker"
)

// Application owns every long-lived component of one process instance. A
// single binary runs the full pipeline (Scheduler + Worker + Alert Engine +
// Relay consumer) behind one HTTP server that exposes only the websocket
// upgrade, a liveness probe, and /metrics — the REST/CRUD control surface is
// an external collaborator (§1 Non-goals).
type Application struct {
	config *config.Config

	db    *db.Database
	cache *cache.Client

	monitors     repository.MonitorRepository
	checks       repository.CheckRepository
	incidents    repository.IncidentRepository
	rules        repository.AlertRuleRepository
	availability repository.AvailabilityRepository
	executions   execrepo.ExecutionRepository
	tasks        execrepo.TaskRepository

	history   *health.History
	alerts    *alert.Engine
	wkr       *worker.Worker
	sched     *scheduler.Scheduler
	upkeep    *maintenance.Runner
	hub       *relay.Hub
	consumer  *relay.Consumer
	wsHandler *relay.Handler

	httpServer *http.Server
	instanceID string
}

// New constructs an Application from cfg without starting any goroutines or
// opening network listeners (that happens in Initialize/Run), mirroring the
// teacher's two-phase NewApplication/Initialize split.
func New(cfg *config.Config) *Application {
	return &Application{
		config:     cfg,
		instanceID: fmt.Sprintf("pulseguard-%s", uuid.New().String()[:8]),
	}
}

// Initialize opens the database and Redis connections, runs migrations, and
// wires every component's dependency graph bottom-up (persistence -> health
// -> alert -> worker -> scheduler -> relay), matching the teacher's
// Initialize step ordering.
func (a *Application) Initialize(ctx context.Context) error {
	logrus.Info("initializing pulseguard...")

	database, err := db.NewDatabase(&a.config.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	if err := database.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	a.db = database

	cacheClient, err := cache.New(cache.Config{
		Host:     a.config.Redis.Host,
		Port:     a.config.Redis.Port,
		Password: a.config.Redis.Password,
		DB:       a.config.Redis.DB,
		Prefix:   a.config.Redis.Prefix,
	})
	if err != nil {
		return fmt.Errorf("initialize redis: %w", err)
	}
	a.cache = cacheClient

	a.monitors = repository.NewMonitorRepository(a.db.DB)
	a.checks = repository.NewCheckRepository(a.db.DB)
	a.incidents = repository.NewIncidentRepository(a.db.DB)
	a.rules = repository.NewAlertRuleRepository(a.db.DB)
	a.availability = repository.NewAvailabilityRepository(a.db.DB)
	a.executions = execrepo.NewExecutionRepository(a.db.DB)
	a.tasks = execrepo.NewTaskRepository(a.db.DB)

	a.history = health.NewHistory()

	notifiers := a.buildNotifiers()
	a.alerts = alert.New(a.incidents, a.rules, a.cache, a.history, notifiers)

	a.wkr = worker.New(a.monitors, a.checks, a.alerts, a.cache, a.history)

	a.sched = scheduler.New(a.cache, a.monitors, a.executions, a.wkr)

	retention := time.Duration(a.config.Monitoring.CheckRetentionDays) * 24 * time.Hour
	a.upkeep = maintenance.New(a.tasks, a.executions, a.monitors, a.checks, a.availability, retention)

	a.hub = relay.NewHub()
	a.consumer = relay.NewConsumer(a.cache, a.hub, "monitor_updates_relay", a.instanceID)
	a.wsHandler = relay.NewHandler(a.hub)

	a.setupHTTPServer()

	logrus.Info("pulseguard initialized")
	return nil
}

// buildNotifiers registers the §4.F channel set the alert engine dispatches
// through, keyed exactly as channelsForMonitor produces targets: email,
// slack, sms, webhook. DingTalk and WeChat Work notifiers are registered
// under their own channel names too so a custom alert rule (§9's expr-lang
// layer) can target them even though the built-in threshold path only ever
// emits the four spec-named channels.
func (a *Application) buildNotifiers() map[string]notification.Notifier {
	n := a.config.Notification

	notifiers := map[string]notification.Notifier{
		"email": notification.NewEmailNotifier(&notification.EmailConfig{
			SMTPHost: n.SMTPHost,
			SMTPPort: n.SMTPPort,
			Username: n.SMTPUsername,
			Password: n.SMTPPassword,
			From:     n.SMTPFrom,
			UseTLS:   n.SMTPUseTLS,
		}),
		// Slack and Webhook notifiers carry no fixed destination: the alert
		// engine stamps each target's per-monitor URL onto
		// Notification.Destination before calling Send.
		"slack":   notification.NewSlackNotifier(&notification.SlackConfig{}),
		"webhook": notification.NewWebhookNotifier(&notification.WebhookConfig{Method: http.MethodPost}),
		"sms": notification.NewSMSNotifier(&notification.SMSConfig{
			ProviderURL: n.SMSProviderURL,
			APIKey:      n.SMSAPIKey,
		}),
	}

	if n.DingTalkWebhookURL != "" {
		notifiers["dingtalk"] = notification.NewDingTalkNotifier(&notification.DingTalkConfig{
			WebhookURL: n.DingTalkWebhookURL,
			Secret:     n.DingTalkSecret,
		})
	}
	if n.WeChatWebhookURL != "" {
		notifiers["wechat"] = notification.NewWeChatWorkNotifier(&notification.WeChatWorkConfig{
			WebhookURL: n.WeChatWebhookURL,
		})
	}

	return notifiers
}

// setupHTTPServer builds the gin router behind the relay's websocket
// upgrade, a liveness probe, and /metrics — no REST/CRUD surface (§1
// Non-goals), grounded on the teacher's router-composition shape in
// internal/api/middleware/router.go minus everything that surface implies.
func (a *Application) setupHTTPServer() {
	if a.config.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ws", a.authStub, a.wsHandler.ServeWS)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if a.sched != nil && a.sched.IsReady() {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// authStub stands in for the external authentication collaborator (§1
// Non-goals): it trusts an already-validated X-User-Id header rather than
// performing any authentication itself, and is the one place a real
// deployment must replace with its own middleware before exposing /ws.
func (a *Application) authStub(c *gin.Context) {
	raw := c.GetHeader("X-User-Id")
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-Id"})
		return
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid X-User-Id"})
		return
	}
	c.Set(relay.UserIDKey, userID)
	c.Next()
}

// Run starts the scheduler, the relay consumer, and the HTTP server, then
// blocks until an interrupt signal triggers graceful shutdown in the order
// §5 names: stop accepting new jobs, wait for in-flight workers, release the
// scheduler lock, close the stream consumer, close persistence connections.
func (a *Application) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.sched.Start(runCtx)

	if err := a.upkeep.Start(runCtx); err != nil {
		return fmt.Errorf("start maintenance runner: %w", err)
	}

	go func() {
		if err := a.consumer.Run(runCtx); err != nil && runCtx.Err() == nil {
			logrus.Errorf("relay: consumer loop exited: %v", err)
		}
	}()

	go func() {
		logrus.Infof("starting HTTP server on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("http server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down pulseguard...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("http server forced to shutdown: %v", err)
	}

	a.upkeep.Stop()
	a.sched.Stop()

	if err := a.cache.Close(); err != nil {
		logrus.Warnf("close redis connection: %v", err)
	}
	if err := a.db.Close(); err != nil {
		logrus.Errorf("close database connection: %v", err)
	}

	logrus.Info("pulseguard stopped")
	return nil
}
