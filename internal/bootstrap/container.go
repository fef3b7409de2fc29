package bootstrap

import (
	"context"

	"ai-screenwriting-be/internal/config"
	"ai-screenwriting-be/internal/controller"
	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/internal/repository/memory"
	"ai-screenwriting-be/internal/repository/unitofwork"
	"ai-screenwriting-be/internal/service"
	"ai-screenwriting-be/internal/websocket"
	"ai-screenwriting-be/pkg/events"
	"ai-screenwriting-be/pkg/metrics"
	pktNats "ai-screenwriting-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AgentController  controller.IAgentController
	EntityController controller.IEntityController

	// Background services, run by main
	AgentService    service.IAgentService
	Consumers       []service.IConsumerService
	ActivityService *service.ActivityService
	WebSocketHub    *websocket.Hub

	Registry *prometheus.Registry
	Logger   logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(registry)

	c := &Container{Registry: registry, Logger: sysLogger}

	// 2. In-process bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Engine
	modeRouter, err := NewModeRouter(cfg, logger.NewIsolatedLogger("logs/panels.log"))
	if err != nil {
		return nil, err
	}
	planner, err := NewPlanner(cfg)
	if err != nil {
		return nil, err
	}

	// 4. Infrastructure
	var eventPublisher service.EventPublisher = droppedEvents{log: sysLogger}
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("Bootstrap", "NATS publisher unavailable, entity events will be dropped", map[string]interface{}{"error": err.Error()})
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("Bootstrap", "NATS subscriber unavailable", map[string]interface{}{"error": err.Error()})
	} else {
		c.closers = append(c.closers, natsSub.Close)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		sysLogger.Warn("Bootstrap", "Redis unavailable, WebSocket frames stay on this instance", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		rdb = nil
	} else {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	// 5. Services
	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL, cfg.Session.CleanupInterval)
	c.AgentService = service.NewAgentService(
		sessionRepo,
		uowFactory,
		modeRouter,
		planner,
		pubSub,
		c.WebSocketHub,
		sysLogger,
		recorder,
		service.AgentServiceConfig{DefaultModel: cfg.Ai.LLMModel, Models: cfg.Ai.Models},
	)
	entityService := service.NewEntityService(uowFactory, eventPublisher, c.AgentService, sysLogger)

	c.Consumers = []service.IConsumerService{
		service.NewWorkflowConsumer(pubSub, entityService, sysLogger),
		service.NewTranscriptConsumer(pubSub, uowFactory, sysLogger),
	}
	if natsSub != nil {
		c.ActivityService = service.NewActivityService(natsSub, c.WebSocketHub, sysLogger)
	}

	// 6. Controllers
	c.AgentController = controller.NewAgentController(c.AgentService, c.WebSocketHub, sysLogger)
	c.EntityController = controller.NewEntityController(entityService)

	return c, nil
}

// Close releases bus and broker connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// droppedEvents stands in for NATS when the broker is unreachable.
type droppedEvents struct {
	log logger.ILogger
}

func (d droppedEvents) Publish(_ context.Context, e events.Event) error {
	d.log.Warn("Bootstrap", "Event dropped, no broker", map[string]interface{}{"type": e.EventType()})
	return nil
}
