package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	grpcalerts "github.com/oshokin/safety-relay/internal/api/grpc/alerts"
	httpalerts "github.com/oshokin/safety-relay/internal/api/http/alerts"
	"github.com/oshokin/safety-relay/internal/api/ws"
	"github.com/oshokin/safety-relay/internal/auth"
	"github.com/oshokin/safety-relay/internal/config"
	"github.com/oshokin/safety-relay/internal/logger"
	"github.com/oshokin/safety-relay/internal/notify"
	"github.com/oshokin/safety-relay/internal/relay"
	repository "github.com/oshokin/safety-relay/internal/repository/alerts"
	"github.com/oshokin/safety-relay/internal/repository/recordings"
	service "github.com/oshokin/safety-relay/internal/service/alerts"
)

// WebsocketPath is where the real-time relay is mounted.
const WebsocketPath = "/ws"

// stack holds every long-lived component of one server process.
type stack struct {
	// db is the alert store connection.
	db *gorm.DB
	// redis is set only when live-status fan-out is configured.
	redis redis.UniversalClient
	// publisher forwards global relay events to redis.
	publisher *notify.RedisPublisher

	hub    *relay.Hub
	alerts *service.Service
	app    *fiber.App
	ws     *ws.Handler
	grpc   *grpc.Server
	health *health.Server
}

// newStack opens storage and assembles the transports around one alert service.
func newStack(ctx context.Context, settings *config.Config) (*stack, error) {
	db, err := repository.Open(ctx, settings.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &stack{db: db}

	files, err := recordings.NewFileStore(settings.Uploads.Dir, settings.Uploads.MaxBytes)
	if err != nil {
		s.close(ctx)

		return nil, fmt.Errorf("open recordings: %w", err)
	}

	var hubOptions []relay.Option

	if settings.Relay.RedisAddress != "" {
		s.redis = redis.NewClient(&redis.Options{Addr: settings.Relay.RedisAddress})

		s.publisher, err = notify.NewRedisPublisher(s.redis, settings.Relay.RedisChannel, notify.DefaultQueueSize)
		if err != nil {
			s.close(ctx)

			return nil, fmt.Errorf("create publisher: %w", err)
		}

		hubOptions = append(hubOptions, relay.WithPublisher(s.publisher))
	}

	s.hub = relay.NewHub(hubOptions...)
	s.alerts = service.New(
		repository.New(db),
		files,
		service.WithNotifier(s.hub),
		service.WithIDGenerator(uuid.NewString),
	)

	gatekeeper := auth.NewGatekeeper(auth.NewManager(settings.Auth))

	s.app = httpalerts.NewApp(settings.Uploads.MaxBytes, settings.Timeout)
	s.ws = ws.NewHandler(s.hub, gatekeeper, s.alerts, ws.WithRelaySettings(settings.Relay))
	s.ws.Register(s.app, WebsocketPath)
	httpalerts.NewServer(s.alerts, s.hub, gatekeeper).Register(s.app)

	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(grpcalerts.UnaryAuthInterceptor(gatekeeper)))
	grpcalerts.RegisterAlertServiceServer(s.grpc, grpcalerts.NewServer(s.alerts))

	s.health = health.NewServer()
	s.health.SetServingStatus(grpcalerts.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s.grpc, s.health)

	return s, nil
}

// shutdown stops accepting work and drains the transports.
func (s *stack) shutdown(ctx context.Context) error {
	s.health.Shutdown()

	var errs []error

	if err := s.ws.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close websockets: %w", err))
	}

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}

	stopped := make(chan struct{})

	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		logger.Info(ctx, "Forcing gRPC server stop")
		s.grpc.Stop()
	}

	return errors.Join(errs...)
}

// close releases storage and redis connections.
func (s *stack) close(ctx context.Context) {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.WarnKV(ctx, "Failed to close redis client", "error", err)
		}
	}

	if s.db != nil {
		if err := repository.Close(s.db); err != nil {
			logger.WarnKV(ctx, "Failed to close store", "error", err)
		}
	}
}
