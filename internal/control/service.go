package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/remedy/internal/core/config"
	"github.com/vietddude/remedy/internal/core/domain"
	"github.com/vietddude/remedy/internal/core/worker"
	"github.com/vietddude/remedy/internal/detect"
	"github.com/vietddude/remedy/internal/health"
	"github.com/vietddude/remedy/internal/infra/api"
	"github.com/vietddude/remedy/internal/infra/storage"
	"github.com/vietddude/remedy/internal/infra/storage/memory"
	"github.com/vietddude/remedy/internal/infra/storage/postgres"
	"github.com/vietddude/remedy/internal/infra/tree"
	"github.com/vietddude/remedy/internal/remedy"
	"github.com/vietddude/remedy/internal/report"

	redisclient "github.com/vietddude/remedy/internal/infra/redis"
)

// Service is the main application struct that manages the coordinator lifecycle.
type Service struct {
	cfg          config.AppConfig
	coordinator  *Coordinator
	healthServer *health.Server
	treeStore    *tree.Store
	pruner       *worker.Pruner
	db           *postgres.DB
	redisClient  *redisclient.Client
	apiClient    *api.Client
	log          *slog.Logger
}

// eventRelay breaks the construction cycle between the connection (which
// needs a handler) and the coordinator (which needs the connection).
type eventRelay struct {
	c *Coordinator
}

func (r *eventRelay) HandleFixEvent(ev domain.FixEvent) {
	if r.c != nil {
		r.c.HandleFixEvent(ev)
	}
}

// NewService creates a Service with all dependencies initialized.
func NewService(cfg config.AppConfig) (*Service, error) {

	// 1. Initialize Storage
	var repo storage.ErrorRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate("migrations"); err != nil {
			return nil, err
		}
		repo = postgres.NewErrorRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		repo = memory.NewErrorRepo()
		slog.Info("Using Memory storage")
	}

	// 2. Optional incident journal
	var redisClient *redisclient.Client
	var journal Journal
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, incident journal disabled", "error", err)
		} else {
			journal = redisClient
		}
	}

	// 3. Detection pipeline
	dedup := detect.NewDeduplicator(cfg.Detection.DedupWindow)
	contextBuf := detect.NewContextBuffer(cfg.Detection.ContextLines)
	pending := detect.NewPendingBuffer(cfg.Detection.MaxPending)

	// 4. Project tree
	root := cfg.Tree.Root
	if root == "" {
		root = "."
	}
	treeStore := tree.NewStore(root, cfg.Tree.Ignore)

	// 5. Remediation transport
	apiClient := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	budget := remedy.NewBudget(cfg.Retry.MaxFixAttempts, cfg.Retry.StabilizationInterval)

	reporter := report.NewReporter(report.Config{
		SessionID:        cfg.API.SessionID,
		Debounce:         cfg.Detection.DebounceInterval,
		RecentFileWindow: cfg.Detection.RecentFileWindow,
	}, pending, contextBuf, apiClient, treeStore, budget.Exhausted)

	relay := &eventRelay{}
	wsURL := fmt.Sprintf("%s/errors/ws/%s", cfg.API.WSBaseURL, cfg.API.SessionID)
	conn := remedy.NewConn(wsURL, relay, cfg.Retry.ReconnectBaseDelay, cfg.Retry.MaxReconnectAttempts)

	coordinator := NewCoordinator(CoordinatorConfig{
		SessionID:  cfg.API.SessionID,
		Dedup:      dedup,
		ContextBuf: contextBuf,
		Pending:    pending,
		Reporter:   reporter,
		Transport:  apiClient,
		Conn:       conn,
		Budget:     budget,
		Repo:       repo,
		Journal:    journal,
	})
	relay.c = coordinator

	// 6. Health monitoring
	healthMon := health.NewMonitor(cfg.API.SessionID, coordinator)
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	// 7. Retention
	var pruner *worker.Pruner
	if cfg.Detection.RetentionPeriod > 0 {
		pruner = worker.NewPruner(cfg.Detection.RetentionPeriod, repo)
	}

	return &Service{
		cfg:          cfg,
		coordinator:  coordinator,
		healthServer: healthServer,
		treeStore:    treeStore,
		pruner:       pruner,
		db:           db,
		redisClient:  redisClient,
		apiClient:    apiClient,
		log:          slog.Default(),
	}, nil
}

// Coordinator exposes the coordinator for CLI commands.
func (s *Service) Coordinator() *Coordinator {
	return s.coordinator
}

// Start starts the service and all its components.
func (s *Service) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := s.healthServer.Start(); err != nil {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	// Start DB Metrics Collector
	if s.db != nil {
		s.db.StartMetricsCollector(ctx)
	}

	// Start Project Tree
	if s.cfg.Tree.Watch {
		if err := s.treeStore.Start(ctx); err != nil {
			s.log.Warn("File watching disabled", "error", err)
			_ = s.treeStore.Scan()
		}
	} else if err := s.treeStore.Scan(); err != nil {
		s.log.Warn("Initial tree scan failed", "error", err)
	}

	// Start Pruner
	if s.pruner != nil {
		go s.pruner.Start(ctx)
	}

	// Start Coordinator (dedup eviction + event connection)
	s.coordinator.Start(ctx)

	s.log.Info("Service started", "session", s.cfg.API.SessionID)
	return nil
}

// Stop stops the service.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping service...")

	s.coordinator.Stop()
	s.treeStore.Stop()

	if err := s.apiClient.Close(); err != nil {
		s.log.Warn("Failed to close API client", "error", err)
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}

	return s.healthServer.Stop(ctx)
}
