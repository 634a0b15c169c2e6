package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Sebdysart/hustlexp-ai-backend-sub009/config"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/adapters/ledger"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/adapters/notify"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/adapters/trust"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/adapters/worker"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/core"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/data"
	"github.com/Sebdysart/hustlexp-ai-backend-sub009/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Tasks   *service.TaskService
	Escrows *service.EscrowService
	Proofs  *service.ProofService
	Queue   *service.QueueService
	Sweeper *service.SweeperService
	Worker  *worker.Runner
	Trust   *trust.Service
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB      *sql.DB
	Tasks   *data.TaskRepo
	Escrows *data.EscrowRepo
	Proofs  *data.ProofRepo
	Jobs    *data.JobRepo
	Markers *data.RedisMarkerRepo
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(deps *ServiceDeps) *serviceRepositories {
	logger := deps.Logger

	jobCfg := data.JobRepoConfig{Logger: logger}
	if deps.Config != nil {
		jobCfg.RetryBaseSeconds = int(deps.Config.Queue.RetryBase.Seconds())
		jobCfg.DefaultMaxAttempts = deps.Config.Queue.DefaultMaxAttempts
	}
	jobs := data.NewJobRepo(deps.DB, jobCfg)

	return &serviceRepositories{
		DB:      deps.DB,
		Tasks:   data.NewTaskRepo(deps.DB, data.TaskRepoConfig{Logger: logger}),
		Escrows: data.NewEscrowRepo(deps.DB, jobs, data.EscrowRepoConfig{Logger: logger}),
		Proofs:  data.NewProofRepo(deps.DB, data.ProofRepoConfig{Logger: logger}),
		Jobs:    jobs,
		Markers: data.NewRedisMarkerRepo(deps.RedisClient),
	}
}

// buildIntegrations wires the external side-effect adapters consumed by the
// worker runner.
type integrations struct {
	Ledger  core.RewardLedger
	Gateway core.PaymentGateway
	Notify  core.NotificationSink
	Trust   *trust.Service
}

func buildIntegrations(deps *ServiceDeps, repos *serviceRepositories) (integrations, error) {
	cfg := deps.Config

	rewardClient, err := ledger.NewRewardClient(ledger.ClientOptions{
		BaseURL: cfg.Integrations.LedgerBaseURL,
		Markers: repos.Markers,
		Logger:  deps.Logger,
	})
	if err != nil {
		return integrations{}, fmt.Errorf("build reward client: %w", err)
	}

	gatewayClient, err := ledger.NewGatewayClient(ledger.ClientOptions{
		BaseURL: cfg.Integrations.ProcessorBaseURL,
		Markers: repos.Markers,
		Logger:  deps.Logger,
	})
	if err != nil {
		return integrations{}, fmt.Errorf("build gateway client: %w", err)
	}

	var sink core.NotificationSink
	if cfg.Integrations.NotifyWebhookURL != "" {
		sink, err = notify.NewWebhookSink(notify.WebhookSinkOptions{
			URL:    cfg.Integrations.NotifyWebhookURL,
			Logger: deps.Logger,
		})
		if err != nil {
			return integrations{}, fmt.Errorf("build webhook sink: %w", err)
		}
	} else {
		sink = notify.NewLogSink(deps.Logger)
	}

	trustSvc, err := trust.NewService(trust.ServiceOptions{
		DB:       repos.DB,
		Markers:  repos.Markers,
		Cooldown: cfg.Trust.RecomputeCooldown,
		Logger:   deps.Logger,
	})
	if err != nil {
		return integrations{}, fmt.Errorf("build trust service: %w", err)
	}

	return integrations{
		Ledger:  rewardClient,
		Gateway: gatewayClient,
		Notify:  sink,
		Trust:   trustSvc,
	}, nil
}

// NewServices wires the full service container.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, errors.New("service deps are required")
	}
	if deps.Config == nil {
		return ServiceContainer{}, errors.New("app config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
		deps.Logger = logger
	}

	repos := buildRepositories(deps)

	ext, err := buildIntegrations(deps, repos)
	if err != nil {
		return ServiceContainer{}, err
	}

	queueSvc := service.MustNewQueueService(service.QueueServiceOptions{
		Repo:         repos.Jobs,
		DefaultLease: deps.Config.Queue.Lease,
		Logger:       logger,
	})

	taskSvc := service.MustNewTaskService(service.TaskServiceOptions{
		Tasks:   repos.Tasks,
		Escrows: repos.Escrows,
		Proofs:  repos.Proofs,
		Queue:   repos.Jobs,
		Logger:  logger,
	})

	escrowSvc := service.MustNewEscrowService(service.EscrowServiceOptions{
		Escrows: repos.Escrows,
		Logger:  logger,
	})

	proofSvc := service.MustNewProofService(service.ProofServiceOptions{
		Proofs:       repos.Proofs,
		Queue:        repos.Jobs,
		ReviewWindow: deps.Config.Proofs.ReviewWindow,
		Logger:       logger,
	})

	sweeperSvc, err := service.NewSweeperService(service.SweeperServiceOptions{
		Proofs: repos.Proofs,
		Jobs:   repos.Jobs,
		Config: service.SweeperConfig{
			Interval:           deps.Config.Sweeper.Interval,
			ProofBatchSize:     deps.Config.Sweeper.ProofBatchSize,
			CompletedJobMaxAge: deps.Config.Sweeper.CompletedJobMaxAge,
		},
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build sweeper: %w", err)
	}

	runner, err := worker.NewRunner(worker.RunnerOptions{
		Queue:        queueSvc,
		Escrows:      repos.Escrows,
		Proofs:       repos.Proofs,
		Ledger:       ext.Ledger,
		Gateway:      ext.Gateway,
		Notify:       ext.Notify,
		Trust:        ext.Trust,
		Logger:       logger,
		Concurrency:  deps.Config.Worker.Concurrency,
		PollInterval: deps.Config.Worker.PollInterval,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build worker runner: %w", err)
	}

	return ServiceContainer{
		Tasks:   taskSvc,
		Escrows: escrowSvc,
		Proofs:  proofSvc,
		Queue:   queueSvc,
		Sweeper: sweeperSvc,
		Worker:  runner,
		Trust:   ext.Trust,
	}, nil
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. It blocks until a shutdown signal is received or a service
// fails.
func RunServicesWithShutdown(cfg *config.AppConfig, services ServiceContainer, logger *slog.Logger) error {
	if cfg == nil {
		return errors.New("app config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if enabled[config.ServiceModeWorker] {
		logger.Info("starting service", "service", "worker")
		g.Go(func() error {
			if runErr := services.Worker.Run(ctx); runErr != nil {
				return fmt.Errorf("worker failed: %w", runErr)
			}
			return nil
		})
	}

	if enabled[config.ServiceModeSweeper] {
		logger.Info("starting service", "service", "sweeper")
		g.Go(func() error {
			if runErr := services.Sweeper.Run(ctx); runErr != nil {
				return fmt.Errorf("sweeper failed: %w", runErr)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("services stopped")
	return nil
}
