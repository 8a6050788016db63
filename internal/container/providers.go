package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-approval/internal/application/dispatcher"
	"github.com/garyjia/timesheet-approval/internal/application/port"
	"github.com/garyjia/timesheet-approval/internal/application/service"
	"github.com/garyjia/timesheet-approval/internal/auth"
	"github.com/garyjia/timesheet-approval/internal/infrastructure/export"
	infraLark "github.com/garyjia/timesheet-approval/internal/infrastructure/external/lark"
	"github.com/garyjia/timesheet-approval/internal/infrastructure/membership"
	"github.com/garyjia/timesheet-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/timesheet-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/timesheet-approval/internal/infrastructure/worker"
	"github.com/garyjia/timesheet-approval/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle holds all repository implementations.
type RepositoryBundle struct {
	Timesheets port.TimesheetRepository
	Entries    port.EntryRepository
	Histories  port.HistoryRepository
	Profiles   *repository.ProfileRepository
	Projects   *repository.ProjectRepository
	Teams      port.TeamRepository
}

// AccessBundle holds the manager scope. Index is nil under the fan-out strategy.
type AccessBundle struct {
	Scope port.ManagerScope
	Index port.ManagerIndex
}

// ServiceBundle holds all application services.
type ServiceBundle struct {
	Access       service.AccessResolver
	Timesheets   service.TimesheetService
	Approvals    service.ApprovalService
	Membership   service.MembershipService
	Exports      service.ExportService
	Notification service.NotificationService
}

// ProvideDatabase opens the database and applies pending embedded
// migrations when AutoMigrate is set.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if _, err := database.NewMigrator(db, logger).Run(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil || db.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Timesheets: repository.NewTimesheetRepository(db.DB, logger),
		Entries:    repository.NewEntryRepository(db.DB, logger),
		Histories:  repository.NewHistoryRepository(db.DB, logger),
		Profiles:   repository.NewProfileRepository(db.DB, logger),
		Projects:   repository.NewProjectRepository(db.DB, logger),
		Teams:      repository.NewTeamRepository(db.DB, logger),
	}, nil
}

// ProvideNotifier returns the Lark messenger when credentials are set and a
// logging no-op notifier otherwise.
func ProvideNotifier(cfg *LarkConfig, logger *zap.Logger) port.Notifier {
	larkCfg := infraLark.Config{AppID: cfg.AppID, AppSecret: cfg.AppSecret}
	if !larkCfg.Enabled() {
		logger.Info("Lark credentials not set, notifications disabled")
		return infraLark.NewNoopNotifier(logger)
	}
	client := infraLark.NewSDKClient(larkCfg, logger)
	return infraLark.NewMessenger(client, logger)
}

// ProvideManagerScope builds the manager scope for the configured strategy.
func ProvideManagerScope(cfg *AccessConfig, repos *RepositoryBundle, logger *zap.Logger) (*AccessBundle, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}

	switch cfg.Strategy {
	case AccessStrategyIndex:
		idx := membership.NewIndex(repos.Projects, repos.Teams, logger)
		return &AccessBundle{Scope: idx, Index: idx}, nil
	case AccessStrategyFanout:
		scope := service.NewFanoutManagerScope(repos.Projects, repos.Teams, cfg.FanoutBatchSize, &zapLoggerAdapter{logger: logger})
		return &AccessBundle{Scope: scope}, nil
	default:
		return nil, fmt.Errorf("unknown access strategy %q", cfg.Strategy)
	}
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg *EventsConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{dispatcher.WithLogger(&dispatcherLoggerAdapter{logger: logger})}
	if cfg != nil && cfg.HandlerTimeout > 0 {
		opts = append(opts, dispatcher.WithHandlerTimeout(cfg.HandlerTimeout))
	}
	return dispatcher.NewDispatcher(opts...), nil
}

// ProvideIssuer creates the token issuer.
func ProvideIssuer(cfg *AuthConfig) (*auth.Issuer, error) {
	return auth.NewIssuer(auth.Config{
		Base64Secret: cfg.Secret,
		Issuer:       cfg.Issuer,
		TTL:          cfg.TokenTTL,
	})
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Access     *AccessBundle
	Dispatcher dispatcher.Dispatcher
	Notifier   port.Notifier
	Export     *ExportConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// notification handlers.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Access == nil {
		return nil, fmt.Errorf("access bundle is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	repos := deps.Repos
	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	resolver := service.NewAccessResolver(repos.Profiles, repos.Profiles, deps.Access.Scope, serviceLogger)

	sheetName := ""
	if deps.Export != nil {
		sheetName = deps.Export.SheetName
	}

	bundle := &ServiceBundle{
		Access: resolver,
		Timesheets: service.NewTimesheetService(service.TimesheetDeps{
			Timesheets: repos.Timesheets,
			Entries:    repos.Entries,
			Histories:  repos.Histories,
			Profiles:   repos.Profiles,
			Projects:   repos.Projects,
			Roles:      repos.Profiles,
			Access:     resolver,
			TxManager:  deps.TxManager,
			Dispatcher: deps.Dispatcher,
			Logger:     serviceLogger,
		}),
		Approvals: service.NewApprovalService(
			repos.Timesheets,
			repos.Entries,
			repos.Profiles,
			repos.Profiles,
			resolver,
			serviceLogger,
		),
		Membership: service.NewMembershipService(
			repos.Teams,
			repos.Projects,
			repos.Profiles,
			repos.Profiles,
			deps.Access.Index,
			deps.Dispatcher,
			serviceLogger,
		),
		Exports: service.NewExportService(
			repos.Timesheets,
			repos.Entries,
			repos.Profiles,
			repos.Projects,
			repos.Profiles,
			export.NewWorkbookWriter(sheetName, deps.Logger),
			serviceLogger,
		),
		Notification: service.NewNotificationService(repos.Profiles, deps.Notifier, serviceLogger),
	}

	bundle.Notification.Register(deps.Dispatcher)
	return bundle, nil
}

// ProvideWorkers creates the worker manager. The index reconciliation worker
// is registered only under the index strategy.
func ProvideWorkers(cfg *WorkerConfig, index port.ManagerIndex, logger *zap.Logger) *worker.Manager {
	m := worker.NewManager(logger)
	if index != nil {
		m.Register(worker.NewIndexWorker(index, cfg.IndexRefreshInterval, logger))
	}
	return m
}
