package setup

import (
	"fmt"
	"io"

	"github.com/LavaJover/shvark-settlement-service/internal/config"
	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/catalog"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/memory"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-settlement-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-settlement-service/internal/usecase"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Dependencies struct {
	Config      *config.SettlementConfig
	Logger      *zap.Logger
	DB          *gorm.DB
	Storage     domain.Storage
	SetNames    *catalog.NameCache
	Publisher   domain.EventPublisher
	Registry    *prometheus.Registry
	Metrics     *metrics.SettlementMetrics
	HTTPMetrics *metrics.HTTPMetrics

	closers []io.Closer
}

func InitializeDependencies(cfg *config.SettlementConfig, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Metrics = metrics.NewSettlementMetrics(deps.Registry)
	deps.HTTPMetrics = metrics.NewHTTPMetrics(deps.Registry)

	if err := deps.initStorage(); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	names, err := initSetNames(cfg.CatalogService)
	if err != nil {
		return nil, fmt.Errorf("set catalog: %w", err)
	}
	deps.SetNames = names

	if err := deps.initPublisher(); err != nil {
		return nil, fmt.Errorf("publisher: %w", err)
	}
	return deps, nil
}

func (d *Dependencies) initStorage() error {
	switch d.Config.SettlementDB.Driver {
	case DriverMemory:
		d.Logger.Warn("using in-memory storage, state is lost on restart")
		d.Storage = memory.NewStorage()
		return nil
	case DriverPostgres, "":
		db, err := postgres.InitDB(d.Config.SettlementDB)
		if err != nil {
			return err
		}
		if path := d.Config.SettlementDB.MigrationsPath; path != "" {
			err = migrate.RunMigrations(db, path, d.Logger)
		} else {
			err = postgres.AutoMigrate(db)
		}
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		d.DB = db
		d.Storage = postgres.NewStorage(db)
		return nil
	default:
		return fmt.Errorf("unknown driver %q", d.Config.SettlementDB.Driver)
	}
}

func initSetNames(cfg config.CatalogService) (*catalog.NameCache, error) {
	var source domain.SetCatalog = catalog.StaticCatalog(cfg.Sets)
	if cfg.Address != "" {
		source = catalog.NewHTTPCatalogClient(cfg.Address, cfg.Timeout)
	}
	return catalog.NewNameCache(source, cfg.CacheSize)
}

func (d *Dependencies) initPublisher() error {
	var fanout usecase.FanoutPublisher
	if d.DB != nil {
		fanout = append(fanout, postgres.NewPGTradeEventLog(d.DB))
	}
	if kc := d.Config.KafkaService; kc.Enabled {
		pub, err := kafka.NewKafkaPublisher(kafka.KafkaConfig{
			Brokers:    []string{fmt.Sprintf("%s:%s", kc.Host, kc.Port)},
			Topic:      kc.Topic,
			Username:   kc.Username,
			Password:   kc.Password,
			Mechanism:  kc.Mechanism,
			TLSEnabled: kc.TLSEnabled,
		})
		if err != nil {
			return err
		}
		fanout = append(fanout, pub)
		d.closers = append(d.closers, pub)
	}

	switch len(fanout) {
	case 0:
		d.Publisher = domain.NoopPublisher{}
	case 1:
		d.Publisher = fanout[0]
	default:
		d.Publisher = fanout
	}
	return nil
}

// Close releases broker writers and the database pool.
func (d *Dependencies) Close() error {
	var result *multierror.Error
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}
