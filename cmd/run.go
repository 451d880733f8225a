package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"dareledger/api"
	"dareledger/application"
	"dareledger/config"
	"dareledger/database"
	"dareledger/domain/events"
	"dareledger/domain/interfaces"
	"dareledger/domain/services"
	"dareledger/infrastructure"
	"dareledger/infrastructure/observability"

	"github.com/hashicorp/go-multierror"
	"github.com/raulk/clock"
	log "github.com/sirupsen/logrus"
)

// ledger holds every long-lived component of the service
type ledger struct {
	db         *database.DB
	nats       *infrastructure.NATSClient
	challenges *application.ChallengeHandler
	payouts    *application.PayoutExecutor
	reporter   *application.ReconciliationReporter
	custodian  interfaces.FundsCustodian
}

// ConfigureLogging applies the configured logrus level and format
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run starts the HTTP API and background workers and blocks until ctx is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting dare ledger")

	state, err := database.CurrentMigrationState(cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if !state.Applied || state.Dirty {
		return fmt.Errorf("database schema is not ready (version %d, dirty %t); run \"migrate up\" first", state.Version, state.Dirty)
	}

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	l, err := newLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer l.close()

	workers, err := application.NewWorkers(l.challenges, l.payouts, l.reporter, application.WorkerIntervals{
		ExpirySweep:    cfg.ExpirySweepInterval,
		Reconcile:      cfg.ReconcileInterval,
		IntentResolver: cfg.IntentResolveInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	if err := workers.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	server := api.NewServer(l.challenges, l.payouts, l.reporter, l.custodian.TreasuryAddress(), cfg.AdminToken)
	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP API listening")
		serveErr <- server.Listen(cfg.HTTPAddr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("HTTP server stopped: %w", err)
		}
	}

	log.Info("Shutting down dare ledger")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var result *multierror.Error
	if runErr != nil {
		result = multierror.Append(result, runErr)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("http shutdown: %w", err))
	}
	if err := workers.Shutdown(); err != nil {
		result = multierror.Append(result, fmt.Errorf("workers shutdown: %w", err))
	}
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("metrics shutdown: %w", err))
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	log.Info("Shutdown completed")
	return nil
}

// RunReconcile builds one reconciliation report, writes it to stdout as JSON
// and fails when the ledger and custody disagree
func RunReconcile(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	l, err := newLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer l.close()

	report, err := l.reporter.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if !report.IsBalanced() {
		return errors.New("ledger and custody are out of balance")
	}
	return nil
}

// RunResolveIntents settles every outstanding payout intent once
func RunResolveIntents(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	l, err := newLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer l.close()

	resolved, err := l.payouts.ResolveOutstanding(ctx)
	log.WithField("resolved", resolved).Info("Intent resolution finished")
	return err
}

func newLedger(ctx context.Context, cfg *config.Config) (*ledger, error) {
	log.Info("Connecting to database")
	db, err := database.NewConnectionWithOptions(ctx, cfg.GetDatabaseURL(), database.PoolOptions{
		MaxConns:        cfg.DatabaseMaxConns,
		MaxConnLifetime: cfg.DatabaseMaxConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	l := &ledger{db: db}

	bus := events.NewBus()
	metrics := observability.GetMetrics()
	observability.SubscribeLedgerMetrics(bus, metrics)

	var publisher interfaces.EventPublisher = bus
	if cfg.NATSEnabled() {
		l.nats = infrastructure.NewNATSClient(cfg.NATSServers, infrastructure.SourceService)
		if err := l.nats.Connect(ctx); err != nil {
			l.close()
			return nil, err
		}

		natsPublisher := infrastructure.NewNATSEventPublisher(l.nats, infrastructure.NewEventSubjectMapper(), bus)
		if err := natsPublisher.EnsureDomainEventStream(l.nats); err != nil {
			l.close()
			return nil, fmt.Errorf("failed to ensure event stream: %w", err)
		}
		publisher = natsPublisher
	} else {
		log.Warn("NATS_SERVERS not set, domain events stay in process")
	}

	clk := clock.New()

	var custodian interfaces.FundsCustodian
	switch cfg.CustodianMode {
	case "nats":
		custodian = infrastructure.NewNATSCustodian(l.nats, cfg.CustodianSubjectPrefix, cfg.CustodianTimeout, cfg.TreasuryAddress)
	default:
		log.Warn("Using in-memory custodian; balances are not backed by real funds")
		custodian = infrastructure.NewMemoryCustodian(cfg.TreasuryAddress, clk)
	}
	l.custodian = infrastructure.NewInstrumentedCustodian(custodian, metrics)

	authorizer, err := services.NewSignatureAuthorizer(clk, cfg.SignatureWindow, cfg.PublicKeyCacheSize)
	if err != nil {
		l.close()
		return nil, err
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, publisher)
	l.challenges = application.NewChallengeHandler(uowFactory, l.custodian, clk)
	l.payouts = application.NewPayoutExecutor(uowFactory, l.custodian, authorizer, clk, cfg.IntentResolveMinAge)

	var recorder application.ReconciliationRecorder
	if metrics != nil {
		recorder = metrics
	}
	l.reporter = application.NewReconciliationReporter(uowFactory, l.custodian, clk, recorder)

	return l, nil
}

func (l *ledger) close() {
	if l.nats != nil {
		if err := l.nats.Close(); err != nil {
			log.WithError(err).Warn("Error closing NATS connection")
		}
	}
	log.Info("Closing database connection")
	l.db.Close()
}
