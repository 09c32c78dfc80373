// Server runs the pool access gRPC API.
package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"poolfi/backend/internal/audit"
	auditrepo "poolfi/backend/internal/audit/repository"
	"poolfi/backend/internal/backup"
	"poolfi/backend/internal/chain"
	"poolfi/backend/internal/config"
	"poolfi/backend/internal/db"
	governanceservice "poolfi/backend/internal/governance/service"
	healthhandler "poolfi/backend/internal/health/handler"
	identityrepo "poolfi/backend/internal/identity/repository"
	identityservice "poolfi/backend/internal/identity/service"
	"poolfi/backend/internal/logging"
	"poolfi/backend/internal/platform/docstore"
	"poolfi/backend/internal/policy/engine"
	poolrepo "poolfi/backend/internal/pool/repository"
	poolservice "poolfi/backend/internal/pool/service"
	"poolfi/backend/internal/reconcile"
	"poolfi/backend/internal/security"
	"poolfi/backend/internal/server"
	"poolfi/backend/internal/server/interceptors"
	"poolfi/backend/internal/telemetry"
	otelsetup "poolfi/backend/internal/telemetry/otel"
	"poolfi/backend/internal/telemetry/producer"
)

const (
	serviceName     = "poolfi-backend"
	shutdownTimeout = 10 * time.Second
)

// stores bundles the repositories behind STORE_DRIVER.
type stores struct {
	users  identityrepo.Repository
	pools  poolrepo.Repository
	audit  auditrepo.Repository
	pinger healthhandler.Pinger
	close  func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure, log)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider.Meter(serviceName))
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	events := otelsetup.NewEventEmitter(providers.LoggerProvider)
	var kafkaProducer producer.Producer
	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		kafkaProducer, err = producer.NewKafkaProducer(brokers, cfg.EventsTopic)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		events = telemetry.Multi(events, kafkaProducer)
		log.WithField("topic", cfg.EventsTopic).Info("pool events stream to kafka")
	}

	var (
		docBackup   docstore.Backup
		backupQueue *backup.Queue
	)
	if cfg.BackupEnabled() {
		key, err := security.ParseSigningKey(cfg.StoragePrivateKey)
		if err != nil {
			log.Fatalf("storage key: %v", err)
		}
		indexer, err := backup.NewIndexerClient(cfg.StorageIndexerURL, key, &http.Client{Timeout: 30 * time.Second})
		if err != nil {
			log.Fatalf("storage indexer: %v", err)
		}
		backupQueue = backup.NewQueue(indexer, log)
		docBackup = backupQueue
		log.WithField("signer", indexer.Signer().Hex()).Info("remote backups enabled")
	}

	st, err := openStores(ctx, cfg, docBackup, log)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	var reader chain.Reader = chain.NopReader{}
	if cfg.ChainRPCURL != "" {
		client, err := chain.Dial(ctx, cfg.ChainRPCURL, cfg.ChainID)
		if err != nil {
			log.Fatalf("chain: %v", err)
		}
		defer client.Close()
		evm, err := chain.NewEVMReader(client, cfg.PoolFactoryAddress, log)
		if err != nil {
			log.Fatalf("chain: %v", err)
		}
		reader = evm
	} else {
		log.Warn("CHAIN_RPC_URL not set; goal pools are hidden from listings")
	}

	policy, err := engine.NewOPAEvaluator(ctx, "", log)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	tokens, err := security.NewSessionTokens(cfg.SessionSecret, cfg.SessionTTL())
	if err != nil {
		log.Fatalf("session tokens: %v", err)
	}

	auth := identityservice.NewAuthService(st.users, security.NewHasher(cfg.BcryptCost), tokens, identityservice.Options{
		Audit:  audit.NewLogger(st.audit, interceptors.ClientIP, log),
		Events: events,
		Logger: log,
	})
	pools := poolservice.NewService(st.pools, poolservice.Options{Logger: log, Events: events, Metrics: metrics})
	gov := governanceservice.NewService(st.pools, governanceservice.Options{Policy: policy, Logger: log, Events: events, Metrics: metrics})

	var limiter *interceptors.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = interceptors.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	deps := server.Deps{
		Auth:                auth,
		SecureCookie:        cfg.Env == "production",
		Pools:               pools,
		Reconciler:          reconcile.New(reader, st.pools, log),
		Chain:               reader,
		Governance:          gov,
		PoolRepo:            st.pools,
		AuditRepo:           st.audit,
		HealthPinger:        st.pinger,
		HealthPolicyChecker: policy,
		Logger:              log,
	}
	s := server.NewGRPCServer(deps, server.Options{
		Tokens:      tokens,
		RateLimiter: limiter,
		Events:      events,
		Instrument:  true,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.GRPCAddr, "store": cfg.StoreDriver}).Info("gRPC server listening")
		if err := s.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down gRPC server...")
	s.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if backupQueue != nil {
		if err := backupQueue.Close(shutdownCtx); err != nil {
			log.WithError(err).Warn("backup queue did not drain")
		}
	}
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.WithError(err).Warn("kafka producer close")
		}
	}
	if err := st.close(); err != nil {
		log.WithError(err).Warn("store close")
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("otel shutdown")
	}
	log.Info("gRPC server stopped")
}

func openStores(ctx context.Context, cfg *config.Config, docBackup docstore.Backup, log logrus.FieldLogger) (*stores, error) {
	if cfg.StoreDriver == config.StoreDriverPostgres {
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return postgresStores(conn), nil
	}
	return &stores{
		users: identityrepo.NewFileRepository(cfg.DocumentPath(identityrepo.DocumentName), docBackup, log),
		pools: poolrepo.NewFileRepository(cfg.DocumentPath(poolrepo.DocumentName), docBackup, log),
		audit: auditrepo.NewMemoryRepository(auditrepo.DefaultMemoryCapacity),
		close: func() error { return nil },
	}, nil
}

func postgresStores(conn *sql.DB) *stores {
	return &stores{
		users:  identityrepo.NewPostgresRepository(conn),
		pools:  poolrepo.NewPostgresRepository(conn),
		audit:  auditrepo.NewPostgresRepository(conn),
		pinger: conn,
		close:  conn.Close,
	}
}
