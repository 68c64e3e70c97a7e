package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	// _ "github.com/mattn/go-sqlite3" // requires gcc
	_ "modernc.org/sqlite"

	config "github.com/davicafu/tallerlab/internal/config"
	execApp "github.com/davicafu/tallerlab/internal/execution/application"
	execDomain "github.com/davicafu/tallerlab/internal/execution/domain"
	execEvents "github.com/davicafu/tallerlab/internal/execution/infra/inbound/events"
	execHttp "github.com/davicafu/tallerlab/internal/execution/infra/inbound/http"
	execAnalytics "github.com/davicafu/tallerlab/internal/execution/infra/outbound/analytics/clickhouse"
	execCache "github.com/davicafu/tallerlab/internal/execution/infra/outbound/cache"
	execRepoPostgres "github.com/davicafu/tallerlab/internal/execution/infra/outbound/db/postgres"
	execRepoSQLite "github.com/davicafu/tallerlab/internal/execution/infra/outbound/db/sqlite"
	infraEvents "github.com/davicafu/tallerlab/internal/shared/infra/events"
	"github.com/davicafu/tallerlab/internal/shared/infra/idempotency"
	sharedBus "github.com/davicafu/tallerlab/internal/shared/infra/platform/bus"
	"github.com/davicafu/tallerlab/internal/shared/infra/resilience"
	taskApp "github.com/davicafu/tallerlab/internal/task/application"
	taskDomain "github.com/davicafu/tallerlab/internal/task/domain"
	taskHttp "github.com/davicafu/tallerlab/internal/task/infra/inbound/http"
	taskRepoMongo "github.com/davicafu/tallerlab/internal/task/infra/outbound/db/mongodb"
	taskRepoSQLite "github.com/davicafu/tallerlab/internal/task/infra/outbound/db/sqlite"
	"github.com/davicafu/tallerlab/pkg/logger"
)

// ---------------- Main ----------------
func main() {
	logger.Init()          // inicializa zap
	log := logger.Logger() // obtiene logger estructurado
	defer log.Sync()       // flush buffers al salir

	// run devuelve en vez de salir: así los defer (consumidor, writer,
	// reader, conexiones) se ejecutan también cuando el servidor falla.
	if err := run(context.Background(), log); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

func run(ctx context.Context, log *zap.Logger) error {
	cfg := config.LoadConfig()

	// ---------------- DB ----------------
	var execRepo execDomain.ExecutionRepository
	var taskRepo taskDomain.TaskRepository
	var idemStore idempotency.Store

	if cfg.PostgresDSN != "" {
		log.Info("🚀 Usando PostgreSQL como base de datos")
		pg, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open PostgreSQL", zap.Error(err))
		}
		defer pg.Close()

		if err := pg.PingContext(ctx); err != nil {
			log.Fatal("failed to ping PostgreSQL", zap.Error(err))
		}
		if err := execRepoPostgres.InitPostgres(ctx, pg); err != nil {
			log.Fatal("failed to initialize PostgreSQL", zap.Error(err))
		}
		if err := idempotency.InitPostgres(ctx, pg); err != nil {
			log.Fatal("failed to initialize idempotency table", zap.Error(err))
		}

		execRepo = execRepoPostgres.NewExecutionRepoPostgres(pg)
		idemStore = idempotency.NewPostgresStore(pg, log)
	}

	// SQLite sirve de almacén por defecto y cubre lo que Postgres no lleve.
	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		log.Fatal("failed to open SQLite", zap.Error(err))
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal("failed to ping SQLite", zap.Error(err))
	}

	if execRepo == nil {
		if err := execRepoSQLite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite", zap.Error(err))
		}
		execRepo = execRepoSQLite.NewExecutionRepoSQLite(db)
	}
	if idemStore == nil {
		if err := idempotency.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize idempotency table", zap.Error(err))
		}
		idemStore = idempotency.NewSQLiteStore(db, log)
	}

	if cfg.MongoURI != "" {
		log.Info("🚀 Usando MongoDB para las tareas")
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("failed to connect to MongoDB", zap.Error(err))
		}
		defer mongoClient.Disconnect(ctx)

		repo, err := taskRepoMongo.NewTaskRepoMongoDB(ctx, mongoClient, cfg.MongoDBName)
		if err != nil {
			log.Fatal("failed to initialize MongoDB task repo", zap.Error(err))
		}
		taskRepo = repo
	} else {
		if err := taskRepoSQLite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize tasks table", zap.Error(err))
		}
		taskRepo = taskRepoSQLite.NewTaskRepoSQLite(db)
	}

	// ---------------- Cache ----------------
	var cacheInstance execDomain.ExecutionCache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria:", zap.Error(err))
		cacheInstance = execCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	} else {
		cacheInstance = execCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// ---------------- Analytics ----------------
	var analytics execDomain.ExecutionAnalytics
	if cfg.ClickHouseAddr != "" {
		repo, err := execAnalytics.NewExecutionAnalyticsRepo(cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, histórico deshabilitado:", zap.Error(err))
		} else if err := repo.InitSchema(); err != nil {
			log.Warn("⚠️ ClickHouse schema init falló, histórico deshabilitado:", zap.Error(err))
		} else {
			analytics = repo
			log.Info("✅ ClickHouse conectado, histórico habilitado")
		}
	}

	// ---------------- Events ----------------
	log.Info("🚀 Usando Kafka como bus de eventos")

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.OutboundTopic,
	})
	defer writer.Close()

	breaker := resilience.New(cfg.BreakerThreshold, cfg.BreakerResetTimeout)
	publisher := infraEvents.NewKafkaPublisher(writer, breaker, log)

	// --------------- Servicios --------------
	execService := execApp.NewExecutionService(execRepo, cacheInstance, publisher, analytics, log)
	taskService := taskApp.NewTaskService(taskRepo, log)

	// --------------- Consumidor -------------
	var source sharedBus.MessageSource
	if cfg.InboundTopic != "" {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.InboundTopic,
			GroupID:  cfg.ConsumerGroup,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		})
		defer reader.Close()
		source = infraEvents.NewKafkaSource(reader, cfg.ReceiveWait, log)
	}

	consumer := infraEvents.NewConsumer(source, cfg.BatchSize, cfg.ReceiveBackoff, log)
	execConsumer := execEvents.NewExecutionConsumer(execService, idemStore, log)
	execConsumer.Register(consumer)

	log.Info("🎧 Iniciando consumidor de eventos de ejecución")
	consumer.Start(ctx)

	// ---------------- HTTP ----------------
	execHandler := execHttp.NewExecutionHandler(execService)
	taskHandler := taskHttp.NewTaskHandler(taskService)
	router := gin.Default()
	execHttp.RegisterExecutionRoutes(router, execHandler)
	taskHttp.RegisterTaskRoutes(router, taskHandler)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	srvErr := make(chan error, 1)
	go func() {
		log.Info("🚀 Server running",
			zap.String("url", "http://localhost:"+cfg.HTTPPort),
		)
		srvErr <- router.Run(":" + cfg.HTTPPort)
	}()

	// ------------- Shutdown --------------
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var srvFailure error
	select {
	case err := <-srvErr:
		srvFailure = err
	case sig := <-quit:
		log.Info("🛑 Apagando servicio", zap.String("signal", sig.String()))
	}

	// Stop espera a que el consumidor termine el lote en curso; los defer
	// cierran conexiones después.
	consumer.Stop()
	return srvFailure
}
