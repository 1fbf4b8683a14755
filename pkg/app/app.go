package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	redigo "github.com/garyburd/redigo/redis"
	"github.com/gorilla/mux"
	"github.com/jinzhu/gorm"
	"github.com/rs/cors"
	"github.com/urfave/negroni"
	redsync "gopkg.in/redsync.v1"

	"github.com/solguard/solguard-api/internal/shared/apperrors"
	"github.com/solguard/solguard-api/internal/shared/config"
	"github.com/solguard/solguard-api/internal/shared/db/gormdb"
	"github.com/solguard/solguard-api/internal/shared/db/redis"
	"github.com/solguard/solguard-api/internal/shared/logutil"
	"github.com/solguard/solguard-api/internal/shared/queue"
	"github.com/solguard/solguard-api/pkg/audit/analyzers"
	"github.com/solguard/solguard-api/pkg/audit/analyzers/implementations"
	"github.com/solguard/solguard-api/pkg/audit/artifacts"
	"github.com/solguard/solguard-api/pkg/audit/crons/maintenance"
	"github.com/solguard/solguard-api/pkg/audit/models"
	"github.com/solguard/solguard-api/pkg/audit/processing"
	"github.com/solguard/solguard-api/pkg/audit/reportgen"
	"github.com/solguard/solguard-api/pkg/audit/reporting"
	analysisSvc "github.com/solguard/solguard-api/pkg/audit/services/analysis"
	queueadminSvc "github.com/solguard/solguard-api/pkg/audit/services/queueadmin"
	reportSvc "github.com/solguard/solguard-api/pkg/audit/services/report"
	"github.com/solguard/solguard-api/pkg/audit/store"
)

const (
	analysisQueueName    = "analysis"
	reportQueueName      = "report"
	maintenanceQueueName = "maintenance"
)

type appServices struct {
	analysis   analysisSvc.Service
	report     reportSvc.Service
	queueadmin queueadminSvc.Service
}

type appQueues struct {
	analysis    *queue.Queue
	report      *queue.Queue
	maintenance *queue.Queue

	byName map[string]*queue.Queue
}

type App struct {
	cfg        config.Config
	log        logutil.Log
	trackedLog logutil.Log
	errTracker apperrors.Tracker

	gormDB          *gorm.DB
	redisPool       *redigo.Pool
	distLockFactory *redsync.Redsync

	stores    *store.Stores
	artifacts *artifacts.Store
	anomaly   analyzers.AnomalyDetector
	factory   *analyzers.Factory

	queues   appQueues
	services appServices
}

func (a *App) buildDeps() {
	if a.log == nil {
		slog := logutil.NewStderrLog("solguard-api")
		slog.SetLevel(logutil.LogLevelInfo)
		a.log = slog
	}

	if a.cfg == nil {
		a.cfg = config.NewEnvConfig(a.log)
	}

	if a.errTracker == nil {
		a.errTracker = apperrors.GetTracker(a.cfg, a.log, "api")
	}
	if a.trackedLog == nil {
		a.trackedLog = apperrors.WrapLogWithTracker(a.log, nil, a.errTracker)
	}

	if a.gormDB == nil {
		gormDB, err := gormdb.GetDB(a.cfg, a.trackedLog, "")
		if err != nil {
			a.log.Fatalf("Can't get DB: %s", err)
		}
		a.gormDB = gormDB
	}
	if a.stores == nil {
		a.stores = store.NewGorm(a.gormDB)
	}

	if a.redisPool == nil {
		redisPool, err := redis.GetPool(a.cfg)
		if err != nil {
			a.log.Fatalf("Can't get redis pool: %s", err)
		}
		a.redisPool = redisPool
	}
	a.distLockFactory = redsync.New([]redsync.Pool{a.redisPool})

	if a.artifacts == nil {
		a.artifacts = artifacts.NewStore(a.cfg.GetString("ARTIFACTS_DIR"))
	}
}

func (a *App) buildAnalyzers() {
	timeout := a.cfg.GetDuration("ANALYZER_TIMEOUT", 15*time.Second)

	security := implementations.NewSecurityScanner(a.cfg.GetString("SECURITY_SCANNER_URL"), timeout)
	gas := implementations.NewGasOptimizer(a.cfg.GetString("GAS_OPTIMIZER_URL"), timeout)
	compliance := implementations.NewComplianceChecker(a.cfg.GetString("COMPLIANCE_CHECKER_URL"), timeout)
	anomaly := implementations.NewAnomalyDetector(a.cfg.GetString("ANOMALY_DETECTOR_URL"))

	a.anomaly = anomaly
	a.factory = analyzers.NewFactory(a.trackedLog, security, gas, compliance, anomaly)
}

func (a *App) buildQueues() {
	a.queues.analysis = queue.New(analysisQueueName, a.redisPool, a.distLockFactory, a.trackedLog, queue.Options{
		Attempts:       3,
		InitialBackoff: 5 * time.Second,
		StallTimeout:   a.cfg.GetDuration("ANALYSIS_STALL_TIMEOUT", time.Minute),
		Concurrency:    a.cfg.GetInt("ANALYSIS_CONCURRENCY", 4),
	})
	a.queues.report = queue.New(reportQueueName, a.redisPool, a.distLockFactory, a.trackedLog, queue.Options{
		Attempts:       2,
		InitialBackoff: 3 * time.Second,
		JobTimeout:     a.cfg.GetDuration("REPORT_JOB_TIMEOUT", 2*time.Minute),
		Concurrency:    a.cfg.GetInt("REPORT_CONCURRENCY", 2),
	})
	a.queues.maintenance = queue.New(maintenanceQueueName, a.redisPool, a.distLockFactory, a.trackedLog, queue.Options{
		Attempts:    1,
		Concurrency: 1,
	})

	a.queues.byName = map[string]*queue.Queue{
		analysisQueueName:    a.queues.analysis,
		reportQueueName:      a.queues.report,
		maintenanceQueueName: a.queues.maintenance,
	}
}

func (a *App) buildServices() {
	a.services.analysis = analysisSvc.BasicService{
		Stores:   a.stores,
		Producer: processing.NewProducer(a.queues.analysis),
		Anomaly:  a.anomaly,
	}
	a.services.report = reportSvc.BasicService{
		Stores:    a.stores,
		Producer:  reporting.NewProducer(a.queues.report),
		Artifacts: a.artifacts,
	}
	a.services.queueadmin = queueadminSvc.BasicService{
		Queues: a.queues.byName,
	}
}

func (a *App) registerWorkers() {
	analysisConsumer := processing.NewConsumer(a.trackedLog, a.stores, a.factory)
	if err := a.queues.analysis.Process(processing.TaskRun, analysisConsumer.Consume); err != nil {
		a.log.Fatalf("Can't register analysis consumer: %s", err)
	}

	reportConsumer := reporting.NewConsumer(a.trackedLog, a.stores, reportgen.NewRenderer(), a.artifacts)
	if err := a.queues.report.Process(reporting.TaskGenerate, reportConsumer.Consume); err != nil {
		a.log.Fatalf("Can't register report consumer: %s", err)
	}

	maintenanceConsumer := maintenance.NewConsumer(a.trackedLog, a.stores, []maintenance.Purger{
		a.queues.analysis,
		a.queues.report,
	})
	if err := a.queues.maintenance.Process(maintenance.TaskPruneAnalyzes, maintenanceConsumer.PruneAnalyzes); err != nil {
		a.log.Fatalf("Can't register analyzes pruning consumer: %s", err)
	}
	if err := a.queues.maintenance.Process(maintenance.TaskPurgeQueues, maintenanceConsumer.PurgeQueues); err != nil {
		a.log.Fatalf("Can't register queue purging consumer: %s", err)
	}
}

func NewApp(modifiers ...Modifier) *App {
	a := App{}
	for _, m := range modifiers {
		m(&a)
	}
	a.buildDeps()
	a.buildAnalyzers()
	a.buildQueues()
	a.buildServices()
	a.registerWorkers()

	return &a
}

func (a *App) runMigrations() {
	err := a.gormDB.AutoMigrate(
		&models.Contract{},
		&models.Analysis{},
		&models.Report{},
	).Error
	if err != nil {
		a.log.Fatalf("Can't run migrations: %s", err)
	}
}

func (a *App) RunEnvironment() {
	a.runMigrations()

	a.queues.analysis.Run()
	a.queues.report.Run()
	a.queues.maintenance.Run()

	if err := maintenance.Schedule(context.Background(), a.queues.maintenance); err != nil {
		a.log.Errorf("Can't schedule maintenance jobs: %s", err)
	}
}

func (a *App) RunForever() {
	a.RunEnvironment()

	http.Handle("/", a.GetHTTPHandler())

	addr := fmt.Sprintf(":%d", a.cfg.GetInt("PORT", 3000))
	a.log.Infof("Listening on %s...", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		a.log.Errorf("Can't listen HTTP on %s: %s", addr, err)
		os.Exit(1)
	}
}

func (a *App) GetHTTPHandler() http.Handler {
	r := mux.NewRouter()
	a.registerHandlers(r)

	c := cors.New(cors.Options{
		AllowedOrigins:   a.cfg.GetStringList("ALLOWED_ORIGINS"),
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
	})

	n := negroni.Classic()
	n.Use(c)
	n.UseHandler(r)
	return n
}
