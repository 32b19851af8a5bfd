package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"token-pay-api/internal/callback"
	"token-pay-api/internal/config"
	"token-pay-api/internal/dal"
	"token-pay-api/internal/dao"
	"token-pay-api/internal/event"
	"token-pay-api/internal/handler"
	"token-pay-api/internal/health"
	"token-pay-api/internal/idgen"
	"token-pay-api/internal/lock"
	"token-pay-api/internal/logger"
	"token-pay-api/internal/mq"
	"token-pay-api/internal/notify"
	"token-pay-api/internal/service"
	"token-pay-api/internal/settlement"
	"token-pay-api/internal/shard"
)

func main() {
	// load config env
	config.Init()
	cfg := config.C
	logger.InitLogger(cfg.Server.Mode)
	appLog := logger.App

	// idgen
	idgen.Init(cfg.Reconcile.NodeID)

	// init infra
	payDB, err := dal.OpenMySQL("pay", cfg.MysqlPay)
	if err != nil {
		log.Fatal(err)
	}
	userDB, err := dal.OpenMySQL("user", cfg.MysqlUser)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.AutoMigrate {
		if err := dao.MigrateLedger(payDB); err != nil {
			log.Fatalf("migrate pay db failed: %v", err)
		}
		if err := dao.MigrateBalance(userDB); err != nil {
			log.Fatalf("migrate user db failed: %v", err)
		}
	}

	ledgerDao := dao.NewLedgerDao(payDB)
	balanceDao := dao.NewBalanceDao(userDB)
	notifyLogDao := dao.NewNotifyLogDao(payDB, shard.NewNotifyLogShard(cfg.ShardCount))
	alerter := notify.NewAlerter(cfg.Notify.TelegramChatID, appLog)

	checks := map[string]handler.Check{
		"pay_db":  pingDB(payDB),
		"user_db": pingDB(userDB),
	}

	recOpts := []settlement.Option{settlement.WithAlerter(alerter)}
	var breaker *health.SettlementHealth
	// Redis 可选：不可用时只依赖订单表 CAS 认领
	if rdb, err := dal.OpenRedis(cfg.Redis); err != nil {
		appLog.WithError(err).Warn("redis unavailable, reconcile lock disabled")
	} else {
		defer rdb.Close()
		recOpts = append(recOpts, settlement.WithLocker(lock.NewRedisLocker(rdb)))
		breaker = health.NewSettlementHealth(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		checks["settlement"] = breaker.Check
	}

	var (
		publisher event.Publisher = event.Nop{}
		rabbit    *dal.RabbitMQ
	)
	if cfg.RabbitMQ.Enabled {
		rabbit, err = dal.OpenRabbitMQ(cfg.RabbitMQ)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbit.Close()
		publisher = mq.NewPublisher(rabbit)
		recOpts = append(recOpts, settlement.WithPublisher(publisher))
	}

	reconciler := settlement.NewReconciler(ledgerDao, balanceDao, appLog, settlement.Options{
		CallTimeout: time.Duration(cfg.Reconcile.CallTimeoutSec) * time.Second,
		LockTTL:     time.Duration(cfg.Reconcile.LockTTLSec) * time.Second,
		Lease:       time.Duration(cfg.Reconcile.LeaseSec) * time.Second,
	}, recOpts...)

	paymentSvc, err := service.NewPaymentService(ledgerDao, cfg.Gateway, appLog)
	if err != nil {
		log.Fatal(err)
	}
	async := cfg.Reconcile.Async && rabbit != nil
	notifyCb := callback.NewPaymentCallback(ledgerDao, notifyLogDao, reconciler, publisher, alerter, cfg.Gateway, async, appLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// start consumers
	if rabbit != nil {
		consumer := mq.NewReconcileConsumer(reconciler, publisher, alerter, cfg.Reconcile.MaxRetry, cfg.Reconcile.Workers, appLog)
		go consumer.Start(ctx, rabbit)
	}
	if cfg.Reconcile.SweepIntervalSec > 0 {
		sweeper := service.NewSyncSweeper(ledgerDao, reconciler,
			time.Duration(cfg.Reconcile.SweepIntervalSec)*time.Second, cfg.Reconcile.SweepBatch, appLog)
		if breaker != nil {
			sweeper.WithBreaker(breaker)
		}
		go sweeper.Run(ctx)
	}

	// http server
	if cfg.Server.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := handler.NewRouter(handler.Handlers{
		Payment:       handler.NewPaymentHandler(paymentSvc, reconciler, appLog),
		Notify:        handler.NewNotifyHandler(notifyCb),
		Balance:       handler.NewBalanceHandler(service.NewBalanceService(balanceDao)),
		Health:        handler.NewHealthHandler(checks),
		InternalToken: cfg.Security.InternalToken,
		NotifyIPs:     cfg.Gateway.NotifyIPWhitelist,
	}, logger.Access)

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: r}
	go func() {
		appLog.Infof("listening %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("server shutdown failed")
	}
}

func pingDB(db *gorm.DB) handler.Check {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
