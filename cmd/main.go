package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"reward-service/internal/config"
	"reward-service/internal/database/minio"
	"reward-service/internal/database/postgres"
	"reward-service/internal/database/redis"
	"reward-service/internal/event"
	"reward-service/internal/handlers"
	"reward-service/internal/repository"
	"reward-service/internal/services"
	"reward-service/internal/worker"

	"github.com/gofiber/fiber/v3"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
)

func setupLogging() (*os.File, error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
		}
	}()

	logDir := filepath.Join("/joyo", "log", "reward_service")
	fmt.Println("Log directory:", logDir)
	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.New()

	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		log.Printf("error connect to database: %s", err)
		go postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}

	// Redis is optional: the verification state cache degrades to direct
	// database reads without it.
	var redisClient *goredis.Client
	redisWrapper, err := redis.NewRedisClient(cfg.RedisCfg)
	if err != nil {
		log.Printf("error connect to redis, continuing without cache: %s", err)
	} else {
		redisClient = redisWrapper.GetClient()
		defer redisWrapper.Close()
	}

	// MinIO is optional: without it planting photos are accepted but not
	// stored.
	minioClient, err := minio.NewMinioClient(cfg.MinioCfg)
	if err != nil {
		log.Printf("error connect to minio, continuing without object storage: %s", err)
		minioClient = nil
	}

	// RabbitMQ is optional: the publisher drops events without a broker.
	var rabbitConn *event.RabbitMQConnection
	rabbitConn, err = event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err != nil {
		log.Printf("error connect to rabbitmq, continuing without events: %s", err)
		rabbitConn = nil
	} else {
		defer rabbitConn.Close()
	}
	publisher := event.NewRewardPublisher(rabbitConn)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	plantRepo := repository.NewPlantRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	scanRepo := repository.NewScanRecordRepository(db)
	profileRepo := repository.NewLocationProfileRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	verificationRepo := repository.NewVerificationRepository(db, redisClient)

	// Services
	ledgerService := services.NewLedgerService(ledgerRepo, userRepo, plantRepo, cfg.RewardCfg)
	streakService := services.NewStreakService(streakRepo)
	throttleService := services.NewScanThrottleService(scanRepo, cfg.RewardCfg)
	locationService := services.NewLocationService(profileRepo, activityRepo, cfg.RewardCfg)
	fraudService := services.NewFraudService(services.NewRuleBasedValidator(), activityRepo)
	verificationService := services.NewVerificationService(
		plantRepo, activityRepo, verificationRepo,
		ledgerService, streakService, throttleService, locationService, fraudService,
		publisher, cfg.RewardCfg,
	)
	plantService := services.NewPlantService(
		userRepo, plantRepo, streakRepo, activityRepo, ledgerRepo,
		ledgerService, locationService, minioClient, cfg.RewardCfg,
	)

	// Background ledger audit
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var managerWg sync.WaitGroup
	pool := worker.NewWorkingPool(2, 16)
	managerWg.Add(1)
	go pool.Start(ctx, &managerWg)

	auditScheduler := worker.NewJobScheduler("ledger-audit", time.Hour, pool)
	auditScheduler.AddJob(worker.NewLedgerAuditJob(userRepo))
	go auditScheduler.Run(ctx)

	// HTTP
	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Reward service is healthy")
	})

	handlers.NewPlantHandler(plantService).Register(app)
	handlers.NewRewardsHandler(ledgerService, streakService, throttleService).Register(app)
	handlers.NewVerificationHandler(verificationService).Register(app)

	log.Printf("Reward service listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
