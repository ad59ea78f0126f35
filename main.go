package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/beka-birhanu/ohrace/config"
	"github.com/beka-birhanu/ohrace/infrastruture/pubsub"
	"github.com/beka-birhanu/ohrace/infrastruture/repo"
	"github.com/beka-birhanu/ohrace/infrastruture/sortedstorage"
	"github.com/beka-birhanu/ohrace/infrastruture/telemetry"
	"github.com/beka-birhanu/ohrace/logger"
	"github.com/beka-birhanu/ohrace/service"
	"github.com/beka-birhanu/ohrace/service/i"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
)

const (
	meterName   = "github.com/beka-birhanu/ohrace"
	redisPrefix = "ohrace"
	connTimeout = 10 * time.Second
)

// Global variables for dependencies
var (
	mongoClient  *mongo.Client
	redisClient  *redis.Client
	episodeRepo  i.EpisodeRepo
	leaderboard  i.Leaderboard
	publisher    *pubsub.RedisStepPublisher
	metrics      *telemetry.Recorder
	meters       *telemetry.Provider
	batchRunner  *service.BatchRunner
	appLogger    i.Logger
	batchLogger  i.Logger
	storeDriver  string
	workersCount int
)

func initMongo(ctx context.Context) {
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%v", config.Envs.DBUser, config.Envs.DBPassword, config.Envs.DBHost, config.Envs.DBPort)

	ctx, cancel := context.WithTimeout(ctx, connTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	var err error
	mongoClient, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Failed to connect to MongoDB: %v", err))
		os.Exit(1)
	}
	if err = mongoClient.Ping(ctx, nil); err != nil {
		appLogger.Error(fmt.Sprintf("MongoDB ping failed: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Connected to MongoDB")
}

func initEpisodeRepo(ctx context.Context) {
	if storeDriver == repo.DriverMongo {
		initMongo(ctx)
	}

	var err error
	episodeRepo, err = repo.NewEpisodeRepo(ctx, repo.Settings{
		Driver:     storeDriver,
		SQLitePath: config.Envs.SQLitePath,
		Mongo:      mongoClient,
		DBName:     config.Envs.DBName,
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating episode repository: %v", err))
		os.Exit(1)
	}
	appLogger.Info(fmt.Sprintf("Episode repository initialized (%s)", storeDriver))
}

// initRedis connects to Redis when an address is configured. Without it the
// leaderboard and the live step stream stay disabled.
func initRedis(ctx context.Context) {
	if config.Envs.RedisAddr == "" {
		appLogger.Warning("REDIS_ADDR is not set, leaderboard and step stream disabled")
		return
	}

	redisClient = redis.NewClient(&redis.Options{
		Addr:     config.Envs.RedisAddr,
		Password: config.Envs.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(ctx, connTimeout)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		appLogger.Error(fmt.Sprintf("Redis ping failed: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Connected to Redis")
}

func initLeaderboard() {
	if redisClient == nil {
		return
	}
	board, err := sortedstorage.NewRedisLeaderboard(redisClient, redisPrefix, int64(config.Envs.LeaderboardSize))
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating leaderboard: %v", err))
		os.Exit(1)
	}
	leaderboard = board
	appLogger.Info("Leaderboard initialized")
}

func initPublisher() {
	if redisClient == nil {
		return
	}
	pubLogger, err := logger.New("STEP-STREAM", config.ColorCyan, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating step stream logger: %v", err))
		os.Exit(1)
	}
	publisher, err = pubsub.NewRedisStepPublisher(redisClient, redisPrefix, pubLogger)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating step publisher: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Step publisher initialized")
}

// initTelemetry installs an SDK meter provider; reportTelemetry logs what it collected.
func initTelemetry() {
	meters = telemetry.NewProvider()
	otel.SetMeterProvider(meters.MeterProvider())

	var err error
	metrics, err = telemetry.NewRecorder(otel.Meter(meterName))
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating telemetry recorder: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Telemetry initialized")
}

func initBatchRunner(recorders service.RecorderFactory) {
	var err error
	batchLogger, err = logger.New("BATCH", config.ColorPurple, os.Stdout)
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating batch logger: %v", err))
		os.Exit(1)
	}

	shared := sim.MultiRecorder{metrics}
	if publisher != nil {
		shared = append(shared, publisher)
	}

	batchRunner, err = service.NewBatchRunner(batchLogger, &service.BatchOptions{
		Workers:     workersCount,
		Repo:        episodeRepo,
		Leaderboard: leaderboard,
		Recorders:   recorders,
		Shared:      shared,
	})
	if err != nil {
		appLogger.Error(fmt.Sprintf("Creating batch runner: %v", err))
		os.Exit(1)
	}
	appLogger.Info("Batch runner initialized")
}

func reportTelemetry(ctx context.Context) {
	if meters == nil {
		return
	}
	totals, err := meters.Snapshot(ctx)
	if err != nil {
		appLogger.Warning(fmt.Sprintf("Reading metrics: %v", err))
		return
	}
	for _, t := range totals {
		appLogger.Info(t.String())
	}
}

// closeAll releases every connection opened by the init functions.
func closeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()

	if meters != nil {
		if err := meters.Shutdown(ctx); err != nil {
			appLogger.Warning(fmt.Sprintf("Stopping telemetry: %v", err))
		}
	}
	if err := repo.CloseIfSupported(episodeRepo); err != nil {
		appLogger.Warning(fmt.Sprintf("Closing episode repository: %v", err))
	}
	if mongoClient != nil {
		_ = mongoClient.Disconnect(ctx)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

func main() {
	appLogger, _ = logger.New("APP", config.ColorGreen, os.Stdout)

	if err := Execute(context.Background()); err != nil {
		appLogger.Error(err.Error())
		os.Exit(1)
	}
}
