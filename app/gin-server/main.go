package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/joblens/joblens/config"
	"github.com/joblens/joblens/internal/api/handlers"
	"github.com/joblens/joblens/internal/api/middleware"
	"github.com/joblens/joblens/internal/api/routes"
	"github.com/joblens/joblens/internal/cache"
	"github.com/joblens/joblens/internal/logger"
	"github.com/joblens/joblens/internal/matching"
	mongorepo "github.com/joblens/joblens/internal/repositories/mongo"
	pgrepo "github.com/joblens/joblens/internal/repositories/postgres"
	"github.com/joblens/joblens/internal/services"
	"github.com/joblens/joblens/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	db, err := config.InitPostgres()
	if err != nil {
		log.WithError(err).Fatal("PostgreSQL init failed")
	}
	log.Info("PostgreSQL connected")

	rdb, err := config.InitRedis()
	if err != nil {
		log.WithError(err).Fatal("Redis init failed")
	}
	log.Info("Redis connected")

	mongoClient, err := config.InitMongo()
	if err != nil {
		log.WithError(err).Fatal("MongoDB init failed")
	}
	log.Info("MongoDB connected")

	mongoDB := config.MongoDatabase(mongoClient)
	if err := config.EnsureMongoIndexes(mongoDB); err != nil {
		log.WithError(err).Fatal("MongoDB index bootstrap failed")
	}

	matchCfg := matching.DefaultConfig()
	if err := matchCfg.Validate(); err != nil {
		log.WithError(err).Fatal("matching config invalid")
	}

	// Repositories
	profiles := pgrepo.NewProfileRepo(db)
	jobs := pgrepo.NewJobRepo(db)
	histories := pgrepo.NewHistoryRepo(db)
	interactions := mongorepo.NewInteractionRepo(mongoDB)

	// Core matching pipeline
	analyzer := matching.NewBehaviorAnalyzer(matchCfg, log)
	model := matching.NewModel(matchCfg)
	scorer, err := matching.NewCompositeScorer(matchCfg, log)
	if err != nil {
		log.WithError(err).Fatal("composite scorer init failed")
	}

	// Services
	respCache := cache.NewRedisCache(rdb)
	trainer := services.NewTrainingService(interactions, profiles, analyzer, model, matchCfg, log)
	recorder := services.NewHistoryService(histories, interactions, respCache, log)
	matcher := services.NewMatchService(profiles, jobs, histories, interactions, recorder, trainer, scorer, analyzer, respCache, matchCfg, log)
	metrics := services.NewMetricsService(histories, log)
	profileSvc := services.NewProfileService(profiles)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	trainWorker := &workers.TrainingWorker{Trainer: trainer, Logger: log}
	if err := trainWorker.Start(ctx); err != nil {
		log.WithError(err).Fatal("training worker failed to start")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Match:       handlers.NewMatchHandler(matcher),
		Interaction: handlers.NewInteractionHandler(recorder),
		Metrics:     handlers.NewMetricsHandler(metrics),
		Profile:     handlers.NewProfileHandler(profileSvc),
		Admin:       handlers.NewAdminHandler(trainer),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
