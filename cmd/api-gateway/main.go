package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/sala-school/timetable-api/internal/handler"
	internalmiddleware "github.com/sala-school/timetable-api/internal/middleware"
	"github.com/sala-school/timetable-api/internal/repository"
	"github.com/sala-school/timetable-api/internal/service"
	"github.com/sala-school/timetable-api/pkg/cache"
	"github.com/sala-school/timetable-api/pkg/config"
	"github.com/sala-school/timetable-api/pkg/database"
	"github.com/sala-school/timetable-api/pkg/lock"
	"github.com/sala-school/timetable-api/pkg/logger"
	corsmiddleware "github.com/sala-school/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sala-school/timetable-api/pkg/middleware/requestid"
)

const generationLockKey = "timetable:generation:lock"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	runLock := lock.RunLock(lock.NewLocalLock())
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close() //nolint:errcheck
		runLock = lock.NewRedisLock(redisClient, generationLockKey, cfg.Solver.LockTTL)
	}

	metricsSvc := service.NewMetricsService()

	timetableSvc := service.NewTimetableService(
		repository.NewGroupRepository(db),
		repository.NewSubjectRepository(db),
		repository.NewTimeSlotRepository(db),
		repository.NewRegistrationRepository(db),
		repository.NewTeachingAssignmentRepository(db),
		repository.NewRoomRepository(db),
		repository.NewScheduleEntryRepository(db),
		db,
		nil,
		runLock,
		validator.New(),
		logr,
		metricsSvc,
		cfg.Solver,
	)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/timetable/generate", timetableHandler.Generate)
		api.GET("/timetable", timetableHandler.Schedule)
		api.GET("/timetable/groups/:id", timetableHandler.GroupSchedule)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
