// Command generate runs a single timetable generation pass against the
// configured database and exits. It is meant for cron jobs and operator
// one-offs; the API gateway exposes the same operation over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sala-school/timetable-api/internal/dto"
	"github.com/sala-school/timetable-api/internal/repository"
	"github.com/sala-school/timetable-api/internal/service"
	"github.com/sala-school/timetable-api/pkg/cache"
	"github.com/sala-school/timetable-api/pkg/config"
	"github.com/sala-school/timetable-api/pkg/database"
	"github.com/sala-school/timetable-api/pkg/lock"
	"github.com/sala-school/timetable-api/pkg/logger"
)

const generationLockKey = "timetable:generation:lock"

func main() {
	budgetSeconds := flag.Int("budget", 0, "solver time budget in seconds (0 uses the configured default)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

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

	svc := service.NewTimetableService(
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
		nil,
		logr,
		nil,
		cfg.Solver,
	)

	started := time.Now()
	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{TimeBudgetSeconds: *budgetSeconds})
	if err != nil {
		logr.Error("generation failed", zap.Error(err))
		os.Exit(1)
	}

	logr.Info("generation finished",
		zap.String("status", resp.Status),
		zap.Int("scheduled_entries", resp.ScheduledCount),
		zap.Int("skipped_oversized", len(resp.SkippedOversized)),
		zap.Int("skipped_no_slot", len(resp.SkippedNoSlot)),
		zap.Int("variables", resp.VariableCount),
		zap.Int64("solve_wall_time_ms", resp.SolveWallTimeMS),
		zap.Duration("total_time", time.Since(started)),
	)

	for _, skip := range resp.SkippedOversized {
		logr.Warn("subject exceeds daily capacity",
			zap.String("group", skip.GroupID),
			zap.String("subject", skip.SubjectID),
			zap.Int("duration", skip.Duration),
		)
	}
	for _, skip := range resp.SkippedNoSlot {
		logr.Warn("no valid slot for subject",
			zap.String("group", skip.GroupID),
			zap.String("subject", skip.SubjectID),
		)
	}
}
