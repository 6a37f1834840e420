package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/andrewpaige1/studyplan-api/logger"
	"github.com/andrewpaige1/studyplan-api/models"
	"github.com/andrewpaige1/studyplan-api/utils"
)

// Scheduler wraps cron-based background jobs. Specs include a seconds field.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location
}

func New(loc *time.Location) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		loc:  loc,
	}
}

func (s *Scheduler) Schedule(expr string, job func()) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(expr, job)
	if err != nil {
		return 0, errors.Wrapf(err, "scheduler: invalid cron expression %q", expr)
	}
	return id, nil
}

// ScheduleArchive runs ArchiveExpired on expr.
func (s *Scheduler) ScheduleArchive(expr string, db *gorm.DB, now func() time.Time) (cron.EntryID, error) {
	return s.Schedule(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := ArchiveExpired(ctx, db, now(), s.loc)
		if err != nil {
			logger.Report("archive job failed", err, nil)
			return
		}
		if n > 0 {
			logger.Info("archived expired study blocks", "count", n)
		}
	})
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ArchiveExpired moves ACTIVE blocks whose test date lies before today to
// ARCHIVED and returns how many changed.
func ArchiveExpired(ctx context.Context, db *gorm.DB, now time.Time, loc *time.Location) (int64, error) {
	today := utils.StartOfDay(now, loc).UTC()
	res := db.WithContext(ctx).
		Model(&models.StudyBlock{}).
		Where("status = ? AND end_date < ?", models.StatusActive, today).
		Update("status", models.StatusArchived)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "scheduler: archive expired blocks")
	}
	return res.RowsAffected, nil
}
