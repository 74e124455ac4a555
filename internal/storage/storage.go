// Package storage persists jobs and their log lines for the dashboard
// service. The DSN selects the backend: postgres:// URLs open Postgres,
// anything else is a SQLite path.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jobdeck/jobdeck/internal/core/domain"
)

// JobRecord is one automation run row.
type JobRecord struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	JobName     string `gorm:"index"`
	Scope       string
	TriggeredBy string
	Status      string    `gorm:"default:running"`
	Progress    float64   `gorm:"default:0"`
	StartTime   time.Time `gorm:"index"`
	EndTime     *time.Time
}

func (JobRecord) TableName() string { return "jobs" }

// LogRecord is one log line belonging to a job.
type LogRecord struct {
	ID      int64 `gorm:"primaryKey;autoIncrement"`
	JobID   int64 `gorm:"index"`
	TS      time.Time
	Level   string `gorm:"default:info"`
	Message string `gorm:"type:text"`
}

func (LogRecord) TableName() string { return "job_logs" }

// Wire converts a row to the JSON shape the API and the live channel share.
func (r JobRecord) Wire() domain.Job {
	j := domain.Job{
		ID:          r.ID,
		Name:        r.JobName,
		Scope:       domain.ParseScope(r.Scope),
		TriggeredBy: r.TriggeredBy,
		Status:      r.Status,
		Progress:    domain.RawProgress(strconv.FormatFloat(r.Progress, 'f', -1, 64)),
		StartTime:   r.StartTime.UTC().Format(time.RFC3339Nano),
	}
	if r.EndTime != nil {
		j.EndTime = r.EndTime.UTC().Format(time.RFC3339Nano)
	}
	return j
}

// Wire converts a log row to its wire shape.
func (r LogRecord) Wire() domain.LogEntry {
	return domain.LogEntry{
		JobID:   r.JobID,
		TS:      r.TS.UTC().Format(time.RFC3339Nano),
		Level:   r.Level,
		Message: r.Message,
	}
}

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("job not found")

type Storage struct {
	db *gorm.DB
}

// Open connects and migrates the schema.
func Open(dsn string) (*Storage, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := db.AutoMigrate(&JobRecord{}, &LogRecord{}); err != nil {
		return nil, fmt.Errorf("migrate storage: %w", err)
	}
	return &Storage{db: db}, nil
}

// CreateJob inserts a new running job.
func (s *Storage) CreateJob(ctx context.Context, name, scope, triggeredBy string) (*JobRecord, error) {
	rec := &JobRecord{
		JobName:     name,
		Scope:       scope,
		TriggeredBy: triggeredBy,
		Status:      "running",
		StartTime:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return rec, nil
}

// GetJob fetches one job by id.
func (s *Storage) GetJob(ctx context.Context, id int64) (*JobRecord, error) {
	var rec JobRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return &rec, nil
}

// UpdateJob saves a full record.
func (s *Storage) UpdateJob(ctx context.Context, rec *JobRecord) error {
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("update job %d: %w", rec.ID, err)
	}
	return nil
}

// AppendLog adds a log line for a job. A blank level defaults to "info".
func (s *Storage) AppendLog(ctx context.Context, jobID int64, level, message string) (*LogRecord, error) {
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	rec := &LogRecord{
		JobID:   jobID,
		TS:      time.Now().UTC(),
		Level:   level,
		Message: message,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("append log for job %d: %w", jobID, err)
	}
	return rec, nil
}

// JobsSince lists jobs with start_time at or after cutoff, newest first. A
// zero cutoff lists everything.
func (s *Storage) JobsSince(ctx context.Context, cutoff time.Time) ([]JobRecord, error) {
	q := s.db.WithContext(ctx).Order("start_time desc")
	if !cutoff.IsZero() {
		q = q.Where("start_time >= ?", cutoff)
	}
	var recs []JobRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return recs, nil
}

// JobLogs lists a job's log lines oldest first. limit <= 0 returns all.
func (s *Storage) JobLogs(ctx context.Context, jobID int64, limit, offset int) ([]LogRecord, error) {
	q := s.db.WithContext(ctx).Where("job_id = ?", jobID).Order("ts asc, id asc")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []LogRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list logs for job %d: %w", jobID, err)
	}
	return recs, nil
}
