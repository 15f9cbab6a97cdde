// Package store keeps the results of measurement runs in a SQLite database,
// so that runs over different devices and settings can be compared later.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/xaionaro-go/audiolat/pkg/latency"
	"github.com/xaionaro-go/audiolat/pkg/pairing"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const DefaultDBFile = "audiolat.sqlite3"

var errStoreNil = errors.New("store is nil")

type Run struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Capture      string `gorm:"index:idx_run_capture"`
	Label        string `gorm:"index:idx_run_label"`
	LeadingLabel string
	Mean         float64
	StdDev       float64
	SampleCount  int
	CreatedAt    time.Time
}

type Pair struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	RunID          string `gorm:"type:varchar(36);index:idx_pair_run"`
	Timestamp      float64
	Latency        float64
	Label          string
	LeadingTime    float64
	LeadingLabel   string
	LevelDB        float64
	LeadingLevelDB float64
}

type Store struct {
	DB *gorm.DB
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("unable to create the directory '%s': %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open the sqlite db '%s': %w", dbPath, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unable to get sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Run{}, &Pair{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("unable to migrate: %w", err)
	}
	return &Store{DB: db, db: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores the summary and the pairs of a run in one transaction and
// returns the ID assigned to the run.
func (s *Store) SaveRun(
	ctx context.Context,
	capture string,
	label string,
	leadingLabel string,
	summary latency.Summary,
	pairs []pairing.MatchedPair,
) (string, error) {
	if s == nil || s.DB == nil {
		return "", errStoreNil
	}

	run := Run{
		ID:           uuid.NewString(),
		Capture:      capture,
		Label:        label,
		LeadingLabel: leadingLabel,
		Mean:         summary.Mean,
		StdDev:       summary.StdDev,
		SampleCount:  summary.SampleCount,
	}
	rows := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, Pair{
			RunID:          run.ID,
			Timestamp:      p.Timestamp,
			Latency:        p.Latency,
			Label:          p.Label,
			LeadingTime:    p.LeadingTime,
			LeadingLabel:   p.LeadingLabel,
			LevelDB:        p.LevelDB,
			LeadingLevelDB: p.LeadingLevelDB,
		})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("unable to create the run: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("unable to insert the pairs: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	logger.Debugf(ctx, "saved run %s (%s, %d pairs)", run.ID, capture, len(rows))
	return run.ID, nil
}

// Runs returns the stored runs, the newest first. An empty label matches
// every run.
func (s *Store) Runs(ctx context.Context, label string) ([]Run, error) {
	if s == nil || s.DB == nil {
		return nil, errStoreNil
	}
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if label != "" {
		q = q.Where("label = ?", label)
	}
	var runs []Run
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("unable to query runs: %w", err)
	}
	return runs, nil
}

// Pairs returns the pairs of the run ordered by timestamp.
func (s *Store) Pairs(ctx context.Context, runID string) ([]pairing.MatchedPair, error) {
	if s == nil || s.DB == nil {
		return nil, errStoreNil
	}
	var rows []Pair
	err := s.DB.WithContext(ctx).Where("run_id = ?", runID).Order("timestamp").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("unable to query the pairs of run %s: %w", runID, err)
	}
	pairs := make([]pairing.MatchedPair, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, pairing.MatchedPair{
			Timestamp:      r.Timestamp,
			Latency:        r.Latency,
			Label:          r.Label,
			LeadingTime:    r.LeadingTime,
			LeadingLabel:   r.LeadingLabel,
			LevelDB:        r.LevelDB,
			LeadingLevelDB: r.LeadingLevelDB,
		})
	}
	return pairs, nil
}

// Summary recomputes the summary of a stored run from its pairs.
func (s *Store) Summary(ctx context.Context, runID string) (latency.Summary, error) {
	pairs, err := s.Pairs(ctx, runID)
	if err != nil {
		return latency.Summary{}, err
	}
	return latency.Summarize(pairs)
}
