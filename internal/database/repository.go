package database

import (
	"strings"
	"time"

	"github.com/actionsum/sac/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for activity records
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new activity record into the database
func (r *Repository) Create(record *models.ActivityRecord) error {
	record.Label = strings.ToLower(strings.TrimSpace(record.Label))
	result := r.db.Create(record)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert activity record")
	}
	return nil
}

// GetByID retrieves an activity record by its ID
func (r *Repository) GetByID(id uint) (*models.ActivityRecord, error) {
	var record models.ActivityRecord
	result := r.db.First(&record, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get activity record")
	}
	return &record, nil
}

// GetSince retrieves activity records since a given time, newest first.
// A limit of zero or less returns every matching record.
func (r *Repository) GetSince(since time.Time, limit int) ([]*models.ActivityRecord, error) {
	var records []*models.ActivityRecord
	q := r.db.Where("timestamp >= ?", since).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if result := q.Find(&records); result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query activity records")
	}

	return records, nil
}

// GetLabelSummaryBetween returns time per label in [start, end).
// Uses SQL SUM; the reporter derives minutes, hours and percentages.
func (r *Repository) GetLabelSummaryBetween(start, end time.Time) ([]models.LabelSummary, error) {
	var summaries []models.LabelSummary

	result := r.db.Model(&models.ActivityRecord{}).
		Select("label, SUM(duration) as total_seconds, COUNT(*) as cycle_count").
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Group("label").
		Order("total_seconds DESC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query label summary")
	}

	return summaries, nil
}

// DeleteOlderThan deletes records older than a specified date (soft delete)
func (r *Repository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.ActivityRecord{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old records")
	}
	return result.RowsAffected, nil
}

// GetLatest retrieves the most recent activity record, or nil when there is none
func (r *Repository) GetLatest() (*models.ActivityRecord, error) {
	var record models.ActivityRecord
	result := r.db.Order("timestamp DESC").First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest record")
	}
	return &record, nil
}

// Count returns the number of live activity records
func (r *Repository) Count() (int64, error) {
	var n int64
	if result := r.db.Model(&models.ActivityRecord{}).Count(&n); result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count activity records")
	}
	return n, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// CountErrorsBetween returns the number of error logs in [start, end)
func (r *Repository) CountErrorsBetween(start, end time.Time) (int64, error) {
	var n int64
	result := r.db.Model(&models.ErrorLog{}).
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Count(&n)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count error logs")
	}
	return n, nil
}

// Clear removes all activity records and error logs from the database
func (r *Repository) Clear() error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM activity_records").Error; err != nil {
			return errors.Wrap(err, "failed to clear activity records")
		}
		if err := tx.Exec("DELETE FROM error_logs").Error; err != nil {
			return errors.Wrap(err, "failed to clear error logs")
		}
		return nil
	})
}
