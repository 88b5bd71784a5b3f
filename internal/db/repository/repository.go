package repository

import (
	"errors"
	"time"

	"facesplit/internal/core/models"

	"gorm.io/gorm"
)

// Repository definiert die Schnittstelle für die Datenbank-Operationen
type Repository interface {
	// Run-Methoden
	CreateRun(run *models.AnalysisRun) error
	FinishRun(id uint, finishedAt time.Time) error
	GetRunByID(id uint) (*models.AnalysisRun, error)
	GetRuns(limit, offset int) ([]models.AnalysisRun, int64, error)
	DeleteRunsBefore(cutoff time.Time) (int64, error)

	// Segment-Methoden
	SaveSegment(record *models.SegmentRecord) error

	// Statistik-Methoden
	GetStatistics() (Statistics, error)
}

// Statistics fasst den Inhalt der Datenbank zusammen
type Statistics struct {
	Runs         int64 `json:"runs"`
	Segments     int64 `json:"segments"`
	SplitSegment int64 `json:"split_segments"`
}

// SQLiteRepository implementiert die Repository-Schnittstelle für SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository erstellt eine neue SQLite-Repository-Instanz
func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateRun legt einen neuen Lauf an und setzt dessen ID
func (r *SQLiteRepository) CreateRun(run *models.AnalysisRun) error {
	return r.db.Create(run).Error
}

// FinishRun setzt den Endzeitpunkt eines Laufs
func (r *SQLiteRepository) FinishRun(id uint, finishedAt time.Time) error {
	result := r.db.Model(&models.AnalysisRun{}).Where("id = ?", id).Update("finished_at", finishedAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetRunByID holt einen Lauf mit seinen Segmenten in Segmentreihenfolge.
// Ein unbekannter Lauf ergibt nil, nil.
func (r *SQLiteRepository) GetRunByID(id uint) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	result := r.db.Preload("Segments", func(db *gorm.DB) *gorm.DB {
		return db.Order("segment_index ASC")
	}).First(&run, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &run, nil
}

// GetRuns holt Läufe mit Pagination, neueste zuerst, ohne Segmente
func (r *SQLiteRepository) GetRuns(limit, offset int) ([]models.AnalysisRun, int64, error) {
	var runs []models.AnalysisRun
	var total int64

	if err := r.db.Model(&models.AnalysisRun{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	result := r.db.Order("started_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&runs)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return runs, total, nil
}

// DeleteRunsBefore löscht Läufe, die vor cutoff gestartet wurden, samt Segmenten
func (r *SQLiteRepository) DeleteRunsBefore(cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&models.AnalysisRun{}).Where("started_at < ?", cutoff).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Unscoped().Where("run_id IN ?", ids).Delete(&models.SegmentRecord{}).Error; err != nil {
			return err
		}
		result := tx.Unscoped().Where("id IN ?", ids).Delete(&models.AnalysisRun{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}

// SaveSegment speichert ein Segmentergebnis
func (r *SQLiteRepository) SaveSegment(record *models.SegmentRecord) error {
	return r.db.Create(record).Error
}

// GetStatistics zählt Läufe und Segmente
func (r *SQLiteRepository) GetStatistics() (Statistics, error) {
	var stats Statistics
	if err := r.db.Model(&models.AnalysisRun{}).Count(&stats.Runs).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.SegmentRecord{}).Count(&stats.Segments).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.SegmentRecord{}).Where("mode = ?", string(models.ModeSplit)).Count(&stats.SplitSegment).Error; err != nil {
		return stats, err
	}
	return stats, nil
}
