package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"BNBPredictionBot/internal/models"
)

type PredictionRepository struct {
	db *gorm.DB
}

// NewPredictionRepository creates a new instance of PredictionRepository
func NewPredictionRepository(db *gorm.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Create adds a new PredictionRecord to the database
func (r *PredictionRepository) Create(rec *models.PredictionRecord) error {
	if rec == nil {
		return errors.New("prediction cannot be nil")
	}
	return r.db.Create(rec).Error
}

// Update modifies an existing PredictionRecord
func (r *PredictionRepository) Update(rec *models.PredictionRecord) error {
	if rec == nil {
		return errors.New("prediction cannot be nil")
	}
	return r.db.Save(rec).Error
}

// FindDue retrieves pending predictions whose horizon has passed
func (r *PredictionRepository) FindDue(now time.Time) ([]models.PredictionRecord, error) {
	var recs []models.PredictionRecord
	err := r.db.Where("status = ? AND resolve_at <= ?", models.PredictionStatusPending, now).
		Order("resolve_at ASC").
		Find(&recs).Error
	return recs, err
}

// FindResolved retrieves the newest limit resolved predictions for a symbol, oldest first
func (r *PredictionRepository) FindResolved(symbol string, limit int) ([]models.PredictionRecord, error) {
	if symbol == "" {
		return nil, errors.New("invalid symbol")
	}
	var recs []models.PredictionRecord
	err := r.db.Where("symbol = ? AND status = ?", symbol, models.PredictionStatusResolved).
		Order("timestamp DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// GetTotalPnL sums the simulated P&L of resolved predictions in a time range
func (r *PredictionRepository) GetTotalPnL(symbol string, start, end time.Time) (float64, error) {
	var total struct {
		Total float64
	}
	err := r.db.Model(&models.PredictionRecord{}).
		Select("COALESCE(SUM(profit_loss), 0) as total").
		Where("symbol = ? AND status = ? AND timestamp BETWEEN ? AND ?",
			symbol, models.PredictionStatusResolved, start, end).
		Scan(&total).Error
	return total.Total, err
}
