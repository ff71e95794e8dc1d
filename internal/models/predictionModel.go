package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PredictionRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Symbol          string    `gorm:"index;not null" json:"symbol"`
	Timestamp       time.Time `gorm:"index;not null" json:"timestamp"`
	Direction       string    `gorm:"not null" json:"prediction"`
	Confidence      float64   `gorm:"type:decimal(10,4)" json:"confidence"`
	CurrentPrice    float64   `gorm:"type:decimal(20,8)" json:"currentPrice"`
	PredictedPrice  float64   `gorm:"type:decimal(20,8)" json:"predictedPrice"`
	ActualPrice     float64   `gorm:"type:decimal(20,8)" json:"actualPrice"`
	ActualChange    float64   `gorm:"type:decimal(12,6)" json:"actualChange"`
	Correct         bool      `json:"correct"`
	ProfitLoss      float64   `gorm:"type:decimal(20,8)" json:"profitLoss"`
	MarketCondition string    `json:"marketCondition"`
	Status          string    `gorm:"index;not null" json:"-"`
	ResolveAt       time.Time `gorm:"index" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

const (
	PredictionStatusPending  = "pending"
	PredictionStatusResolved = "resolved"

	DirectionUp   = "UP"
	DirectionDown = "DOWN"

	ConditionTrending = "TRENDING"
	ConditionRanging  = "RANGING"
	ConditionVolatile = "VOLATILE"
)

// BeforeCreate assigns an ID when the caller did not
func (p *PredictionRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName sets the table name for PredictionRecord model
func (PredictionRecord) TableName() string {
	return "predictions"
}
