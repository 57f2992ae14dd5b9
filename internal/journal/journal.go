// Package journal persists approved orders and settled fills to postgres
// for post-trade analysis. The journal is optional: the trading path
// works without it and journal failures never block order flow.
package journal

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"main/internal/model"
)

// OrderRecord is the persisted form of an approved order.
type OrderRecord struct {
	ID         uint64 `gorm:"primaryKey"`
	Symbol     string `gorm:"index"`
	Side       string
	Quantity   string
	Price      string
	ReduceOnly bool
	Strategy   string
	CreatedAt  time.Time
}

func (OrderRecord) TableName() string { return "orders" }

// FillRecord is the persisted form of a settled fill with its realized
// P&L contribution.
type FillRecord struct {
	FillID      uint64 `gorm:"primaryKey"`
	OrderID     uint64 `gorm:"index"`
	Symbol      string `gorm:"index"`
	Side        string
	Price       string
	Quantity    string
	RealizedPnL string
	FilledAt    time.Time
}

func (FillRecord) TableName() string { return "fills" }

// Journal writes trade records through a gorm connection pool.
type Journal struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the journal tables.
func Open(dsn string) (*Journal, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open journal database")
	}
	if err := db.AutoMigrate(&OrderRecord{}, &FillRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate journal tables")
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordOrder persists an approved order.
func (j *Journal) RecordOrder(ctx context.Context, order model.Order) error {
	if j == nil || j.db == nil {
		return nil
	}
	rec := OrderRecord{
		ID:         order.ID,
		Symbol:     order.Symbol,
		Side:       order.Side.String(),
		Quantity:   order.Quantity.String(),
		Price:      order.Price.String(),
		ReduceOnly: order.ReduceOnly,
		Strategy:   order.Strategy,
		CreatedAt:  order.CreatedAt,
	}
	if err := j.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return errors.Wrapf(err, "record order %d", order.ID)
	}
	return nil
}

// RecordFill persists a settled fill.
func (j *Journal) RecordFill(ctx context.Context, fill model.Fill, realizedPnL decimal.Decimal) error {
	if j == nil || j.db == nil {
		return nil
	}
	rec := FillRecord{
		FillID:      fill.FillID,
		OrderID:     fill.OrderID,
		Symbol:      fill.Symbol,
		Side:        fill.Side.String(),
		Price:       fill.Price.String(),
		Quantity:    fill.Quantity.String(),
		RealizedPnL: realizedPnL.String(),
		FilledAt:    fill.Timestamp,
	}
	if err := j.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return errors.Wrapf(err, "record fill %d", fill.FillID)
	}
	return nil
}
