// Package postgres exports finished runs into a PostgreSQL database for
// downstream reporting.
package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/transportresilience/rdr/internal/types"
)

// batchSize bounds the rows sent in one INSERT
const batchSize = 500

// Exporter writes runs into PostgreSQL
type Exporter struct {
	DB     *gorm.DB
	logger *zap.SugaredLogger
}

// Connect opens the database and creates the export tables if needed
func Connect(dsn string, log *zap.SugaredLogger) (*Exporter, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.Desugar()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to PostgreSQL...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("unable to connect to PostgreSQL: %w", err)
	}

	if err := db.AutoMigrate(&RunRow{}, &ResultRow{}, &DamageRow{}, &SummaryRow{}); err != nil {
		return nil, fmt.Errorf("failed to create export tables: %w", err)
	}
	log.Info("PostgreSQL connection successful")

	return &Exporter{DB: db, logger: log}, nil
}

// Export replaces everything previously exported for the run
func (e *Exporter) Export(ctx context.Context, run types.Run, results []types.BenefitCostResult, summary []types.RankedSummary) error {
	resRows, dmgRows := resultRows(run.ID, results)
	sumRows := summaryRows(run.ID, summary)

	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&SummaryRow{}, &DamageRow{}, &ResultRow{}} {
			if err := tx.Where("run_id = ?", run.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id = ?", run.ID).Delete(&RunRow{}).Error; err != nil {
			return err
		}

		row := runRow(run)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if len(resRows) > 0 {
			if err := tx.CreateInBatches(resRows, batchSize).Error; err != nil {
				return err
			}
		}
		if len(dmgRows) > 0 {
			if err := tx.CreateInBatches(dmgRows, batchSize).Error; err != nil {
				return err
			}
		}
		if len(sumRows) > 0 {
			if err := tx.CreateInBatches(sumRows, batchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to export run %s: %w", run.ID, err)
	}

	e.logger.Infow("run exported to PostgreSQL",
		"run", run.ID, "results", len(resRows), "damage", len(dmgRows), "summary", len(sumRows))
	return nil
}

// Close releases the connection pool
func (e *Exporter) Close() error {
	db, err := e.DB.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
