package database

import (
	"boxoffice/internal/domain"

	"gorm.io/gorm"
)

// Migrate creates or updates the schema and the constraints gorm tags cannot express.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Hall{},
		&domain.Sector{},
		&domain.Seat{},
		&domain.StandingSector{},
		&domain.Event{},
		&domain.Show{},
		&domain.ShowSectorPricing{},
		&domain.Ticket{},
		&domain.Order{},
		&domain.CancellationInvoice{},
		&domain.CancellationInvoiceItem{},
	)
	if err != nil {
		return err
	}
	return MigrateConstraints(db)
}
