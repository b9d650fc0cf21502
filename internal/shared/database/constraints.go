package database

import (
	"fmt"

	"boxoffice/internal/domain"

	"gorm.io/gorm"
)

const (
	pricingTargetConstraint = "chk_show_sector_pricings_one_target"
	ticketShowConstraint    = "fk_tickets_show"
)

// MigrateConstraints adds the constraints the capacity ledger relies on.
func MigrateConstraints(db *gorm.DB) error {
	// At most one live ticket per (show, seat). A losing concurrent insert
	// fails with a unique violation instead of double booking.
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS ux_tickets_live_seat
		ON tickets (show_id, seat_id)
		WHERE seat_id IS NOT NULL AND state IN ('IN_CART', 'RESERVED', 'PURCHASED');
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create live seat index: %w", err)
	}

	// Standing occupancy counts and the reservation sweeper scan by these columns.
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tickets_live_standing
		ON tickets (show_id, standing_sector_id)
		WHERE standing_sector_id IS NOT NULL AND state IN ('IN_CART', 'RESERVED', 'PURCHASED');
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create standing index: %w", err)
	}
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tickets_stale
		ON tickets (created_at)
		WHERE state IN ('IN_CART', 'RESERVED');
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create stale ticket index: %w", err)
	}

	// A pricing row targets exactly one of sector / standing sector.
	if !db.Migrator().HasConstraint(&domain.ShowSectorPricing{}, pricingTargetConstraint) {
		err = db.Exec(`ALTER TABLE show_sector_pricings ADD CONSTRAINT ` + pricingTargetConstraint +
			` CHECK ((sector_id IS NULL) <> (standing_sector_id IS NULL))`).Error
		if err != nil {
			return fmt.Errorf("failed to add pricing target constraint: %w", err)
		}
	}

	// Tickets keep their show alive. A ticket insert racing a show delete
	// either blocks the delete or fails itself.
	if !db.Migrator().HasConstraint(&domain.Ticket{}, ticketShowConstraint) {
		err = db.Exec(`ALTER TABLE tickets ADD CONSTRAINT ` + ticketShowConstraint +
			` FOREIGN KEY (show_id) REFERENCES shows (id) ON DELETE RESTRICT`).Error
		if err != nil {
			return fmt.Errorf("failed to add ticket show constraint: %w", err)
		}
	}

	return nil
}
