package db

import (
	"gorm.io/gorm"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
)

// AutoMigrateAll creates the five-table layout. The unique indexes declared on
// the models (document digest, party tax id, party kind+normalized name, the
// full document_links tuple) are the binding correctness contract; application
// code treats conflicts on them as authoritative.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Document{},
		&domain.Party{},
		&domain.Role{},
		&domain.Commitment{},
		&domain.DocumentLink{},
		&domain.Interaction{},
	)
}
