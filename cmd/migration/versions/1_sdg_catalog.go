package versions

import (
	"sustainboard/board/schema"

	"gorm.io/gorm"
)

// Migration_1_sdg_catalog backfills the fixed UN SDG catalog on databases
// created before the catalog table was seeded at startup.
func Migration_1_sdg_catalog(txn *gorm.DB) error {
	if err := txn.AutoMigrate(&schema.Sdg{}); err != nil {
		return err
	}

	return schema.SeedSdgs(txn)
}
