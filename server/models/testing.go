package models

import (
	"log"
	"os"

	"github.com/Daskott/kavach/shared"
)

// InitializeTestDb points the package at a fresh encrypted sqlite database
// in a temp directory.
func InitializeTestDb() {
	dir, err := os.MkdirTemp("", "kavach-test-")
	if err != nil {
		log.Panic(err)
	}

	err = AutoMigrate(shared.DatabaseConfig{Driver: shared.SQLITE_DRIVER, PassPhrase: "test-passphrase"}, dir)
	if err != nil {
		log.Panic(err)
	}
}

// SetActivationCount moves the activation counter, letting tests reach the
// priced tiers without activating hundreds of profiles.
func SetActivationCount(value int) error {
	return db.Model(&ActivationCounter{}).Where("id = ?", ACTIVATION_COUNTER_ID).
		UpdateColumn("value", value).Error
}
