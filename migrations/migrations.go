package migrations

import (
	"database/sql"
	"fmt"
)

var db *sql.DB

// Init sets the DB connection used by Migrate
func Init(database *sql.DB) {
	db = database
}

// Migrate creates required tables if they do not exist
func Migrate() error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}

	createAccounts := `
	CREATE TABLE IF NOT EXISTS billable_accounts (
		id INT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(191) NOT NULL,
		email VARCHAR(191) NOT NULL,
		kind VARCHAR(20) NOT NULL DEFAULT 'user',
		stripe_customer_id VARCHAR(191) NOT NULL,
		default_payment_method VARCHAR(191) DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createAccounts); err != nil {
		return err
	}

	// Mirrors the cashier subscriptions shape: the provider ids plus the two
	// local status timestamps. ends_at NULL means no cancellation recorded.
	createSubscriptions := `
	CREATE TABLE IF NOT EXISTS subscriptions (
		id INT AUTO_INCREMENT PRIMARY KEY,
		account_id INT NOT NULL,
		stripe_id VARCHAR(191) NOT NULL,
		stripe_item_id VARCHAR(191) NOT NULL,
		stripe_plan VARCHAR(191) NOT NULL,
		quantity INT NOT NULL DEFAULT 1,
		trial_ends_at TIMESTAMP NULL DEFAULT NULL,
		ends_at TIMESTAMP NULL DEFAULT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_subscriptions_account (account_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createSubscriptions); err != nil {
		return err
	}

	createAddons := `
	CREATE TABLE IF NOT EXISTS addon_subscriptions (
		id INT AUTO_INCREMENT PRIMARY KEY,
		account_id INT NOT NULL,
		stripe_id VARCHAR(191) NOT NULL,
		provider_plan VARCHAR(191) NOT NULL,
		quantity INT NOT NULL DEFAULT 1,
		trial_ends_at TIMESTAMP NULL DEFAULT NULL,
		ends_at TIMESTAMP NULL DEFAULT NULL,
		settled TINYINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_addon_subscriptions_account (account_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createAddons); err != nil {
		return err
	}

	return nil
}
