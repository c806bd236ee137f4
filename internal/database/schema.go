package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order. users and messes belong to the profile
// service; they are created here only so a fresh database can boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		email VARCHAR(255) NOT NULL PRIMARY KEY,
		name  VARCHAR(255) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS messes (
		id                VARCHAR(64)  NOT NULL PRIMARY KEY,
		email             VARCHAR(255) NOT NULL,
		owner_name        VARCHAR(255) NOT NULL DEFAULT '',
		mess_name         VARCHAR(255) NOT NULL DEFAULT '',
		price_per_meal    INT NULL,
		subscription_plan INT NULL,
		KEY idx_messes_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS booking_slots (
		id           CHAR(36)     NOT NULL PRIMARY KEY,
		user_email   VARCHAR(255) NOT NULL,
		user_name    VARCHAR(255) NOT NULL DEFAULT '',
		mess_id      VARCHAR(64)  NOT NULL,
		mess_email   VARCHAR(255) NOT NULL,
		mess_name    VARCHAR(255) NOT NULL DEFAULT '',
		slot_date    DATE         NOT NULL,
		time_slot    VARCHAR(64)  NOT NULL,
		status       ENUM('PENDING','APPROVED','CONFIRMED','COMPLETED','CANCELLED') NOT NULL,
		is_paid      BOOLEAN      NOT NULL DEFAULT FALSE,
		payment_id   VARCHAR(128) NULL,
		amount       DECIMAL(12,2) NULL,
		cancelled_by ENUM('USER','OWNER') NULL,
		created_at   DATETIME(6)  NOT NULL,
		updated_at   DATETIME(6)  NOT NULL,
		approved_at  DATETIME(6)  NULL,
		confirmed_at DATETIME(6)  NULL,
		completed_at DATETIME(6)  NULL,
		cancelled_at DATETIME(6)  NULL,
		KEY idx_slots_capacity (mess_email, slot_date, time_slot, status),
		KEY idx_slots_user (user_email, status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payments (
		seq            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		id             CHAR(36)      NOT NULL,
		user_email     VARCHAR(255)  NOT NULL,
		owner_email    VARCHAR(255)  NOT NULL,
		mess_id        VARCHAR(64)   NOT NULL,
		total_dues     DECIMAL(12,2) NOT NULL,
		amount_paid    DECIMAL(12,2) NOT NULL,
		remaining_dues DECIMAL(12,2) NOT NULL,
		payment_date   DATETIME(6)   NOT NULL,
		payment_method VARCHAR(64)   NULL,
		transaction_id VARCHAR(128)  NULL,
		status         VARCHAR(32)   NOT NULL,
		notes          TEXT          NULL,
		period_start   DATE          NULL,
		period_end     DATE          NULL,
		UNIQUE KEY uq_payments_id (id),
		KEY idx_payments_pair (user_email, mess_id, payment_date),
		KEY idx_payments_mess (mess_id, payment_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id                CHAR(36)     NOT NULL PRIMARY KEY,
		recipient_email   VARCHAR(255) NOT NULL,
		sender_email      VARCHAR(255) NOT NULL,
		sender_name       VARCHAR(255) NULL,
		title             VARCHAR(255) NOT NULL,
		message           TEXT         NOT NULL,
		notification_type VARCHAR(64)  NOT NULL,
		related_entity_id VARCHAR(64)  NOT NULL,
		is_read           BOOLEAN      NOT NULL DEFAULT FALSE,
		created_at        DATETIME(6)  NOT NULL,
		KEY idx_notifications_inbox (recipient_email, is_read, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
