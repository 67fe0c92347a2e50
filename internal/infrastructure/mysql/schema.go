package mysql

import (
	"context"
	"database/sql"
)

// Provision creates the four tables if they do not exist yet. Idempotent;
// meant to run once at startup against an already-created database.
func Provision(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sites (
            id VARCHAR(36) PRIMARY KEY,
            name VARCHAR(128) NOT NULL,
            timezone INT NOT NULL,
            session_expiration_secs BIGINT NOT NULL,
            minimum_increment DOUBLE NOT NULL,
            status INT NOT NULL DEFAULT 0,
            created_at DATETIME(6) NOT NULL,
            UNIQUE KEY sites_name_unique (name)
        )`,
		`CREATE TABLE IF NOT EXISTS users (
            id VARCHAR(36) PRIMARY KEY,
            site_id VARCHAR(36) NOT NULL,
            username VARCHAR(64) NOT NULL,
            password_hash VARCHAR(512) NOT NULL,
            status INT NOT NULL DEFAULT 0,
            created_at DATETIME(6) NOT NULL,
            UNIQUE KEY users_site_username_unique (site_id, username),
            CONSTRAINT users_site_fk FOREIGN KEY (site_id)
                REFERENCES sites (id) ON DELETE CASCADE
        )`,
		`CREATE TABLE IF NOT EXISTS sessions (
            id VARCHAR(64) PRIMARY KEY,
            site_id VARCHAR(36) NOT NULL,
            user_id VARCHAR(36) NOT NULL,
            username VARCHAR(64) NOT NULL,
            valid_until DATETIME(6) NOT NULL,
            status INT NOT NULL DEFAULT 0,
            created_at DATETIME(6) NOT NULL,
            UNIQUE KEY sessions_user_unique (site_id, user_id),
            CONSTRAINT sessions_site_fk FOREIGN KEY (site_id)
                REFERENCES sites (id) ON DELETE CASCADE,
            CONSTRAINT sessions_user_fk FOREIGN KEY (user_id)
                REFERENCES users (id) ON DELETE CASCADE
        )`,
		`CREATE TABLE IF NOT EXISTS auctions (
            id VARCHAR(36) PRIMARY KEY,
            site_id VARCHAR(36) NOT NULL,
            session_id VARCHAR(64) NOT NULL,
            seller VARCHAR(64) NOT NULL,
            description TEXT NOT NULL,
            ends_on DATETIME(6) NOT NULL,
            starting_price DOUBLE NOT NULL,
            price DOUBLE NOT NULL,
            maximum_offer DOUBLE NOT NULL DEFAULT 0,
            increment DOUBLE NOT NULL,
            winner VARCHAR(64) NOT NULL DEFAULT '',
            status INT NOT NULL DEFAULT 0,
            version BIGINT NOT NULL DEFAULT 0,
            created_at DATETIME(6) NOT NULL,
            updated_at DATETIME(6) NOT NULL,
            KEY auctions_site_idx (site_id),
            KEY auctions_winner_idx (site_id, winner),
            CONSTRAINT auctions_site_fk FOREIGN KEY (site_id)
                REFERENCES sites (id) ON DELETE CASCADE
        )`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return mapError(err)
		}
	}
	return nil
}
