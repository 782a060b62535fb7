package database

import (
	"context"
	"database/sql"
	"fmt"
	"storeadmin_server/structs"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// ConnectListener opens a small pgdriver pool. LISTEN needs the pgdriver
// connector, the main pool runs on pgx.
func ConnectListener(cfg *structs.DatabaseConfig, logger *gecho.Logger) (*bun.DB, error) {
	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(dsn(cfg)),
		pgdriver.WithReadTimeout(cfg.ReadTimeout),
		pgdriver.WithWriteTimeout(cfg.WriteTimeout),
		pgdriver.WithApplicationName("storeadmin-listener"),
	)
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(2)

	db := bun.NewDB(sqldb, pgdialect.New())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping listener database: %w", err)
	}

	logger.Info("Listener connection ready")
	return db, nil
}
