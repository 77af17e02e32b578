package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/youssefsiam38/agentdesk/driver/databasesql"
	"github.com/youssefsiam38/agentdesk/driver/pgxv5"
	"github.com/youssefsiam38/agentdesk/storage"
	"github.com/youssefsiam38/agentdesk/storage/filestore"
)

// openStore opens the configured storage backend. The returned func releases its
// connections.
func openStore(ctx context.Context, s *settings) (storage.Store, func(), error) {
	switch s.Driver {
	case driverPgx:
		pool, err := pgxpool.New(ctx, s.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return pgxv5.New(pool).GetStore(), pool.Close, nil

	case driverSQL:
		db, err := sql.Open("postgres", s.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return databasesql.New(db).GetStore(), func() { _ = db.Close() }, nil

	case driverFile:
		return filestore.New(s.DataDir), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown driver %q", s.Driver)
}
