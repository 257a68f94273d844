package health

import (
	"context"
	"database/sql"
	"fmt"
)

const validationQuery = "SELECT 1"

type dbIndicator struct {
	db *sql.DB
}

// DB reports UP when the pool answers a ping and the validation query.
func DB(db *sql.DB) Indicator {
	return dbIndicator{db: db}
}

func (dbIndicator) Name() string { return "db" }

func (d dbIndicator) Check(ctx context.Context) Health {
	details := map[string]any{
		"database":        "MySQL",
		"validationQuery": validationQuery,
	}
	if err := d.db.PingContext(ctx); err != nil {
		return Down(fmt.Errorf("ping: %w", err), details)
	}
	var one int
	if err := d.db.QueryRowContext(ctx, validationQuery).Scan(&one); err != nil {
		return Down(fmt.Errorf("validation query: %w", err), details)
	}
	return Up(details)
}
