package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hello-actuator/internal/config"
)

// DriverConfig maps cfg onto the driver's config: utf8mb4, DATETIME as
// time.Time, times in UTC.
func DriverConfig(cfg config.DBConfig) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Pass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	_ = mc.Apply(mysql.Charset("utf8mb4", ""))
	return mc
}

// DSN renders cfg as a go-sql-driver/mysql data source name.
func DSN(cfg config.DBConfig) string {
	return DriverConfig(cfg).FormatDSN()
}

// Open connects to MySQL and verifies the connection.  The pool is small:
// it only serves health probes.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	connector, err := mysql.NewConnector(DriverConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db := sql.OpenDB(connector)

	// Pool settings
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql %s: %w", net.JoinHostPort(cfg.Host, cfg.Port), err)
	}
	return db, nil
}
