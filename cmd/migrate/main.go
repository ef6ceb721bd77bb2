// Command migrate runs schema operations for the backend.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"fittedin/internal/config"
	"fittedin/internal/database"

	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
		log.Println("automigrations applied")
	case "status":
		missing := status(db)
		if len(missing) == 0 {
			log.Println("schema up to date")
			return nil
		}
		for _, table := range missing {
			log.Printf("missing table: %s", table)
		}
		return fmt.Errorf("%d tables missing; run migrate up", len(missing))
	default:
		return usage()
	}
	return nil
}

// status lists the tables of the persistent models that do not exist yet.
func status(db *gorm.DB) []string {
	var missing []string
	for _, m := range database.PersistentModels() {
		if db.Migrator().HasTable(m) {
			continue
		}
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			missing = append(missing, fmt.Sprintf("%T", m))
			continue
		}
		missing = append(missing, stmt.Schema.Table)
	}
	return missing
}
