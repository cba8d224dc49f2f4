package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"retailanalytics/internal/config"
	"retailanalytics/internal/models"
	"retailanalytics/internal/repository/store"
	"retailanalytics/internal/seed"
)

func main() {
	cfg := config.Load()

	driver := flag.String("driver", cfg.DBDriver, "Database driver (sqlite3 or postgres)")
	dsn := flag.String("dsn", cfg.DBDSN, "Database path or connection string")
	withSeed := flag.Bool("seed", false, "Insert demo data for the last days")
	days := flag.Int("days", 8, "Number of days to seed")
	force := flag.Bool("force", false, "Seed even if today already has visitors")
	flag.Parse()

	fmt.Printf("Applying schema to %s database %s\n", *driver, *dsn)

	if *driver == store.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(*dsn), 0755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
	}

	// New migruje schemat
	db, err := store.New(*driver, *dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Schema is up to date")

	if !*withSeed {
		return
	}

	query := store.NewQueryRepository(db)
	today := time.Now().Format(models.DateLayout)
	visitors, err := query.TotalVisitors(today)
	if err != nil {
		log.Fatalf("Failed to check existing data: %v", err)
	}
	if visitors > 0 && !*force {
		fmt.Printf("⚠️  Database already has %d visitors today, skipping seed (use -force)\n", visitors)
		return
	}

	counts, err := seed.Generate(store.NewAnalyticsRepository(db), time.Now(), *days, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Printf("✅ Seeded %d days\n", *days)
	fmt.Printf("\n📊 Inserted rows:\n")
	fmt.Printf("   Visitors: %d\n", counts.Visitors)
	fmt.Printf("   Sections: %d\n", counts.Sections)
	fmt.Printf("   Cashier:  %d\n", counts.Cashier)
	fmt.Printf("   Dwell:    %d\n", counts.Dwell)

	summary, err := query.DailySummary(today)
	if err == nil {
		fmt.Printf("\n📈 Today: %d visitors, %d transactions, conversion %.1f%%\n",
			summary.TotalVisitors, summary.Transactions, summary.ConversionRate*100)
	}
}
