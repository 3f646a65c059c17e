package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"ms-catalog/internal/config"
	"ms-catalog/internal/database/migrations"
	"ms-catalog/internal/logger"
)

const usage = `usage: migrate [up|down|to <version>|version]`

func main() {
	_ = godotenv.Load()
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(logger.Options{Service: "catalog-migrate"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	if cfg.Database.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}

	runner := migrations.NewRunner(sqldb, log)
	defer runner.Close()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	switch cmd {
	case "up":
		err = runner.MigrateUp()
	case "down":
		err = runner.MigrateDown()
	case "to":
		var v uint64
		v, err = strconv.ParseUint(flag.Arg(1), 10, 32)
		if err == nil {
			err = runner.MigrateTo(uint(v))
		}
	case "version":
		var v uint
		var dirty bool
		v, dirty, err = runner.Version()
		if err == nil {
			log.Info("MIGRATE", fmt.Sprintf("version=%d dirty=%t", v, dirty))
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal("MIGRATE", fmt.Sprintf("%s failed: %v", cmd, err))
	}
	log.Info("MIGRATE", fmt.Sprintf("%s done", cmd))
}
