package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"konnekt.org/internal/migrate"
)

func main() {
	log.SetFlags(0)
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		dsn     = flag.String("dsn", os.Getenv("KONNEKT_PG_DSN"), "PostgreSQL DSN")
		dir     = flag.String("dir", "migrations", "Directory holding sql/ and seeds/")
		timeout = flag.Duration("timeout", 30*time.Second, "Overall command timeout")
	)
	flag.Parse()

	if *dsn == "" {
		return errors.New("missing DSN: provide -dsn or KONNEKT_PG_DSN")
	}
	cmd := flag.Arg(0)
	if cmd == "" {
		return errors.New("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, filepath.Join(*dir, "sql"), filepath.Join(*dir, "seeds"))

	switch cmd {
	case "up":
		if err := mgr.Up(ctx); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		applied, err := mgr.Applied(ctx)
		if err != nil {
			return err
		}
		log.Printf("schema at %d migrations", len(applied))
		return nil
	case "down":
		if err := mgr.Down(ctx); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		return nil
	case "seed":
		if err := mgr.Seed(ctx); err != nil {
			return fmt.Errorf("migrate seed: %w", err)
		}
		return nil
	case "status":
		applied, err := mgr.Applied(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("no migrations applied")
			return nil
		}
		for _, name := range applied {
			fmt.Println(name)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
