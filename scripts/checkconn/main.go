package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"wb-aggregator/internal/config"
	"wb-aggregator/internal/notify"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// Checks that the configured PostgreSQL and Redis are reachable and prints
// what the processes will find there.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	var dbName string
	err = conn.QueryRow(ctx, "SELECT current_database()").Scan(&dbName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully connected to database: %s\n", dbName)

	var version int
	var dirty bool
	err = conn.QueryRow(ctx, "SELECT version, dirty FROM schema_migrations").Scan(&version, &dirty)
	if err != nil {
		fmt.Printf("Schema not migrated yet: %v\n", err)
	} else {
		fmt.Printf("Schema version: %d (dirty: %t)\n", version, dirty)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid REDIS_URL: %v\n", err)
		os.Exit(1)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to redis: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully connected to redis: %s\n", opts.Addr)

	for _, key := range []string{notify.QueueKey, notify.DeadLetterKey} {
		n, err := client.LLen(ctx, key).Result()
		if err != nil {
			fmt.Fprintf(os.Stderr, "LLEN %s failed: %v\n", key, err)
			os.Exit(1)
		}
		fmt.Printf("  %s: %d\n", key, n)
	}
}
