package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"wb-aggregator/internal/auth"
	"wb-aggregator/internal/cache"
	"wb-aggregator/internal/calendar"
	"wb-aggregator/internal/database"
	"wb-aggregator/internal/handler"
	"wb-aggregator/internal/media"
	"wb-aggregator/internal/middleware"
	"wb-aggregator/internal/notify"
	"wb-aggregator/internal/repository"
	"wb-aggregator/internal/router"
	"wb-aggregator/internal/scraper"
	"wb-aggregator/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testAPIKey   = "integration-api-key"
	testBotToken = "123456:integration-token"
	adminUserID  = int64(1001)
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the schema migrated.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := database.Migrate(ctx, connStr, zerolog.Nop()); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// APIEnv is the API process wired against real storage.
type APIEnv struct {
	DB       *TestDB
	Redis    *miniredis.Miniredis
	Client   *redis.Client
	Queue    *notify.Queue
	Calendar *calendar.Calendar
	Server   http.Handler
}

// SetupAPIEnv builds the API server the same way cmd/api does, with
// miniredis standing in for Redis and media written to a temp dir.
func SetupAPIEnv(t *testing.T) *APIEnv {
	t.Helper()

	testDB := SetupTestDB(t)
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zerolog.Nop()
	cal := calendar.New(time.UTC)

	txm := repository.NewTxManager(testDB.Pool, logger)
	goodsRepo := repository.NewGoodsRepository(testDB.Pool, logger)
	stockRepo := repository.NewAvailabilityRepository(testDB.Pool, logger)

	catalogCache := cache.NewCatalogCache(client, time.Minute)
	queue := notify.NewQueue(client)

	availabilityService := service.NewAvailabilityService(txm, stockRepo, cal, logger)
	goodsService := service.NewGoodsService(goodsRepo, stockRepo, availabilityService, catalogCache, cal, logger)
	reservationService := service.NewReservationService(service.ReservationDeps{
		TxManager:    txm,
		Goods:        goodsRepo,
		Availability: stockRepo,
		Reservations: repository.NewReservationRepository(testDB.Pool, logger),
		Media:        media.NewFileStore(t.TempDir(), "/media", logger),
		Notifier:     queue,
		Cache:        catalogCache,
		Calendar:     cal,
	}, logger)
	adminService := service.NewAdminService(repository.NewAdminRepository(testDB.Pool, logger), logger)

	if err := adminService.Bootstrap(context.Background(), []int64{adminUserID}); err != nil {
		t.Fatalf("failed to seed admins: %v", err)
	}

	handlers := router.Handlers{
		Goods:        handler.NewGoodsHandler(goodsService, scraper.New(time.Second, logger), logger),
		Reservations: handler.NewReservationHandler(reservationService, logger),
		Categories:   handler.NewCategoryHandler(service.NewCategoryService(repository.NewCategoryRepository(testDB.Pool, logger), catalogCache, logger), logger),
		Admin:        handler.NewAdminHandler(availabilityService, adminService, cal.Location(), logger),
	}

	mux := router.New(handlers, router.Options{
		Auth: middleware.AuthOptions{
			APIKey:   testAPIKey,
			BotToken: testBotToken,
			MaxAge:   time.Hour,
		},
		Admins:      adminService,
		CORSOrigins: []string{"*"},
	}, logger)

	return &APIEnv{
		DB:       testDB,
		Redis:    mr,
		Client:   client,
		Queue:    queue,
		Calendar: cal,
		Server:   mux,
	}
}

// CleanupDB cleans all data from test tables, keeping the seeded admins.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"reservations", "daily_availability", "goods", "category_notes", "categories"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// InitData returns an Authorization header value signed for userID.
func InitData(userID int64) string {
	values := url.Values{}
	values.Set("user", `{"id":`+strconv.FormatInt(userID, 10)+`,"first_name":"Buyer"}`)
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	values.Set("hash", auth.Sign(values, testBotToken))
	return "tma " + values.Encode()
}
