package service

import (
	"context"
	"sync"
	"time"

	"wb-aggregator/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockTxManager is a mock implementation of TxManager.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// MockGoodsRepository is a mock implementation of GoodsRepository.
type MockGoodsRepository struct {
	mock.Mock
}

func (m *MockGoodsRepository) Create(ctx context.Context, g *model.Goods) error {
	args := m.Called(ctx, g)
	if args.Error(0) == nil {
		g.ID = 42
	}
	return args.Error(0)
}

func (m *MockGoodsRepository) Update(ctx context.Context, g *model.Goods) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockGoodsRepository) GetByID(ctx context.Context, id int64) (*model.Goods, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Goods), args.Error(1)
}

func (m *MockGoodsRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Goods, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Goods), args.Error(1)
}

func (m *MockGoodsRepository) List(ctx context.Context, filter model.GoodsFilter) ([]model.Goods, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Goods), args.Error(1)
}

func (m *MockGoodsRepository) Search(ctx context.Context, query string, limit int) ([]model.Goods, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Goods), args.Error(1)
}

func (m *MockGoodsRepository) SetHidden(ctx context.Context, ids []int64, hidden bool) (int64, error) {
	args := m.Called(ctx, ids, hidden)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGoodsRepository) ListCatalog(ctx context.Context, day, now time.Time, categoryID *int64) ([]model.CatalogItem, error) {
	args := m.Called(ctx, day, now, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CatalogItem), args.Error(1)
}

func (m *MockGoodsRepository) ListActivity(ctx context.Context, tx pgx.Tx) ([]model.ActivityState, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityState), args.Error(1)
}

func (m *MockGoodsRepository) SetActive(ctx context.Context, tx pgx.Tx, changes []model.ActivityChange) (int64, error) {
	args := m.Called(ctx, tx, changes)
	return args.Get(0).(int64), args.Error(1)
}

// MockAvailabilityRepository is a mock implementation of AvailabilityRepository.
type MockAvailabilityRepository struct {
	mock.Mock
}

func (m *MockAvailabilityRepository) DeleteFrom(ctx context.Context, tx pgx.Tx, goodsID int64, from time.Time) (int64, error) {
	args := m.Called(ctx, tx, goodsID, from)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAvailabilityRepository) InsertBatch(ctx context.Context, tx pgx.Tx, rows []model.DailyAvailability) error {
	args := m.Called(ctx, tx, rows)
	return args.Error(0)
}

func (m *MockAvailabilityRepository) Decrement(ctx context.Context, tx pgx.Tx, goodsID int64, day time.Time, quantity int) (bool, error) {
	args := m.Called(ctx, tx, goodsID, day, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockAvailabilityRepository) Increment(ctx context.Context, tx pgx.Tx, goodsID int64, day time.Time, quantity int) (bool, error) {
	args := m.Called(ctx, tx, goodsID, day, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockAvailabilityRepository) Get(ctx context.Context, tx pgx.Tx, goodsID int64, day time.Time) (*model.DailyAvailability, error) {
	args := m.Called(ctx, tx, goodsID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailyAvailability), args.Error(1)
}

func (m *MockAvailabilityRepository) PurgeBefore(ctx context.Context, day time.Time) (int64, error) {
	args := m.Called(ctx, day)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAvailabilityRepository) List(ctx context.Context, filter model.AvailabilityFilter) ([]model.DailyAvailability, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DailyAvailability), args.Error(1)
}

// MockReservationRepository is a mock implementation of ReservationRepository.
type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Create(ctx context.Context, tx pgx.Tx, res *model.Reservation) error {
	args := m.Called(ctx, tx, res)
	return args.Error(0)
}

func (m *MockReservationRepository) HasActiveOnDate(ctx context.Context, userID, goodsID int64, day time.Time) (bool, error) {
	args := m.Called(ctx, userID, goodsID, day)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Reservation, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationRepository) Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to model.ReservationStatus) (bool, error) {
	args := m.Called(ctx, tx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationRepository) SetConfirmation(ctx context.Context, tx pgx.Tx, id uuid.UUID, kind model.ConfirmationKind, data *model.Confirmation) error {
	args := m.Called(ctx, tx, id, kind, data)
	return args.Error(0)
}

func (m *MockReservationRepository) ListByUser(ctx context.Context, userID int64) ([]model.ReservationView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReservationView), args.Error(1)
}

func (m *MockReservationRepository) List(ctx context.Context, filter model.ReservationFilter) ([]model.ReservationView, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReservationView), args.Error(1)
}

func (m *MockReservationRepository) CountForUserOnDate(ctx context.Context, userID int64, day time.Time) (int, error) {
	args := m.Called(ctx, userID, day)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationRepository) SumReservedQuantity(ctx context.Context, tx pgx.Tx, goodsID int64) (int, error) {
	args := m.Called(ctx, tx, goodsID)
	return args.Int(0), args.Error(1)
}

// MockCategoryRepository is a mock implementation of CategoryRepository.
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) Create(ctx context.Context, c *model.Category) error {
	args := m.Called(ctx, c)
	if args.Error(0) == nil {
		c.ID = 7
	}
	return args.Error(0)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *MockCategoryRepository) List(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Category), args.Error(1)
}

func (m *MockCategoryRepository) Update(ctx context.Context, c *model.Category) (bool, error) {
	args := m.Called(ctx, c)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryRepository) AddNote(ctx context.Context, note *model.CategoryNote) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockCategoryRepository) DeleteNote(ctx context.Context, categoryID, noteID int64) (bool, error) {
	args := m.Called(ctx, categoryID, noteID)
	return args.Bool(0), args.Error(1)
}

// MockAdminRepository is a mock implementation of AdminRepository.
type MockAdminRepository struct {
	mock.Mock
}

func (m *MockAdminRepository) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdminRepository) Upsert(ctx context.Context, a *model.Admin) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAdminRepository) List(ctx context.Context) ([]model.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Admin), args.Error(1)
}

// MockAvailabilityService is a mock implementation of AvailabilityService.
type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) Generate(ctx context.Context, goodsID int64, start, end time.Time, minDaily, maxDaily int) (int, error) {
	args := m.Called(ctx, goodsID, start, end, minDaily, maxDaily)
	return args.Int(0), args.Error(1)
}

func (m *MockAvailabilityService) List(ctx context.Context, filter model.AvailabilityFilter) ([]model.DailyAvailability, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DailyAvailability), args.Error(1)
}

// MockCatalogCache is a mock implementation of CatalogCache.
type MockCatalogCache struct {
	mock.Mock
}

func (m *MockCatalogCache) Generation(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCatalogCache) Get(ctx context.Context, gen int64, key string) ([]model.CatalogItem, error) {
	args := m.Called(ctx, gen, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CatalogItem), args.Error(1)
}

func (m *MockCatalogCache) Set(ctx context.Context, gen int64, key string, items []model.CatalogItem) error {
	args := m.Called(ctx, gen, key, items)
	return args.Error(0)
}

func (m *MockCatalogCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// fakeNotifier records enqueued notifications on a channel.
type fakeNotifier struct {
	sent chan *model.Notification
	err  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(chan *model.Notification, 4)}
}

func (f *fakeNotifier) Enqueue(ctx context.Context, n *model.Notification) error {
	f.sent <- n
	return f.err
}

// fakeMediaStore keeps saved media in memory.
type fakeMediaStore struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func (f *fakeMediaStore) Save(ctx context.Context, key string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[key] = data
	return "https://media.test/" + key, nil
}
