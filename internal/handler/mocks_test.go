package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wb-aggregator/internal/auth"
	"wb-aggregator/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGoodsService is a mock implementation of GoodsService.
type MockGoodsService struct {
	mock.Mock
}

func (m *MockGoodsService) Create(ctx context.Context, req *model.GoodsCreateRequest) (*model.Goods, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Goods), args.Error(1)
}

func (m *MockGoodsService) Update(ctx context.Context, id int64, req *model.GoodsUpdateRequest) (*model.Goods, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Goods), args.Error(1)
}

func (m *MockGoodsService) GetByID(ctx context.Context, id int64) (*model.Goods, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Goods), args.Error(1)
}

func (m *MockGoodsService) List(ctx context.Context, filter model.GoodsFilter) ([]model.Goods, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Goods), args.Error(1)
}

func (m *MockGoodsService) Search(ctx context.Context, query string) ([]model.Goods, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Goods), args.Error(1)
}

func (m *MockGoodsService) Hide(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGoodsService) SetHidden(ctx context.Context, ids []int64, hidden bool) (int64, error) {
	args := m.Called(ctx, ids, hidden)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGoodsService) RegenerateAvailability(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockGoodsService) Catalog(ctx context.Context, categoryID *int64) ([]model.CatalogItem, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CatalogItem), args.Error(1)
}

// MockReservationService is a mock implementation of ReservationService.
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) Reserve(ctx context.Context, userID int64, req *model.ReservationRequest) (*model.Reservation, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) Cancel(ctx context.Context, id uuid.UUID, requester model.Requester) (*model.Reservation, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) Confirm(ctx context.Context, id uuid.UUID, requester model.Requester, req *model.ConfirmationRequest) (*model.Reservation, error) {
	args := m.Called(ctx, id, requester, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) SetStatus(ctx context.Context, id uuid.UUID, status model.ReservationStatus) (*model.Reservation, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) GetByID(ctx context.Context, id uuid.UUID, requester model.Requester) (*model.Reservation, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockReservationService) ListByUser(ctx context.Context, userID int64) ([]model.ReservationView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReservationView), args.Error(1)
}

func (m *MockReservationService) List(ctx context.Context, filter model.ReservationFilter) ([]model.ReservationView, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReservationView), args.Error(1)
}

func (m *MockReservationService) DailyCount(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// MockCategoryService is a mock implementation of CategoryService.
type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) Create(ctx context.Context, req *model.CategoryRequest) (*model.Category, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *MockCategoryService) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *MockCategoryService) List(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Category), args.Error(1)
}

func (m *MockCategoryService) Update(ctx context.Context, id int64, req *model.CategoryRequest) (*model.Category, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *MockCategoryService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCategoryService) AddNote(ctx context.Context, categoryID int64, req *model.CategoryNoteRequest) (*model.CategoryNote, error) {
	args := m.Called(ctx, categoryID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CategoryNote), args.Error(1)
}

func (m *MockCategoryService) DeleteNote(ctx context.Context, categoryID, noteID int64) error {
	args := m.Called(ctx, categoryID, noteID)
	return args.Error(0)
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

// MockAdminService is a mock implementation of AdminService.
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAdminService) Bootstrap(ctx context.Context, userIDs []int64) error {
	args := m.Called(ctx, userIDs)
	return args.Error(0)
}

func (m *MockAdminService) List(ctx context.Context) ([]model.Admin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Admin), args.Error(1)
}

// MockParser is a mock implementation of ProductParser.
type MockParser struct {
	mock.Mock
}

func (m *MockParser) Parse(ctx context.Context, rawURL string) (*model.ParsedGoods, error) {
	args := m.Called(ctx, rawURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ParsedGoods), args.Error(1)
}

// MockNotifier is a mock implementation of ReservationNotifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, note *model.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

var (
	userPrincipal     = &auth.Principal{UserID: 42, User: &model.TelegramUser{ID: 42, FirstName: "Anna"}}
	adminPrincipal    = &auth.Principal{UserID: 7, Admin: true}
	internalPrincipal = &auth.Principal{Internal: true, Admin: true}
)

// newRequest builds a request with an optional JSON body and principal.
func newRequest(t *testing.T, method, target string, body any, p *auth.Principal) *http.Request {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	}
	return req
}

// serve routes req through a chi router so URL parameters resolve.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
