package service

import (
	"context"
	"time"

	"wb-aggregator/internal/model"

	"github.com/google/uuid"
)

// AvailabilityService generates and lists per-day stock.
type AvailabilityService interface {
	// Generate replaces the goods' stock from today onwards with one row per
	// day of the window, each drawn uniformly from the daily bounds.
	// Returns the number of rows created.
	Generate(ctx context.Context, goodsID int64, start, end time.Time, minDaily, maxDaily int) (int, error)

	// List retrieves stock rows matching the filter.
	List(ctx context.Context, filter model.AvailabilityFilter) ([]model.DailyAvailability, error)
}

// GoodsService defines operations for goods administration and the catalog.
type GoodsService interface {
	// Create stores new goods and generates their availability.
	Create(ctx context.Context, req *model.GoodsCreateRequest) (*model.Goods, error)

	// Update applies a partial update, regenerating availability when the
	// sale window or daily bounds change.
	Update(ctx context.Context, id int64, req *model.GoodsUpdateRequest) (*model.Goods, error)

	// GetByID retrieves goods by ID.
	GetByID(ctx context.Context, id int64) (*model.Goods, error)

	// List retrieves goods matching the filter.
	List(ctx context.Context, filter model.GoodsFilter) ([]model.Goods, error)

	// Search matches a query against goods names and articles.
	Search(ctx context.Context, query string) ([]model.Goods, error)

	// Hide soft-deletes goods by hiding them from the catalog.
	Hide(ctx context.Context, id int64) error

	// SetHidden hides or shows several goods and returns how many changed.
	SetHidden(ctx context.Context, ids []int64, hidden bool) (int64, error)

	// RegenerateAvailability re-runs the generator from the stored window and bounds.
	RegenerateAvailability(ctx context.Context, id int64) (int, error)

	// Catalog lists visible goods with stock left today.
	Catalog(ctx context.Context, categoryID *int64) ([]model.CatalogItem, error)
}

// ReservationService defines the reservation ledger operations.
type ReservationService interface {
	// Reserve claims quantity of today's stock for the user.
	Reserve(ctx context.Context, userID int64, req *model.ReservationRequest) (*model.Reservation, error)

	// Cancel refunds the reservation's stock and marks it canceled.
	Cancel(ctx context.Context, id uuid.UUID, requester model.Requester) (*model.Reservation, error)

	// Confirm records order or delivery evidence and advances the status.
	Confirm(ctx context.Context, id uuid.UUID, requester model.Requester, req *model.ConfirmationRequest) (*model.Reservation, error)

	// SetStatus moves a reservation to status on behalf of an admin.
	SetStatus(ctx context.Context, id uuid.UUID, status model.ReservationStatus) (*model.Reservation, error)

	// GetByID retrieves a reservation visible to the requester.
	GetByID(ctx context.Context, id uuid.UUID, requester model.Requester) (*model.Reservation, error)

	// ListByUser retrieves the user's reservations.
	ListByUser(ctx context.Context, userID int64) ([]model.ReservationView, error)

	// List retrieves reservations matching the filter.
	List(ctx context.Context, filter model.ReservationFilter) ([]model.ReservationView, error)

	// DailyCount counts the user's live reservations for today.
	DailyCount(ctx context.Context, userID int64) (int, error)
}

// CategoryService defines operations for category management.
type CategoryService interface {
	Create(ctx context.Context, req *model.CategoryRequest) (*model.Category, error)
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, id int64, req *model.CategoryRequest) (*model.Category, error)
	Delete(ctx context.Context, id int64) error
	AddNote(ctx context.Context, categoryID int64, req *model.CategoryNoteRequest) (*model.CategoryNote, error)
	DeleteNote(ctx context.Context, categoryID, noteID int64) error
}

// AdminService answers admin lookups and seeds the admin list.
type AdminService interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	Bootstrap(ctx context.Context, userIDs []int64) error
	List(ctx context.Context) ([]model.Admin, error)
}

// CatalogCache stores rendered catalog listings. Get returns an error
// wrapping cache.ErrCacheMiss when nothing is stored under key.
type CatalogCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, key string) ([]model.CatalogItem, error)
	Set(ctx context.Context, gen int64, key string, items []model.CatalogItem) error
	Invalidate(ctx context.Context) error
}

// Notifier hands reservation notifications to the relay.
type Notifier interface {
	Enqueue(ctx context.Context, n *model.Notification) error
}

// MediaStore persists confirmation evidence and returns where it can be fetched.
type MediaStore interface {
	Save(ctx context.Context, key string, data []byte) (string, error)
}
