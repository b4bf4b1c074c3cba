package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wb-aggregator/internal/cache"
	"wb-aggregator/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type goodsMocks struct {
	goods        *MockGoodsRepository
	stock        *MockAvailabilityRepository
	availability *MockAvailabilityService
	cache        *MockCatalogCache
}

func newGoodsServiceWithMocks() (GoodsService, *goodsMocks) {
	m := &goodsMocks{
		goods:        new(MockGoodsRepository),
		stock:        new(MockAvailabilityRepository),
		availability: new(MockAvailabilityService),
		cache:        new(MockCatalogCache),
	}
	svc := NewGoodsService(m.goods, m.stock, m.availability, m.cache, testCalendar(), zerolog.Nop())
	return svc, m
}

func (m *goodsMocks) assertExpectations(t *testing.T) {
	m.goods.AssertExpectations(t)
	m.stock.AssertExpectations(t)
	m.availability.AssertExpectations(t)
	m.cache.AssertExpectations(t)
}

func TestGoodsService_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		start          time.Time
		end            time.Time
		generateErr    error
		expectedActive bool
	}{
		{
			name:           "Window covers now",
			start:          testDay(-1),
			end:            testDay(3),
			expectedActive: true,
		},
		{
			name:           "Window in the future",
			start:          testDay(2),
			end:            testDay(3),
			expectedActive: false,
		},
		{
			name:           "Generation failure is not fatal",
			start:          testDay(0),
			end:            testDay(3),
			generateErr:    errors.New("stock table locked"),
			expectedActive: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newGoodsServiceWithMocks()
			req := &model.GoodsCreateRequest{
				Name: "Kettle", Article: "123", Price: 1500,
				StartDate: tt.start, EndDate: tt.end, MinDaily: 1, MaxDaily: 3,
			}

			m.goods.On("Create", ctx, mock.AnythingOfType("*model.Goods")).Return(nil)
			m.availability.On("Generate", ctx, int64(42), tt.start, tt.end, 1, 3).Return(3, tt.generateErr)
			m.cache.On("Invalidate", ctx).Return(nil)

			g, err := svc.Create(ctx, req)

			require.NoError(t, err)
			assert.Equal(t, int64(42), g.ID)
			assert.Equal(t, tt.expectedActive, g.IsActive)
			m.assertExpectations(t)
		})
	}
}

func TestGoodsService_Create_InvalidWindow(t *testing.T) {
	svc, m := newGoodsServiceWithMocks()

	_, err := svc.Create(context.Background(), &model.GoodsCreateRequest{
		Name: "Kettle", Article: "1", StartDate: testDay(3), EndDate: testDay(1),
	})

	assert.Equal(t, model.KindValidation, model.KindOf(err))
	m.goods.AssertNotCalled(t, "Create")
}

func TestGoodsService_Create_UnknownCategory(t *testing.T) {
	ctx := context.Background()
	svc, m := newGoodsServiceWithMocks()
	m.goods.On("Create", ctx, mock.Anything).Return(model.ErrCategoryNotFound)

	_, err := svc.Create(ctx, &model.GoodsCreateRequest{
		Name: "Kettle", Article: "1", StartDate: testDay(0), EndDate: testDay(1),
	})

	assert.ErrorIs(t, err, model.ErrCategoryNotFound)
	m.availability.AssertNotCalled(t, "Generate")
}

func TestGoodsService_Update(t *testing.T) {
	ctx := context.Background()
	newEnd := testDay(10)
	newName := "Renamed"
	maxDaily := 9

	tests := []struct {
		name           string
		req            *model.GoodsUpdateRequest
		expectGenerate bool
	}{
		{
			name:           "Name change keeps availability",
			req:            &model.GoodsUpdateRequest{Name: &newName},
			expectGenerate: false,
		},
		{
			name:           "Window change regenerates",
			req:            &model.GoodsUpdateRequest{EndDate: &newEnd},
			expectGenerate: true,
		},
		{
			name:           "Bounds change regenerates",
			req:            &model.GoodsUpdateRequest{MaxDaily: &maxDaily},
			expectGenerate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newGoodsServiceWithMocks()
			existing := &model.Goods{
				ID: 5, Name: "Kettle", StartDate: testDay(-1), EndDate: testDay(2),
				MinDaily: 1, MaxDaily: 3, IsActive: true,
			}

			m.goods.On("GetByID", ctx, int64(5)).Return(existing, nil)
			m.goods.On("Update", ctx, existing).Return(nil)
			if tt.expectGenerate {
				m.availability.On("Generate", ctx, int64(5), mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
			}
			m.cache.On("Invalidate", ctx).Return(nil)

			g, err := svc.Update(ctx, 5, tt.req)

			require.NoError(t, err)
			assert.Equal(t, int64(5), g.ID)
			m.assertExpectations(t)
			if !tt.expectGenerate {
				m.availability.AssertNotCalled(t, "Generate")
			}
		})
	}
}

func TestGoodsService_Update_RecomputesActive(t *testing.T) {
	ctx := context.Background()
	svc, m := newGoodsServiceWithMocks()
	existing := &model.Goods{ID: 5, StartDate: testDay(-1), EndDate: testDay(2), IsActive: true}
	futureStart := testDay(5)
	futureEnd := testDay(6)

	m.goods.On("GetByID", ctx, int64(5)).Return(existing, nil)
	m.goods.On("Update", ctx, existing).Return(nil)
	m.availability.On("Generate", ctx, int64(5), futureStart, futureEnd, 0, 0).Return(2, nil)
	m.cache.On("Invalidate", ctx).Return(nil)

	g, err := svc.Update(ctx, 5, &model.GoodsUpdateRequest{StartDate: &futureStart, EndDate: &futureEnd})

	require.NoError(t, err)
	assert.False(t, g.IsActive)
}

func TestGoodsService_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, m := newGoodsServiceWithMocks()
	m.goods.On("GetByID", ctx, int64(5)).Return(nil, nil)

	_, err := svc.Update(ctx, 5, &model.GoodsUpdateRequest{})

	assert.ErrorIs(t, err, model.ErrGoodsNotFound)
}

func TestGoodsService_Hide(t *testing.T) {
	ctx := context.Background()

	t.Run("Existing goods", func(t *testing.T) {
		svc, m := newGoodsServiceWithMocks()
		m.goods.On("GetByID", ctx, int64(3)).Return(&model.Goods{ID: 3}, nil)
		m.goods.On("SetHidden", ctx, []int64{3}, true).Return(int64(1), nil)
		m.cache.On("Invalidate", ctx).Return(nil)

		require.NoError(t, svc.Hide(ctx, 3))
		m.assertExpectations(t)
	})

	t.Run("Missing goods", func(t *testing.T) {
		svc, m := newGoodsServiceWithMocks()
		m.goods.On("GetByID", ctx, int64(3)).Return(nil, nil)

		assert.ErrorIs(t, svc.Hide(ctx, 3), model.ErrGoodsNotFound)
		m.goods.AssertNotCalled(t, "SetHidden")
	})
}

func TestGoodsService_SetHidden(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty ids", func(t *testing.T) {
		svc, _ := newGoodsServiceWithMocks()
		_, err := svc.SetHidden(ctx, nil, true)
		assert.Equal(t, model.KindValidation, model.KindOf(err))
	})

	t.Run("Nothing changed skips invalidation", func(t *testing.T) {
		svc, m := newGoodsServiceWithMocks()
		m.goods.On("SetHidden", ctx, []int64{1, 2}, false).Return(int64(0), nil)

		changed, err := svc.SetHidden(ctx, []int64{1, 2}, false)

		require.NoError(t, err)
		assert.Zero(t, changed)
		m.cache.AssertNotCalled(t, "Invalidate", mock.Anything)
	})

	t.Run("Rows changed", func(t *testing.T) {
		svc, m := newGoodsServiceWithMocks()
		m.goods.On("SetHidden", ctx, []int64{1, 2}, true).Return(int64(2), nil)
		m.cache.On("Invalidate", ctx).Return(errors.New("redis down"))

		changed, err := svc.SetHidden(ctx, []int64{1, 2}, true)

		require.NoError(t, err, "cache failures are not surfaced")
		assert.Equal(t, int64(2), changed)
	})
}

func TestGoodsService_Search(t *testing.T) {
	ctx := context.Background()
	svc, m := newGoodsServiceWithMocks()

	_, err := svc.Search(ctx, "   ")
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	m.goods.On("Search", ctx, "mug", searchLimit).Return([]model.Goods{{ID: 1}}, nil)
	goods, err := svc.Search(ctx, " mug ")
	require.NoError(t, err)
	assert.Len(t, goods, 1)
}

func TestGoodsService_RegenerateAvailability(t *testing.T) {
	ctx := context.Background()
	svc, m := newGoodsServiceWithMocks()
	g := &model.Goods{ID: 8, StartDate: testDay(0), EndDate: testDay(4), MinDaily: 2, MaxDaily: 6}

	m.goods.On("GetByID", ctx, int64(8)).Return(g, nil)
	m.availability.On("Generate", ctx, int64(8), g.StartDate, g.EndDate, 2, 6).Return(5, nil)
	m.cache.On("Invalidate", ctx).Return(nil)

	created, err := svc.RegenerateAvailability(ctx, 8)

	require.NoError(t, err)
	assert.Equal(t, 5, created)
	m.assertExpectations(t)
}

func TestGoodsService_Catalog(t *testing.T) {
	ctx := context.Background()
	items := []model.CatalogItem{{Goods: model.Goods{ID: 1, Name: "Kettle"}, AvailableToday: 2}}
	categoryID := int64(4)

	tests := []struct {
		name       string
		categoryID *int64
		key        string
		setup      func(m *goodsMocks, key string)
	}{
		{
			name: "Cache hit",
			key:  "2026-10-16:all",
			setup: func(m *goodsMocks, key string) {
				m.cache.On("Generation", ctx).Return(int64(2), nil)
				m.cache.On("Get", ctx, int64(2), key).Return(items, nil)
			},
		},
		{
			name:       "Cache miss loads and stores under the generation read first",
			categoryID: &categoryID,
			key:        "2026-10-16:4",
			setup: func(m *goodsMocks, key string) {
				m.cache.On("Generation", ctx).Return(int64(2), nil).Once()
				m.cache.On("Get", ctx, int64(2), key).Return(nil, cache.ErrCacheMiss)
				m.goods.On("ListCatalog", mock.Anything, testDay(0), testNow, &categoryID).Return(items, nil)
				m.cache.On("Set", mock.Anything, int64(2), key, items).Return(nil)
			},
		},
		{
			name: "Cache errors fall back to the database",
			key:  "2026-10-16:all",
			setup: func(m *goodsMocks, key string) {
				m.cache.On("Generation", ctx).Return(int64(0), nil)
				m.cache.On("Get", ctx, int64(0), key).Return(nil, errors.New("connection refused"))
				m.goods.On("ListCatalog", mock.Anything, testDay(0), testNow, (*int64)(nil)).Return(items, nil)
				m.cache.On("Set", mock.Anything, int64(0), key, items).Return(errors.New("connection refused"))
			},
		},
		{
			name: "Unreadable generation bypasses the cache",
			key:  "2026-10-16:all",
			setup: func(m *goodsMocks, key string) {
				m.cache.On("Generation", ctx).Return(int64(0), errors.New("connection refused"))
				m.goods.On("ListCatalog", mock.Anything, testDay(0), testNow, (*int64)(nil)).Return(items, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newGoodsServiceWithMocks()
			m.stock.On("PurgeBefore", ctx, testDay(0)).Return(int64(3), nil)
			tt.setup(m, tt.key)

			got, err := svc.Catalog(ctx, tt.categoryID)

			require.NoError(t, err)
			assert.Equal(t, items, got)
			m.assertExpectations(t)
		})
	}
}

func TestGoodsService_Catalog_LoadSurvivesCancelledCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &goodsMocks{
		goods: new(MockGoodsRepository),
		stock: new(MockAvailabilityRepository),
	}
	svc := NewGoodsService(m.goods, m.stock, nil, nil, testCalendar(), zerolog.Nop())

	m.stock.On("PurgeBefore", ctx, testDay(0)).Return(int64(0), nil)
	m.goods.On("ListCatalog",
		mock.MatchedBy(func(c context.Context) bool {
			_, hasDeadline := c.Deadline()
			return c.Err() == nil && hasDeadline
		}),
		testDay(0), testNow, (*int64)(nil),
	).Return([]model.CatalogItem{}, nil)

	got, err := svc.Catalog(ctx, nil)

	require.NoError(t, err)
	assert.Empty(t, got)
	m.goods.AssertExpectations(t)
}

func TestGoodsService_Catalog_PurgeFailureIgnored(t *testing.T) {
	ctx := context.Background()
	m := &goodsMocks{
		goods: new(MockGoodsRepository),
		stock: new(MockAvailabilityRepository),
	}
	svc := NewGoodsService(m.goods, m.stock, nil, nil, testCalendar(), zerolog.Nop())

	m.stock.On("PurgeBefore", ctx, testDay(0)).Return(int64(0), errors.New("timeout"))
	m.goods.On("ListCatalog", mock.Anything, testDay(0), testNow, (*int64)(nil)).Return([]model.CatalogItem{}, nil)

	got, err := svc.Catalog(ctx, nil)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGoodsService_Catalog_SingleflightCollapsesLoads(t *testing.T) {
	ctx := context.Background()
	m := &goodsMocks{
		goods: new(MockGoodsRepository),
		stock: new(MockAvailabilityRepository),
	}
	svc := NewGoodsService(m.goods, m.stock, nil, nil, testCalendar(), zerolog.Nop())

	release := make(chan struct{})
	var loads atomic.Int32
	m.stock.On("PurgeBefore", ctx, testDay(0)).Return(int64(0), nil)
	m.goods.On("ListCatalog", mock.Anything, testDay(0), testNow, (*int64)(nil)).
		Run(func(mock.Arguments) {
			loads.Add(1)
			<-release
		}).
		Return([]model.CatalogItem{}, nil)

	const readers = 5
	var wg sync.WaitGroup
	errs := make(chan error, readers)
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Catalog(ctx, nil)
			errs <- err
		}()
	}

	// Give every reader time to join the in-flight load.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), loads.Load())
}

func TestGoodsService_Catalog_LoadError(t *testing.T) {
	ctx := context.Background()
	svc, m := newGoodsServiceWithMocks()
	m.stock.On("PurgeBefore", ctx, testDay(0)).Return(int64(0), nil)
	m.cache.On("Generation", ctx).Return(int64(0), nil)
	m.cache.On("Get", ctx, int64(0), "2026-10-16:all").Return(nil, fmt.Errorf("wrapped: %w", cache.ErrCacheMiss))
	m.goods.On("ListCatalog", mock.Anything, testDay(0), testNow, (*int64)(nil)).Return(nil, errors.New("db down"))

	_, err := svc.Catalog(ctx, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list catalog")
	m.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
