package model

import "time"

// RequirementType is the kind of evidence a confirmation step asks for.
type RequirementType string

const (
	RequirementText  RequirementType = "text"
	RequirementPhoto RequirementType = "photo"
	RequirementVideo RequirementType = "video"
)

// IsMedia reports whether the requirement is satisfied by an uploaded file.
func (t RequirementType) IsMedia() bool {
	return t == RequirementPhoto || t == RequirementVideo
}

// Requirement describes one piece of evidence a buyer submits when confirming
// an order or a delivery.
type Requirement struct {
	ID    string          `json:"id" validate:"required,max=64"`
	Type  RequirementType `json:"type" validate:"required,oneof=text photo video"`
	Title string          `json:"title" validate:"max=255"`
}

// Goods represents a product offered with a daily reservation quota.
type Goods struct {
	ID                               int64         `json:"id"`
	Name                             string        `json:"name"`
	Price                            int           `json:"price"`
	CashbackPercent                  int           `json:"cashback_percent"`
	Article                          string        `json:"article"`
	URL                              string        `json:"url"`
	Image                            string        `json:"image"`
	Description                      string        `json:"description"`
	PurchaseGuide                    string        `json:"purchase_guide"`
	StartDate                        time.Time     `json:"start_date"`
	EndDate                          time.Time     `json:"end_date"`
	MinDaily                         int           `json:"min_daily"`
	MaxDaily                         int           `json:"max_daily"`
	TotalSalesLimit                  *int          `json:"total_sales_limit,omitempty"`
	IsActive                         bool          `json:"is_active"`
	IsHidden                         bool          `json:"is_hidden"`
	CategoryID                       *int64        `json:"category_id,omitempty"`
	ConfirmationRequirements         []Requirement `json:"confirmation_requirements"`
	DeliveryConfirmationRequirements []Requirement `json:"delivery_confirmation_requirements"`
	CreatedAt                        time.Time     `json:"created_at"`
	UpdatedAt                        time.Time     `json:"updated_at"`
}

// InWindow reports whether t falls inside the sale window.
func (g *Goods) InWindow(t time.Time) bool {
	return !t.Before(g.StartDate) && !t.After(g.EndDate)
}

// DailyBounds returns the per-reservation and per-day quantity bounds with
// defaults applied: min is at least 1 and max is at least min.
func (g *Goods) DailyBounds() (int, int) {
	return NormalizeBounds(g.MinDaily, g.MaxDaily)
}

// NormalizeBounds applies the daily bound defaults to raw values.
func NormalizeBounds(minDaily, maxDaily int) (int, int) {
	minDaily = max(minDaily, 1)
	return minDaily, max(maxDaily, minDaily)
}

// CashbackPrice is the price the buyer ends up paying after cashback.
func (g *Goods) CashbackPrice() int {
	return g.Price * (100 - g.CashbackPercent) / 100
}

// Requirements returns the evidence list for the given confirmation step.
func (g *Goods) Requirements(kind ConfirmationKind) []Requirement {
	if kind == ConfirmationDelivery {
		return g.DeliveryConfirmationRequirements
	}
	return g.ConfirmationRequirements
}

// Summary returns the subset of fields sent along with notifications.
func (g *Goods) Summary() GoodsSummary {
	return GoodsSummary{
		ID:              g.ID,
		Name:            g.Name,
		Price:           g.Price,
		CashbackPercent: g.CashbackPercent,
		Article:         g.Article,
		URL:             g.URL,
		Image:           g.Image,
	}
}

// GoodsSummary is the goods payload embedded in notifications.
type GoodsSummary struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Price           int    `json:"price"`
	CashbackPercent int    `json:"cashback_percent"`
	Article         string `json:"article"`
	URL             string `json:"url,omitempty"`
	Image           string `json:"image,omitempty"`
}

// GoodsCreateRequest is the admin payload for creating goods.
type GoodsCreateRequest struct {
	Name                             string        `json:"name" validate:"required,max=255"`
	Price                            int           `json:"price" validate:"gte=0"`
	CashbackPercent                  int           `json:"cashback_percent" validate:"gte=0,lte=100"`
	Article                          string        `json:"article" validate:"required,max=64"`
	URL                              string        `json:"url" validate:"omitempty,url"`
	Image                            string        `json:"image"`
	Description                      string        `json:"description"`
	PurchaseGuide                    string        `json:"purchase_guide"`
	StartDate                        time.Time     `json:"start_date" validate:"required"`
	EndDate                          time.Time     `json:"end_date" validate:"required,gtefield=StartDate"`
	MinDaily                         int           `json:"min_daily" validate:"gte=0"`
	MaxDaily                         int           `json:"max_daily" validate:"gte=0"`
	TotalSalesLimit                  *int          `json:"total_sales_limit" validate:"omitempty,gt=0"`
	IsHidden                         bool          `json:"is_hidden"`
	CategoryID                       *int64        `json:"category_id" validate:"omitempty,gt=0"`
	ConfirmationRequirements         []Requirement `json:"confirmation_requirements" validate:"dive"`
	DeliveryConfirmationRequirements []Requirement `json:"delivery_confirmation_requirements" validate:"dive"`
}

// Goods builds a goods record from the request.
func (r *GoodsCreateRequest) Goods() *Goods {
	return &Goods{
		Name:                             r.Name,
		Price:                            r.Price,
		CashbackPercent:                  r.CashbackPercent,
		Article:                          r.Article,
		URL:                              r.URL,
		Image:                            r.Image,
		Description:                      r.Description,
		PurchaseGuide:                    r.PurchaseGuide,
		StartDate:                        r.StartDate,
		EndDate:                          r.EndDate,
		MinDaily:                         r.MinDaily,
		MaxDaily:                         r.MaxDaily,
		TotalSalesLimit:                  r.TotalSalesLimit,
		IsHidden:                         r.IsHidden,
		CategoryID:                       r.CategoryID,
		ConfirmationRequirements:         r.ConfirmationRequirements,
		DeliveryConfirmationRequirements: r.DeliveryConfirmationRequirements,
	}
}

// GoodsUpdateRequest is a partial update; nil fields are left unchanged.
type GoodsUpdateRequest struct {
	Name                             *string        `json:"name" validate:"omitempty,min=1,max=255"`
	Price                            *int           `json:"price" validate:"omitempty,gte=0"`
	CashbackPercent                  *int           `json:"cashback_percent" validate:"omitempty,gte=0,lte=100"`
	Article                          *string        `json:"article" validate:"omitempty,min=1,max=64"`
	URL                              *string        `json:"url"`
	Image                            *string        `json:"image"`
	Description                      *string        `json:"description"`
	PurchaseGuide                    *string        `json:"purchase_guide"`
	StartDate                        *time.Time     `json:"start_date"`
	EndDate                          *time.Time     `json:"end_date"`
	MinDaily                         *int           `json:"min_daily" validate:"omitempty,gte=0"`
	MaxDaily                         *int           `json:"max_daily" validate:"omitempty,gte=0"`
	TotalSalesLimit                  *int           `json:"total_sales_limit" validate:"omitempty,gte=0"`
	IsActive                         *bool          `json:"is_active"`
	IsHidden                         *bool          `json:"is_hidden"`
	CategoryID                       *int64         `json:"category_id" validate:"omitempty,gte=0"`
	ConfirmationRequirements         *[]Requirement `json:"confirmation_requirements" validate:"omitempty,dive"`
	DeliveryConfirmationRequirements *[]Requirement `json:"delivery_confirmation_requirements" validate:"omitempty,dive"`
}

// Apply copies the set fields onto g and reports whether the sale window or
// the daily bounds changed, which invalidates the generated availability.
// A zero total_sales_limit or category_id clears the field.
func (r *GoodsUpdateRequest) Apply(g *Goods) bool {
	scheduleChanged := false

	if r.Name != nil {
		g.Name = *r.Name
	}
	if r.Price != nil {
		g.Price = *r.Price
	}
	if r.CashbackPercent != nil {
		g.CashbackPercent = *r.CashbackPercent
	}
	if r.Article != nil {
		g.Article = *r.Article
	}
	if r.URL != nil {
		g.URL = *r.URL
	}
	if r.Image != nil {
		g.Image = *r.Image
	}
	if r.Description != nil {
		g.Description = *r.Description
	}
	if r.PurchaseGuide != nil {
		g.PurchaseGuide = *r.PurchaseGuide
	}
	if r.StartDate != nil && !r.StartDate.Equal(g.StartDate) {
		g.StartDate = *r.StartDate
		scheduleChanged = true
	}
	if r.EndDate != nil && !r.EndDate.Equal(g.EndDate) {
		g.EndDate = *r.EndDate
		scheduleChanged = true
	}
	if r.MinDaily != nil && *r.MinDaily != g.MinDaily {
		g.MinDaily = *r.MinDaily
		scheduleChanged = true
	}
	if r.MaxDaily != nil && *r.MaxDaily != g.MaxDaily {
		g.MaxDaily = *r.MaxDaily
		scheduleChanged = true
	}
	if r.TotalSalesLimit != nil {
		if *r.TotalSalesLimit == 0 {
			g.TotalSalesLimit = nil
		} else {
			limit := *r.TotalSalesLimit
			g.TotalSalesLimit = &limit
		}
	}
	if r.IsActive != nil {
		g.IsActive = *r.IsActive
	}
	if r.IsHidden != nil {
		g.IsHidden = *r.IsHidden
	}
	if r.CategoryID != nil {
		if *r.CategoryID == 0 {
			g.CategoryID = nil
		} else {
			id := *r.CategoryID
			g.CategoryID = &id
		}
	}
	if r.ConfirmationRequirements != nil {
		g.ConfirmationRequirements = *r.ConfirmationRequirements
	}
	if r.DeliveryConfirmationRequirements != nil {
		g.DeliveryConfirmationRequirements = *r.DeliveryConfirmationRequirements
	}

	return scheduleChanged
}

// GoodsFilter narrows the admin goods listing.
type GoodsFilter struct {
	Name       string
	Article    string
	MinPrice   *int
	MaxPrice   *int
	IsActive   *bool
	IsHidden   *bool
	CategoryID *int64
	Skip       int
	Limit      int
}

// BulkVisibilityRequest is the body of the bulk hide/show endpoints.
type BulkVisibilityRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// ActivityState is the slice of a goods row the activity sweeper looks at.
type ActivityState struct {
	ID        int64
	StartDate time.Time
	EndDate   time.Time
	IsActive  bool
}

// ActivityChange is a pending flip of a goods row's active flag.
type ActivityChange struct {
	ID       int64
	IsActive bool
}

// CatalogItem is a visible goods row together with today's remaining stock.
type CatalogItem struct {
	Goods
	AvailableToday int `json:"available_today"`
}

// ParsedGoods is metadata scraped from a marketplace product page.
type ParsedGoods struct {
	Name    string `json:"name"`
	Article string `json:"article"`
	URL     string `json:"url"`
	Price   int    `json:"price"`
	Image   string `json:"image"`
}

// ParseRequest is the body of the goods parse endpoint.
type ParseRequest struct {
	URL string `json:"url" validate:"required,url"`
}
