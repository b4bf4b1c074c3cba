package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"wb-aggregator/internal/model"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultCardURL is the Wildberries card API; %d is the article.
	DefaultCardURL = "https://card.wb.ru/cards/v1/detail?appType=1&curr=rub&dest=-1257786&spp=27&nm=%d"
	// DefaultFallbackURL serves static card JSON when the card API has nothing.
	DefaultFallbackURL = "https://wbx-content-v2.wbstatic.net/ru/%d.json"

	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
	acceptLanguage = "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7"

	// walletDiscount is the extra discount for paying with the WB wallet.
	walletDiscount = 0.98

	maxBodyBytes = 2 << 20
)

var articlePattern = regexp.MustCompile(`catalog/(\d+)/detail`)

var (
	ErrInvalidURL      = model.NewDomainError(model.KindValidation, model.ErrCodeInvalidProductURL, "URL does not point to a Wildberries product")
	ErrProductNotFound = model.NewDomainError(model.KindNotFound, model.ErrCodeProductNotFound, "Product was not found on Wildberries")
)

// product is the subset of a card the scraper reads. Prices are in kopecks.
type product struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ImtName    string `json:"imt_name"`
	PriceU     *int64 `json:"priceU"`
	SalePriceU *int64 `json:"salePriceU"`
	Sale       *int   `json:"sale"`
}

type cardResponse struct {
	Data struct {
		Products []product `json:"products"`
	} `json:"data"`
}

// Scraper fetches product metadata from Wildberries.
type Scraper struct {
	httpClient  *http.Client
	cardURL     string
	fallbackURL string
	logger      zerolog.Logger
}

// New creates a scraper against the public Wildberries endpoints.
func New(timeout time.Duration, logger zerolog.Logger) *Scraper {
	return NewWithEndpoints(DefaultCardURL, DefaultFallbackURL, timeout, logger)
}

// NewWithEndpoints creates a scraper with custom URL templates.
func NewWithEndpoints(cardURL, fallbackURL string, timeout time.Duration, logger zerolog.Logger) *Scraper {
	return &Scraper{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cardURL:     cardURL,
		fallbackURL: fallbackURL,
		logger:      logger.With().Str("component", "scraper").Logger(),
	}
}

// ExtractArticle returns the product article from a catalog URL.
func ExtractArticle(rawURL string) (int64, bool) {
	m := articlePattern.FindStringSubmatch(rawURL)
	if m == nil {
		return 0, false
	}
	nm, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return nm, true
}

// Parse resolves a product URL to its name, price and image.
func (s *Scraper) Parse(ctx context.Context, rawURL string) (*model.ParsedGoods, error) {
	nm, ok := ExtractArticle(rawURL)
	if !ok {
		return nil, ErrInvalidURL
	}

	p, err := s.fetch(ctx, nm)
	if err != nil {
		return nil, err
	}

	name := p.Name
	if name == "" {
		name = p.ImtName
	}

	return &model.ParsedGoods{
		Name:    name,
		Article: strconv.FormatInt(nm, 10),
		URL:     rawURL,
		Price:   walletPrice(p),
		Image:   ImageURL(nm),
	}, nil
}

func (s *Scraper) fetch(ctx context.Context, nm int64) (*product, error) {
	var card cardResponse
	status, err := s.getJSON(ctx, fmt.Sprintf(s.cardURL, nm), nm, &card)
	if err != nil {
		s.logger.Warn().Err(err).Int64("article", nm).Msg("card api request failed")
	}
	if err == nil && status == http.StatusOK && len(card.Data.Products) > 0 {
		return &card.Data.Products[0], nil
	}

	s.logger.Debug().Int("status", status).Int64("article", nm).Msg("card api had no product, trying fallback")

	var p product
	status, err = s.getJSON(ctx, fmt.Sprintf(s.fallbackURL, nm), nm, &p)
	if err != nil {
		return nil, model.NewDomainError(model.KindUpstream, model.ErrCodeParseFailed,
			fmt.Sprintf("Wildberries request failed: %v", err))
	}
	if status != http.StatusOK {
		s.logger.Warn().Int("status", status).Int64("article", nm).Msg("fallback request failed")
		return nil, ErrProductNotFound
	}

	return &p, nil
}

// getJSON decodes the body into dst only on 200.
func (s *Scraper) getJSON(ctx context.Context, url string, nm int64, dst any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Referer", fmt.Sprintf("https://www.wildberries.ru/catalog/%d/detail.aspx", nm))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return resp.StatusCode, nil
}

// walletPrice is the rouble price after the sale and the wallet discount.
func walletPrice(p *product) int {
	switch {
	case p.SalePriceU != nil:
		return int(math.Floor(float64(*p.SalePriceU) / 100 * walletDiscount))
	case p.PriceU != nil && p.Sale != nil:
		base := float64(*p.PriceU) / 100
		return int(math.Floor(base * (1 - float64(*p.Sale)/100) * walletDiscount))
	case p.PriceU != nil:
		return int(math.Floor(float64(*p.PriceU) / 100 * walletDiscount))
	}
	return 0
}

// basketBounds maps the highest vol served by each basket host, in order.
var basketBounds = []int64{143, 287, 431, 719, 1007, 1061, 1115, 1169, 1313, 1601, 1655, 1919, 2045, 2189, 2405, 2621, 2837, 3053, 3269}

// BasketHost returns the two-digit image host number for a vol.
func BasketHost(vol int64) string {
	for i, upper := range basketBounds {
		if vol <= upper {
			return fmt.Sprintf("%02d", i+1)
		}
	}
	return fmt.Sprintf("%02d", len(basketBounds)+1)
}

// ImageURL builds the large first-image URL of a product.
func ImageURL(nm int64) string {
	vol := nm / 100000
	part := nm / 1000
	return fmt.Sprintf("https://basket-%s.wbbasket.ru/vol%d/part%d/%d/images/big/1.webp", BasketHost(vol), vol, part, nm)
}
