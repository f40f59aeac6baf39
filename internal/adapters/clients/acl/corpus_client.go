package acl

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/jsamuelsen/daily-quote/internal/adapters/clients"
	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

const (
	defaultPageSize = 50
	defaultMaxPages = 4

	// remoteIDPrefix keeps remote ids from colliding with the embedded q001 style.
	remoteIDPrefix = "qt-"
)

// CorpusClientConfig configures a remote quote corpus.
type CorpusClientConfig struct {
	// Client must have its BaseURL pointing at the quotable-style API root.
	Client *clients.Client

	// Name labels the source in health checks and on every loaded quote.
	Name string

	PageSize int
	MaxPages int
}

// CorpusClient loads quotes from a quotable-style API (GET /quotes?page=N&limit=M).
// It implements ports.CorpusSource and ports.HealthChecker.
type CorpusClient struct {
	BaseAdapter

	pageSize int
	maxPages int
}

// NewCorpusClient creates a remote corpus source.
// Panics if Client is nil.
func NewCorpusClient(cfg CorpusClientConfig) *CorpusClient {
	if cfg.Client == nil {
		panic("CorpusClient: Client is required")
	}

	name := cfg.Name
	if name == "" {
		name = "quotable"
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	return &CorpusClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, name),
		pageSize:    pageSize,
		maxPages:    maxPages,
	}
}

// quotablePage is one page of the external listing. Never leaves this package.
type quotablePage struct {
	Count      int             `json:"count"`
	TotalCount int             `json:"totalCount"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
	Results    []quotableQuote `json:"results"`
}

type quotableQuote struct {
	ID      string   `json:"_id"`
	Content string   `json:"content"`
	Author  string   `json:"author"`
	Tags    []string `json:"tags"`
}

// Name returns the source name, prefixed so it reads as a remote dependency.
func (c *CorpusClient) Name() string {
	return "remote:" + c.ServiceName()
}

// Optional marks the remote corpus as a dependency the service can run without.
func (c *CorpusClient) Optional() bool { return true }

// LoadQuotes reads up to maxPages pages. A failure on the first page fails the
// load; a failure on a later page keeps what was already read.
func (c *CorpusClient) LoadQuotes(ctx context.Context) ([]domain.Quote, error) {
	logger := logging.FromContext(ctx).With(slog.String("source", c.Name()))

	var quotes []domain.Quote

	for page := 1; page <= c.maxPages; page++ {
		batch, totalPages, err := c.fetchPage(ctx, page, c.pageSize)
		if err != nil {
			if page == 1 {
				return nil, err
			}

			logger.WarnContext(ctx, "remote corpus page failed, keeping earlier pages",
				slog.Int("page", page),
				slog.Any("error", err),
			)

			break
		}

		quotes = append(quotes, batch...)

		if page >= totalPages {
			break
		}
	}

	logger.DebugContext(ctx, "remote corpus loaded", slog.Int("quotes", len(quotes)))

	return quotes, nil
}

// Check fetches a single quote; an open circuit fails fast without a request.
func (c *CorpusClient) Check(ctx context.Context) error {
	if state := c.Client().CircuitState(); state == clients.StateOpen {
		return domain.NewUnavailableError(c.ServiceName(), "circuit breaker "+state.String())
	}

	_, _, err := c.fetchPage(ctx, 1, 1)

	return err
}

func (c *CorpusClient) fetchPage(ctx context.Context, page, limit int) ([]domain.Quote, int, error) {
	query := url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}

	logging.Trace(ctx, logging.FromContext(ctx), "fetching remote corpus page",
		slog.Int("page", page),
		slog.Int("limit", limit),
	)

	ext, err := GetJSON[quotablePage](ctx, &c.BaseAdapter, "/quotes", query, "list quotes")
	if err != nil {
		return nil, 0, err
	}

	quotes, rejected := TranslateSlice(ext.Results, c.translate)
	if len(rejected) > 0 {
		logging.FromContext(ctx).DebugContext(ctx, "skipped invalid remote quotes",
			slog.Int("page", page),
			slog.Int("rejected", len(rejected)),
			slog.Any("first", rejected[0]),
		)
	}

	return quotes, ext.TotalPages, nil
}

// translate converts the external DTO into a domain Quote.
func (c *CorpusClient) translate(ext *quotableQuote) (domain.Quote, error) {
	text := strings.TrimSpace(ext.Content)
	if text == "" {
		return domain.Quote{}, domain.NewValidationError("content", "is required")
	}

	q := domain.Quote{
		Text:   text,
		Author: strings.TrimSpace(ext.Author),
		Source: c.ServiceName(),
	}

	if ext.ID != "" {
		q.ID = remoteIDPrefix + ext.ID
	}

	if len(ext.Tags) > 0 {
		q.Category = strings.ToLower(ext.Tags[0])
	}

	return q, nil
}
