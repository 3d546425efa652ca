package exa

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"quickhand-be/internal/dto"
	"quickhand-be/pkg/bound"

	"github.com/redis/go-redis/v9"
)

const (
	defaultBaseURL  = "https://api.exa.ai"
	defaultLimit    = 5
	maxSnippetChars = 500
	cacheTTL        = 10 * time.Minute
)

// Client executes bounded web searches against the Exa API. Search is an
// enhancement, not a dependency: every failure mode returns an empty
// citation list.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *redis.Client // optional, nil disables caching
	logger     *log.Logger
	timeout    time.Duration
}

func NewClient(apiKey string, cache *redis.Client, logger *log.Logger, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:   cache,
		logger:  logger,
		timeout: timeout,
	}
}

// WithBaseURL overrides the API endpoint (tests).
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

// --- Request/Response structs (Internal to this package) ---

type searchRequest struct {
	Query            string           `json:"query"`
	NumResults       int              `json:"numResults"`
	EndPublishedDate string           `json:"endPublishedDate,omitempty"`
	Contents         *contentsRequest `json:"contents,omitempty"`
}

type contentsRequest struct {
	Text textRequest `json:"text"`
}

type textRequest struct {
	MaxCharacters int `json:"maxCharacters"`
}

type searchResponse struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Text  string `json:"text"`
	} `json:"results"`
}

// Search returns ranked citations with dense 1-based ids matching the
// provider's relevance order. On timeout or any upstream failure it
// returns an empty list; it never returns an error to the caller.
func (c *Client) Search(ctx context.Context, query string, limit int) []dto.CitationDTO {
	if c.apiKey == "" {
		c.logger.Printf("[SEARCH] No Exa API key configured, skipping search")
		return []dto.CitationDTO{}
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	cacheKey := c.cacheKey(query, limit)
	if cached := c.fromCache(ctx, cacheKey); cached != nil {
		c.logger.Printf("[SEARCH] Cache hit for %q (%d results)", query, len(cached))
		return cached
	}

	res := bound.Call(ctx, c.timeout, []dto.CitationDTO{}, func(ctx context.Context) ([]dto.CitationDTO, error) {
		return c.doSearch(ctx, query, limit)
	})
	if res.Err != nil {
		c.logger.Printf("[SEARCH] Degraded to empty results (timedOut=%v): %v", res.TimedOut, res.Err)
		return []dto.CitationDTO{}
	}

	c.toCache(cacheKey, res.Value)
	return res.Value
}

func (c *Client) doSearch(ctx context.Context, query string, limit int) ([]dto.CitationDTO, error) {
	reqBody := searchRequest{
		Query:      query,
		NumResults: limit,
		// Cap freshness at yesterday: "today" pages are often half-crawled.
		EndPublishedDate: time.Now().AddDate(0, 0, -1).Format("2006-01-02"),
		Contents: &contentsRequest{
			Text: textRequest{MaxCharacters: maxSnippetChars},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/search", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exa request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exa error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var exaResp searchResponse
	if err := json.Unmarshal(bodyBytes, &exaResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	// Rank 0 becomes id 1; this ordering is frozen for the whole turn.
	citations := make([]dto.CitationDTO, 0, len(exaResp.Results))
	for i, r := range exaResp.Results {
		citations = append(citations, dto.CitationDTO{
			Id:      i + 1,
			Title:   r.Title,
			Url:     r.URL,
			Snippet: r.Text,
		})
	}

	c.logger.Printf("[SEARCH] %q returned %d results", query, len(citations))
	return citations, nil
}

// --- Redis result cache (best effort on both paths) ---

func (c *Client) cacheKey(query string, limit int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%d", query, limit)))
	return fmt.Sprintf("exa:%x", sum)
}

func (c *Client) fromCache(ctx context.Context, key string) []dto.CitationDTO {
	if c.cache == nil {
		return nil
	}
	raw, err := c.cache.Get(ctx, key).Result()
	if err != nil {
		return nil
	}
	var citations []dto.CitationDTO
	if err := json.Unmarshal([]byte(raw), &citations); err != nil {
		return nil
	}
	return citations
}

func (c *Client) toCache(key string, citations []dto.CitationDTO) {
	if c.cache == nil || len(citations) == 0 {
		return
	}
	raw, err := json.Marshal(citations)
	if err != nil {
		return
	}
	// Detached from the request: a slow or down Redis must not delay the turn.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.cache.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
			c.logger.Printf("[SEARCH] Cache write failed: %v", err)
		}
	}()
}
