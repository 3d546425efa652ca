package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://api.notion.com"
	notionVersion  = "2022-06-28"
)

// PageResult identifies the created page.
type PageResult struct {
	PageId string
	Url    string
}

// Status reports whether the integration token is usable.
type Status struct {
	Connected     bool
	WorkspaceName string
}

// Client talks to the Notion REST API with a static OAuth token. Page
// creation is the only write operation the assistant performs.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	parentPageId string
	logger       *log.Logger
	configured   bool
}

func NewClient(accessToken, parentPageId string, logger *log.Logger) *Client {
	var httpClient *http.Client
	if accessToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = 30 * time.Second
	} else {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      defaultBaseURL,
		parentPageId: parentPageId,
		logger:       logger,
		configured:   accessToken != "",
	}
}

// WithBaseURL overrides the API endpoint (tests).
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

func (c *Client) Configured() bool {
	return c.configured
}

// CreatePage creates a page under the configured parent. Markdown content
// is mapped line by line onto paragraph and heading blocks; Notion has no
// raw markdown endpoint.
func (c *Client) CreatePage(ctx context.Context, title, contentMd string) (*PageResult, error) {
	if !c.configured {
		return nil, fmt.Errorf("notion integration is not configured")
	}
	if c.parentPageId == "" {
		return nil, fmt.Errorf("no Notion parent page configured")
	}

	body := map[string]interface{}{
		"parent": map[string]interface{}{"page_id": c.parentPageId},
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"title": []interface{}{richText(title)},
			},
		},
		"children": blocksFromMarkdown(contentMd),
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal page request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/pages", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notion error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var page struct {
		Id  string `json:"id"`
		Url string `json:"url"`
	}
	if err := json.Unmarshal(bodyBytes, &page); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	c.logger.Printf("[NOTION] Created page %s", page.Id)
	return &PageResult{PageId: page.Id, Url: page.Url}, nil
}

// CheckStatus verifies the token against the bot user endpoint.
func (c *Client) CheckStatus(ctx context.Context) Status {
	if !c.configured {
		return Status{Connected: false}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/users/me", nil)
	if err != nil {
		return Status{Connected: false}
	}
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("[NOTION] Status check failed: %v", err)
		return Status{Connected: false}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{Connected: false}
	}

	var me struct {
		Bot struct {
			WorkspaceName string `json:"workspace_name"`
		} `json:"bot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return Status{Connected: true}
	}
	return Status{Connected: true, WorkspaceName: me.Bot.WorkspaceName}
}

func richText(content string) map[string]interface{} {
	return map[string]interface{}{
		"type": "text",
		"text": map[string]interface{}{"content": content},
	}
}

// blocksFromMarkdown maps markdown lines onto Notion blocks. Headings and
// bullet items get their own block types; everything else is a paragraph.
func blocksFromMarkdown(md string) []interface{} {
	var blocks []interface{}
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimRight(line, " ")
		if strings.TrimSpace(line) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, block("heading_2", strings.TrimPrefix(line, "## ")))
		case strings.HasPrefix(line, "# "):
			blocks = append(blocks, block("heading_1", strings.TrimPrefix(line, "# ")))
		case strings.HasPrefix(line, "- "):
			blocks = append(blocks, block("bulleted_list_item", strings.TrimPrefix(line, "- ")))
		default:
			blocks = append(blocks, block("paragraph", line))
		}
	}
	return blocks
}

func block(blockType, content string) map[string]interface{} {
	return map[string]interface{}{
		"object": "block",
		"type":   blockType,
		blockType: map[string]interface{}{
			"rich_text": []interface{}{richText(content)},
		},
	}
}
