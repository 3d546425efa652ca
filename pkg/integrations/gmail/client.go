package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://gmail.googleapis.com"

// DraftResult identifies the created draft. Drafts are never sent by the
// assistant; sending stays a manual user action in the Gmail UI.
type DraftResult struct {
	DraftId   string
	MessageId string
	ThreadId  string
	DraftUrl  string
}

// Status reports whether the integration token is usable.
type Status struct {
	Connected    bool
	EmailAddress string
}

// Client talks to the Gmail REST API with a static OAuth token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
	configured bool
}

func NewClient(accessToken string, logger *log.Logger) *Client {
	var httpClient *http.Client
	if accessToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = 30 * time.Second
	} else {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
		logger:     logger,
		configured: accessToken != "",
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

// CreateDraft creates a draft with both plain-text and HTML parts.
func (c *Client) CreateDraft(ctx context.Context, to []string, subject, bodyText, bodyHtml string) (*DraftResult, error) {
	if !c.configured {
		return nil, fmt.Errorf("gmail integration is not configured")
	}
	if len(to) == 0 {
		return nil, fmt.Errorf("draft has no recipients")
	}

	raw := base64.URLEncoding.EncodeToString(buildMime(to, subject, bodyText, bodyHtml))
	body, err := json.Marshal(map[string]interface{}{
		"message": map[string]interface{}{"raw": raw},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal draft request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/gmail/v1/users/me/drafts", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gmail request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gmail error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var draft struct {
		Id      string `json:"id"`
		Message struct {
			Id       string `json:"id"`
			ThreadId string `json:"threadId"`
		} `json:"message"`
	}
	if err := json.Unmarshal(bodyBytes, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	c.logger.Printf("[GMAIL] Created draft %s (thread %s)", draft.Id, draft.Message.ThreadId)
	return &DraftResult{
		DraftId:   draft.Id,
		MessageId: draft.Message.Id,
		ThreadId:  draft.Message.ThreadId,
		DraftUrl:  fmt.Sprintf("https://mail.google.com/mail/u/0/#drafts?compose=%s", draft.Message.Id),
	}, nil
}

// CheckStatus verifies the token against the profile endpoint.
func (c *Client) CheckStatus(ctx context.Context) Status {
	if !c.configured {
		return Status{Connected: false}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/gmail/v1/users/me/profile", nil)
	if err != nil {
		return Status{Connected: false}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("[GMAIL] Status check failed: %v", err)
		return Status{Connected: false}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{Connected: false}
	}

	var profile struct {
		EmailAddress string `json:"emailAddress"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Status{Connected: true}
	}
	return Status{Connected: true, EmailAddress: profile.EmailAddress}
}

// buildMime assembles a multipart/alternative RFC 2822 message.
func buildMime(to []string, subject, bodyText, bodyHtml string) []byte {
	const boundary = "quickhand-alt-boundary"
	var msg bytes.Buffer

	msg.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n")
	msg.WriteString("\r\n")

	msg.WriteString("--" + boundary + "\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(bodyText + "\r\n")

	if bodyHtml != "" {
		msg.WriteString("--" + boundary + "\r\n")
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		msg.WriteString(bodyHtml + "\r\n")
	}

	msg.WriteString("--" + boundary + "--\r\n")
	return msg.Bytes()
}
