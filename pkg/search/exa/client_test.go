package exa

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSearchAssignsDenseCitationIds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"results": [
			{"title": "First", "url": "https://a.example", "text": "aaa"},
			{"title": "Second", "url": "https://b.example", "text": "bbb"},
			{"title": "Third", "url": "https://c.example", "text": "ccc"}
		]}`)
	}))
	defer srv.Close()

	c := NewClient("test-key", nil, testLogger(), time.Second).WithBaseURL(srv.URL)
	citations := c.Search(context.Background(), "remote work benefits", 3)

	if len(citations) != 3 {
		t.Fatalf("got %d citations, want 3", len(citations))
	}
	wantTitles := []string{"First", "Second", "Third"}
	for i, cit := range citations {
		if cit.Id != i+1 {
			t.Errorf("citation[%d].Id = %d, want %d", i, cit.Id, i+1)
		}
		if cit.Title != wantTitles[i] {
			t.Errorf("citation[%d].Title = %q, want %q (provider order must be preserved)", i, cit.Title, wantTitles[i])
		}
	}
}

func TestSearchCapsFreshnessAtYesterday(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		io.WriteString(w, `{"results": []}`)
	}))
	defer srv.Close()

	c := NewClient("test-key", nil, testLogger(), time.Second).WithBaseURL(srv.URL)
	c.Search(context.Background(), "anything", 5)

	if got.EndPublishedDate == "" {
		t.Fatal("endPublishedDate not sent")
	}
	cutoff, err := time.Parse("2006-01-02", got.EndPublishedDate)
	if err != nil {
		t.Fatalf("endPublishedDate %q is not a date: %v", got.EndPublishedDate, err)
	}
	today := time.Now().Truncate(24 * time.Hour)
	if !cutoff.Before(today) {
		t.Errorf("endPublishedDate %s is not strictly before today", got.EndPublishedDate)
	}
	if got.NumResults != 5 {
		t.Errorf("numResults = %d, want 5", got.NumResults)
	}
}

func TestSearchTimesOutToEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	c := NewClient("test-key", nil, testLogger(), 50*time.Millisecond).WithBaseURL(srv.URL)

	start := time.Now()
	citations := c.Search(context.Background(), "slow query", 3)

	if len(citations) != 0 {
		t.Errorf("got %d citations, want 0 on timeout", len(citations))
	}
	if time.Since(start) > time.Second {
		t.Error("deadline not enforced")
	}
}

func TestSearchDegradesOnUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient("test-key", nil, testLogger(), time.Second).WithBaseURL(srv.URL)
	citations := c.Search(context.Background(), "broken upstream", 3)
	if len(citations) != 0 {
		t.Errorf("got %d citations, want 0", len(citations))
	}
}

func TestSearchSkipsWhenUnconfigured(t *testing.T) {
	c := NewClient("", nil, testLogger(), time.Second)
	citations := c.Search(context.Background(), "anything", 3)
	if len(citations) != 0 {
		t.Errorf("got %d citations, want 0 without an API key", len(citations))
	}
}
