package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New([]string{"key-a", "key-b", "key-c"}, "test-model", zerolog.Nop())
	c.baseURL = srv.URL
	return c
}

func okResponse(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":"` + text + `"}]}}]}`
}

func TestGenerateRotatesOnQuotaError(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("key") {
		case "key-a":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(okResponse("hello")))
		}
	})

	got, err := c.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "hello" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestGenerateRemembersWorkingKey(t *testing.T) {
	calls := map[string]int{}
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		calls[key]++
		if key != "key-c" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(okResponse("ok")))
	})

	for i := 0; i < 2; i++ {
		if _, err := c.Generate(context.Background(), "p"); err != nil {
			t.Fatalf("Generate #%d: %v", i, err)
		}
	}
	// After the first rotation lands on key-c, the second call starts there.
	if calls["key-a"] != 1 || calls["key-b"] != 1 || calls["key-c"] != 2 {
		t.Fatalf("unexpected call distribution: %v", calls)
	}
}

func TestGenerateAllKeysExhausted(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	if _, err := c.Generate(context.Background(), "p"); err == nil {
		t.Fatal("expected error with every key rejected")
	}
}

func TestGenerateDoesNotRotateOnBadRequest(t *testing.T) {
	calls := 0
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	})
	if _, err := c.Generate(context.Background(), "p"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("client rotated on a non-quota error: %d calls", calls)
	}
}

func TestGenerateMCQsParsesFencedJSON(t *testing.T) {
	payload := `[{\"question\":\"q1\",\"options\":[\"a\",\"b\",\"c\",\"d\"],\"correct\":1}]`
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(okResponse("```json\\n" + payload + "\\n```")))
	})

	items, err := c.GenerateMCQs(context.Background(), "make questions", 1)
	if err != nil {
		t.Fatalf("GenerateMCQs: %v", err)
	}
	if len(items) != 1 || items[0].Question != "q1" || items[0].Correct != 1 {
		t.Fatalf("unexpected items: %+v", items)
	}
}
