package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/warplog/internal/model"
)

var testCapture = CaptureURL{
	AuthKey:    "secret-key",
	AuthKeyVer: "1",
	Lang:       "en",
	GameBiz:    GameBizGlobal,
}

const pageBody = `{
	"retcode": 0,
	"message": "OK",
	"data": {
		"page": "1",
		"size": "2",
		"region": "prod_official_asia",
		"region_time_zone": 8,
		"list": [
			{"uid": "100", "gacha_id": "2003", "gacha_type": "11", "item_id": "1208", "count": "1",
			 "time": "2024-01-15 12:00:00", "name": "Fu Xuan", "lang": "en", "item_type": "Character",
			 "rank_type": "5", "id": "1705300000000000002"},
			{"uid": "100", "gacha_id": "2003", "gacha_type": "11", "item_id": "20000", "count": "1",
			 "time": "2024-01-15 12:00:00", "name": "Arrows", "lang": "en", "item_type": "Light Cone",
			 "rank_type": "3", "id": "1705300000000000001"}
		]
	}
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(serverURL string, opts ...ClientOption) *Client {
	opts = append([]ClientOption{
		WithBaseURL(GameBizCN, serverURL),
		WithBaseURL(GameBizGlobal, serverURL),
	}, opts...)
	return NewClient(opts...)
}

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient()

		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.maxRetries != 0 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 0)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
		if got := c.baseURLs[GameBizCN]; got != CNBaseURL {
			t.Errorf("cn base = %q, want %q", got, CNBaseURL)
		}
		if got := c.baseURLs[GameBizGlobal]; got != GlobalBaseURL {
			t.Errorf("global base = %q, want %q", got, GlobalBaseURL)
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		hc := &http.Client{Timeout: 10 * time.Second}
		c := NewClient(
			WithHTTPClient(hc),
			WithTimeout(15*time.Second),
			WithRetries(3, 500*time.Millisecond),
			WithLogger(logger),
		)
		if c.httpClient != hc {
			t.Error("custom HTTP client not set")
		}
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 500*time.Millisecond)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})

	t.Run("nil logger keeps default", func(t *testing.T) {
		c := NewClient(WithLogger(nil))
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})
}

func TestGetGachaLog(t *testing.T) {
	t.Run("forwards capture params and decodes page", func(t *testing.T) {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != gachaLogPath {
				t.Errorf("path = %q, want %q", r.URL.Path, gachaLogPath)
			}
			q := r.URL.Query()
			want := map[string]string{
				"authkey":     "secret-key",
				"authkey_ver": "1",
				"lang":        "en",
				"game_biz":    GameBizGlobal,
				"gacha_type":  "11",
				"size":        "20",
				"end_id":      "0",
			}
			for k, v := range want {
				if got := q.Get(k); got != v {
					t.Errorf("%s = %q, want %q", k, got, v)
				}
			}
			if len(q) != len(want) {
				t.Errorf("query has %d params, want %d", len(q), len(want))
			}
			w.Write([]byte(pageBody))
		})

		c := newTestClient(server.URL)
		page, err := c.GetGachaLog(context.Background(), testCapture, model.CharacterEventWarp, 20, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.RegionTimeZone != 8 {
			t.Errorf("RegionTimeZone = %d, want 8", page.RegionTimeZone)
		}
		if page.Size != 2 {
			t.Errorf("Size = %d, want 2", page.Size)
		}
		if len(page.List) != 2 {
			t.Fatalf("len(List) = %d, want 2", len(page.List))
		}
		if page.List[0].Name != "Fu Xuan" {
			t.Errorf("List[0].Name = %q, want %q", page.List[0].Name, "Fu Xuan")
		}
	})

	t.Run("collaboration pools use separate path", func(t *testing.T) {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != collaborationGachaLogPath {
				t.Errorf("path = %q, want %q", r.URL.Path, collaborationGachaLogPath)
			}
			if got := r.URL.Query().Get("end_id"); got != "42" {
				t.Errorf("end_id = %q, want %q", got, "42")
			}
			w.Write([]byte(`{"retcode":0,"message":"OK","data":{"page":0,"size":20,"list":[],"region":"","region_time_zone":8}}`))
		})

		c := newTestClient(server.URL)
		page, err := c.GetGachaLog(context.Background(), testCapture, model.CharacterCollaborationWarp, 20, 42)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(page.List) != 0 {
			t.Errorf("len(List) = %d, want 0", len(page.List))
		}
	})

	t.Run("auth retcode", func(t *testing.T) {
		for _, code := range []int{RetcodeInvalidAuthKey, RetcodeAuthKeyExpired} {
			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"retcode":` + strconv.Itoa(code) + `,"message":"authkey error","data":null}`))
			})

			c := newTestClient(server.URL)
			_, err := c.GetGachaLog(context.Background(), testCapture, model.RegularWarp, 20, 0)
			if !errors.Is(err, ErrAuth) {
				t.Errorf("retcode %d: error = %v, want ErrAuth", code, err)
			}
			var rerr *RetcodeError
			if !errors.As(err, &rerr) || rerr.Retcode != code {
				t.Errorf("retcode %d: expected *RetcodeError, got %v", code, err)
			}
		}
	})

	t.Run("other retcode is not auth", func(t *testing.T) {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"retcode":-108,"message":"invalid lang","data":null}`))
		})

		c := newTestClient(server.URL)
		_, err := c.GetGachaLog(context.Background(), testCapture, model.RegularWarp, 20, 0)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if errors.Is(err, ErrAuth) {
			t.Errorf("error %v should not match ErrAuth", err)
		}
		if !strings.Contains(err.Error(), "invalid language") {
			t.Errorf("error should name the retcode, got %v", err)
		}
	})

	t.Run("unsupported game_biz", func(t *testing.T) {
		c := NewClient()
		cu := testCapture
		cu.GameBiz = "hk4e_cn"
		_, err := c.GetGachaLog(context.Background(), cu, model.RegularWarp, 20, 0)
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("error = %v, want ErrInvalidURL", err)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		c := newTestClient(url)
		_, err := c.GetGachaLog(context.Background(), testCapture, model.RegularWarp, 20, 0)
		if !errors.Is(err, ErrTransport) {
			t.Errorf("error = %v, want ErrTransport", err)
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	t.Run("Error method", func(t *testing.T) {
		err := &APIError{StatusCode: 404, Message: "Not Found"}
		expected := "gacha api error 404: Not Found"
		if err.Error() != expected {
			t.Errorf("Error() = %q, want %q", err.Error(), expected)
		}
	})

	t.Run("IsRetryable", func(t *testing.T) {
		tests := []struct {
			code     int
			expected bool
		}{
			{500, true},
			{503, true},
			{429, true},
			{400, false},
			{404, false},
			{499, false},
		}

		for _, tt := range tests {
			err := &APIError{StatusCode: tt.code}
			if got := err.IsRetryable(); got != tt.expected {
				t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
			}
		}
	})
}

// TestDoWithRetry tests the retry logic.
func TestDoWithRetry(t *testing.T) {
	t.Run("no retries by default", func(t *testing.T) {
		var attempts int32
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusInternalServerError)
		})

		c := newTestClient(server.URL)
		err := c.get(context.Background(), server.URL+"/test", nil, nil)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&attempts, 1)
			if n < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"retcode":0,"message":"OK","data":{}}`))
		})

		c := newTestClient(server.URL, WithRetries(3, 10*time.Millisecond))
		if err := c.get(context.Background(), server.URL+"/test", nil, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("retries on too frequent retcode", func(t *testing.T) {
		var attempts int32
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				w.Write([]byte(`{"retcode":-110,"message":"visit too frequently","data":null}`))
				return
			}
			w.Write([]byte(`{"retcode":0,"message":"OK","data":null}`))
		})

		c := newTestClient(server.URL, WithRetries(2, 10*time.Millisecond))
		if err := c.get(context.Background(), server.URL+"/test", nil, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 2 {
			t.Errorf("attempts = %d, want 2", attempts)
		}
	})

	t.Run("does not retry auth errors", func(t *testing.T) {
		var attempts int32
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.Write([]byte(`{"retcode":-101,"message":"authkey timeout","data":null}`))
		})

		c := newTestClient(server.URL, WithRetries(3, 10*time.Millisecond))
		err := c.get(context.Background(), server.URL+"/test", nil, nil)
		if !errors.Is(err, ErrAuth) {
			t.Fatalf("error = %v, want ErrAuth", err)
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusInternalServerError)
		})

		c := newTestClient(server.URL, WithRetries(2, 10*time.Millisecond))
		err := c.get(context.Background(), server.URL+"/test", nil, nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("error should contain 'max retries exceeded', got %v", err)
		}
		// 1 initial + 2 retries = 3 attempts
		if attempts != 3 {
			t.Errorf("attempts = %d, want 3", attempts)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
		})

		c := newTestClient(server.URL)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := c.get(ctx, server.URL+"/test", nil, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if errors.Is(err, ErrTransport) {
			t.Errorf("cancellation should not be reported as a transport error")
		}
	})
}
