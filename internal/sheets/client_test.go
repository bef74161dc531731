package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"wallet-roster/internal/retry"
)

func fastRetry() ClientOption {
	return WithRetryConfig(retry.Config{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		Multiplier:  2.0,
		Jitter:      1,
	})
}

func TestClient_GetValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}

		resp := map[string]interface{}{
			"range": "Wallets!A2:D",
			"values": [][]interface{}{
				{"alice", "1001", "0xabc", "Boss"},
				{"bob", "1002", "0xdef"}, // trailing cell absent
				{"eve", float64(1003), "0x123", ""},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient("sheet1", WithBaseURL(server.URL), fastRetry())

	rows, err := client.GetValues(context.Background(), "Wallets!A2:D")
	if err != nil {
		t.Fatalf("GetValues: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][3] != "Boss" {
		t.Errorf("expected Boss, got %q", rows[0][3])
	}
	if len(rows[1]) != 3 {
		t.Errorf("expected short row preserved, got %d cells", len(rows[1]))
	}
	if rows[2][1] != "1003" {
		t.Errorf("expected numeric cell coerced to 1003, got %q", rows[2][1])
	}
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{
					"code":    429,
					"message": "Quota exceeded",
					"status":  "RESOURCE_EXHAUSTED",
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"values": [][]interface{}{}})
	}))
	defer server.Close()

	client := NewClient("sheet1", WithBaseURL(server.URL), fastRetry())

	if _, err := client.GetValues(context.Background(), "Wallets!A2:D"); err != nil {
		t.Fatalf("GetValues after rate limits: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 calls (2 rate-limited + 1 success), got %d", got)
	}
}

func TestClient_NonRateLimitFailsFast(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"code":    403,
				"message": "The caller does not have permission",
				"status":  "PERMISSION_DENIED",
			},
		})
	}))
	defer server.Close()

	client := NewClient("sheet1", WithBaseURL(server.URL), fastRetry())

	_, err := client.GetValues(context.Background(), "Wallets!A2:D")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", apiErr.StatusCode)
	}
	if IsRateLimited(err) {
		t.Error("403 must not classify as rate-limited")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call (fail fast), got %d", got)
	}
}

func TestClient_RateLimitExhaustion(t *testing.T) {
	var calls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"code": 429, "message": "slow down", "status": "RESOURCE_EXHAUSTED"},
		})
	}))
	defer server.Close()

	client := NewClient("sheet1", WithBaseURL(server.URL), fastRetry())

	_, err := client.GetValues(context.Background(), "Wallets!A2:D")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := calls.Load(); got != 5 {
		t.Errorf("expected 5 attempts, got %d", got)
	}
	if !IsRateLimited(err) {
		t.Errorf("exhaustion error should still classify as rate-limited: %v", err)
	}
}

func TestClient_BatchUpdateValues(t *testing.T) {
	var body batchUpdateValuesRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("sheet1", WithBaseURL(server.URL), fastRetry())

	data := []ValueRange{
		{Range: "Wallets!D3:D3", Values: [][]string{{"Boss"}}},
		{Range: "Wallets!D7:D7", Values: [][]string{{""}}},
	}
	if err := client.BatchUpdateValues(context.Background(), data); err != nil {
		t.Fatalf("BatchUpdateValues: %v", err)
	}

	if body.ValueInputOption != "RAW" {
		t.Errorf("expected RAW input option, got %q", body.ValueInputOption)
	}
	if len(body.Data) != 2 || body.Data[0].Range != "Wallets!D3:D3" {
		t.Errorf("unexpected batch payload: %+v", body.Data)
	}
}

func TestClient_IsRateLimitedNonAPIError(t *testing.T) {
	if IsRateLimited(errors.New("plain")) {
		t.Error("plain errors must not classify as rate-limited")
	}
	if IsRateLimited(nil) {
		t.Error("nil must not classify as rate-limited")
	}
}
