package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"financas/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
		wantErr   bool
	}{
		{
			name:      "both values provided",
			query:     url.Values{"year": {"2024"}, "month": {"12"}},
			wantYear:  2024,
			wantMonth: 12,
		},
		{
			name:      "defaults to now",
			query:     url.Values{},
			wantYear:  2024,
			wantMonth: 8,
		},
		{
			name:      "only month",
			query:     url.Values{"month": {" 3 "}},
			wantYear:  2024,
			wantMonth: 3,
		},
		{
			name:      "out of range month is left to the service",
			query:     url.Values{"month": {"13"}},
			wantYear:  2024,
			wantMonth: 13,
		},
		{
			name:    "non-numeric year",
			query:   url.Values{"year": {"abc"}},
			wantErr: true,
		},
		{
			name:    "non-numeric month",
			query:   url.Values{"month": {"june"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParams(tt.query, now)
			if tt.wantErr {
				if StatusFor(err) != http.StatusBadRequest {
					t.Errorf("ParseMonthParams() error = %v, want bad request", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMonthParams() error = %v", err)
			}
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("ParseMonthParams() = %+v, want %d-%d", got, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string    `json:"name"`
		Date core.Date `json:"date"`
	}
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"name":"x","date":"2024-07-01"}`, 0},
		{"empty body", "  ", http.StatusBadRequest},
		{"malformed", `{"name":`, http.StatusBadRequest},
		{"wrong type", `{"name":5}`, http.StatusBadRequest},
		{"bad date", `{"name":"x","date":"2024-13-01"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantStatus == 0 {
				if err != nil {
					t.Fatalf("decodeJSON() error = %v", err)
				}
				if p.Name != "x" || p.Date.String() != "2024-07-01" {
					t.Errorf("decoded %+v", p)
				}
				return
			}
			if got := StatusFor(err); got != tt.wantStatus {
				t.Errorf("decodeJSON() error = %v (status %d), want status %d", err, got, tt.wantStatus)
			}
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dst map[string]string
	err := decodeJSON(httptest.NewRecorder(), req, &dst)
	var bad badRequestError
	if !errors.As(err, &bad) || !strings.Contains(err.Error(), "larger than") {
		t.Errorf("decodeJSON() error = %v", err)
	}
}

func TestDecodeOneOrMany(t *testing.T) {
	type item struct {
		ProductID string `json:"productId"`
	}
	decode := func(body string) ([]item, bool, error) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		return decodeOneOrMany[item](httptest.NewRecorder(), req)
	}

	items, batch, err := decode(`{"productId":"p1"}`)
	if err != nil || batch || len(items) != 1 || items[0].ProductID != "p1" {
		t.Errorf("single = %+v, %v, %v", items, batch, err)
	}

	items, batch, err = decode(` [{"productId":"p1"},{"productId":"p2"}]`)
	if err != nil || !batch || len(items) != 2 {
		t.Errorf("batch = %+v, %v, %v", items, batch, err)
	}

	if _, _, err := decode(`[]`); StatusFor(err) != http.StatusBadRequest {
		t.Errorf("empty array error = %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := map[string]string{
		"  Feira  ":          "Feira",
		"a\x00b\x07c":        "abc",
		"linha 1\nlinha 2\t": "linha 1\nlinha 2",
	}
	for in, want := range tests {
		if got := sanitizeInput(in); got != want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", in, got, want)
		}
	}
}
