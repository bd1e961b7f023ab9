package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"category": "Food", "amount": 42.5, "date": "2024-01-05", "flag": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if got := parser.Get("category"); got != "Food" {
		t.Errorf("Get('category') = %q, want 'Food'", got)
	}
	if got := parser.Get("amount"); got != "42.5" {
		t.Errorf("Get('amount') = %q, want '42.5'", got)
	}
	if got := parser.Get("flag"); got != "true" {
		t.Errorf("Get('flag') = %q, want 'true'", got)
	}
	if got := parser.Get("missing"); got != "" {
		t.Errorf("Get('missing') = %q, want empty", got)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "category=Food&amount=12.50&date=2024-01-05&note=two+words"
	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if got := parser.Get("amount"); got != "12.50" {
		t.Errorf("Get('amount') = %q, want '12.50'", got)
	}
	if got := parser.Get("note"); got != "two words" {
		t.Errorf("Get('note') = %q, want 'two words'", got)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(`{"amount":`))
		req.Header.Set("Content-Type", "application/json")
		if err := NewRequestBodyParser(req).Parse(); err == nil {
			t.Fatal("expected decode error")
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		body := "category=" + strings.Repeat("a", maxBodyBytes)
		req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(body))
		err := NewRequestBodyParser(req).Parse()
		if !errors.Is(err, ErrBodyTooLarge) {
			t.Fatalf("err = %v, want ErrBodyTooLarge", err)
		}
	})
}

func TestParseNewExpense(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantCat     string
		wantAmount  string
		wantDate    string
	}{
		{
			name:        "form",
			contentType: "application/x-www-form-urlencoded",
			body:        "category=+Food+&amount=12.50&date=2024-01-05",
			wantCat:     "Food",
			wantAmount:  "12.50",
			wantDate:    "2024-01-05",
		},
		{
			name:        "json with numeric amount",
			contentType: "application/json",
			body:        `{"category":"Transport","amount":7.25,"date":"2024-01-06"}`,
			wantCat:     "Transport",
			wantAmount:  "7.25",
			wantDate:    "2024-01-06",
		},
		{
			name:        "control characters stripped",
			contentType: "application/x-www-form-urlencoded",
			body:        "category=Fo%00od&amount=1&date=2024-01-05",
			wantCat:     "Food",
			wantAmount:  "1",
			wantDate:    "2024-01-05",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			in, err := ParseNewExpense(req)
			if err != nil {
				t.Fatalf("ParseNewExpense() error = %v", err)
			}
			if in.Category != tt.wantCat || in.Amount != tt.wantAmount || in.Date != tt.wantDate {
				t.Errorf("got %+v", in)
			}
		})
	}
}
