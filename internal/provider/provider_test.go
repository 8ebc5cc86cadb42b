package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStaticLookup(t *testing.T) {
	p := NewStatic(map[string]Quote{
		"aapl": {Price: 100, DisplayName: "Apple Inc"},
	})

	quotes, err := p.Lookup(context.Background(), []string{"AAPL", "msft"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("quotes = %v", quotes)
	}
	if quotes["AAPL"].Price != 100 {
		t.Fatalf("AAPL = %+v", quotes["AAPL"])
	}

	p.SetPrice("AAPL", 110)
	quotes, _ = p.Lookup(context.Background(), []string{"aapl"})
	if q := quotes["AAPL"]; q.Price != 110 || q.DisplayName != "Apple Inc" {
		t.Fatalf("after SetPrice: %+v", q)
	}

	p.SetQuote("GHST", Quote{DisplayName: "Ghost Corp"})
	quotes, _ = p.Lookup(context.Background(), []string{"ghst"})
	if q := quotes["GHST"]; q.DisplayName != "Ghost Corp" || q.Price != 0 {
		t.Fatalf("after SetQuote: %+v", q)
	}
}

func TestStaticFail(t *testing.T) {
	p := NewStatic(nil)
	boom := errors.New("boom")
	p.Fail(boom)
	if _, err := p.Lookup(context.Background(), []string{"AAPL"}); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	p.Fail(nil)
	if _, err := p.Lookup(context.Background(), nil); err != nil {
		t.Fatalf("after recovery: %v", err)
	}
}

func TestHTTPLookup(t *testing.T) {
	var gotSymbols, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbols = r.URL.Query().Get("symbols")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quotes": [
			{"symbol": " aapl ", "price": 123.45, "name": " Apple Inc ", "exchange": "NASDAQ"},
			{"symbol": "BAD", "price": 0, "name": "Ignored"},
			{"symbol": "", "price": 5}
		]}`))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL, "secret")
	quotes, err := p.Lookup(context.Background(), []string{"AAPL", "BAD"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if gotSymbols != "AAPL,BAD" {
		t.Fatalf("symbols = %q", gotSymbols)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if len(quotes) != 1 {
		t.Fatalf("quotes = %v", quotes)
	}
	q := quotes["AAPL"]
	if q.Price != 123.45 || q.DisplayName != "Apple Inc" || q.Exchange != "nasdaq" {
		t.Fatalf("quote = %+v", q)
	}
}

func TestHTTPLookupStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL, "")
	if _, err := p.Lookup(context.Background(), []string{"AAPL"}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestHTTPLookupEmptyInput(t *testing.T) {
	p := NewHTTP("http://unreachable.invalid", "")
	quotes, err := p.Lookup(context.Background(), nil)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(quotes) != 0 {
		t.Fatalf("quotes = %v", quotes)
	}
}
