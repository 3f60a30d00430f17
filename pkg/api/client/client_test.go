package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientSendsTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dids" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            1,
			"did":           body["did"],
			"walletAddress": body["walletAddress"],
			"status":        "active",
			"blockchain":    map[string]any{"registered": true, "bound": true, "registrationTx": "deadbeef"},
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithToken(" tok "))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	reg, err := c.RegisterDID(context.Background(), "did:cyber:alice", "0xabc", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.DID.DID != "did:cyber:alice" || reg.Blockchain.RegistrationTx != "deadbeef" || !reg.Blockchain.Bound {
		t.Fatalf("unexpected response %+v", reg)
	}
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Failed to notarize document on blockchain", "error": "chain offline"})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.NotarizeDocument(context.Background(), "ab", "f.txt", "Other", 1)
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Detail != "chain offline" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestNewNormalisesBaseURL(t *testing.T) {
	c, err := New("localhost:5000/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.baseURL != "http://localhost:5000" {
		t.Fatalf("unexpected base %q", c.baseURL)
	}
	c, err = New("")
	if err != nil || c.baseURL != "http://localhost:5000" {
		t.Fatalf("unexpected default %q, %v", c.baseURL, err)
	}
}
