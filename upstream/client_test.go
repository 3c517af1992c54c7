package upstream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient_EmptyBaseURLDisabled(t *testing.T) {
	client := NewClient(Config{BaseURL: ""})

	if client != nil {
		t.Fatal("Expected nil client for empty base URL")
	}

	// fetches on a nil client must report an error, not panic
	if _, err := client.FetchTeam("T1"); err == nil {
		t.Error("Expected error from nil client")
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:9999"})

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Expected timeout to be %v, got %v", DefaultTimeout, client.httpClient.Timeout)
	}
}

func TestFetchTeam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/teams/T1" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "T1", "name": "Tigers"})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: 2 * time.Second})

	team, err := client.FetchTeam("T1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if team.ID != "T1" {
		t.Errorf("Expected team id 'T1', got '%s'", team.ID)
	}
	if team.Name == nil || *team.Name != "Tigers" {
		t.Errorf("Expected team name 'Tigers', got %v", team.Name)
	}
}

func TestFetch_NonOKStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Timeout: 2 * time.Second})

	if _, err := client.FetchMatch("M404"); err == nil {
		t.Error("Expected error for non-200 response")
	}
}
