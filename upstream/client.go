// Package upstream provides read-only HTTP clients for the sibling
// microservices that own match, team, competition and player master data.
// Every fetch is GET-by-id with a JSON body; callers decide how to handle
// errors (the aggregator treats them as degraded, never fatal).
package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"match-detail-service/models"
)

// DefaultTimeout is the default HTTP client timeout for upstream fetches
const DefaultTimeout = 3 * time.Second

// Config holds the configuration for an upstream client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a thin JSON-over-HTTP client for one upstream service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL. A nil client is
// returned when the base URL is empty, meaning the service is not wired;
// all fetch methods on a nil client report an error.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		return nil
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// get performs a GET request and decodes the JSON response into out
func (c *Client) get(path string, out interface{}) error {
	if c == nil {
		return fmt.Errorf("upstream service not configured")
	}

	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// FetchMatch fetches authoritative match metadata from the matches service
func (c *Client) FetchMatch(id string) (models.MatchMeta, error) {
	var meta models.MatchMeta
	if err := c.get("/api/v1/matches/"+id, &meta); err != nil {
		return models.MatchMeta{}, err
	}
	return meta, nil
}

// FetchTeam fetches team info from the teams service
func (c *Client) FetchTeam(id string) (*models.TeamInfo, error) {
	var team models.TeamInfo
	if err := c.get("/api/v1/teams/"+id, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// FetchCompetition fetches competition info from the competitions service.
// The competition document is owned by another service and passed through
// untyped.
func (c *Client) FetchCompetition(id string) (map[string]interface{}, error) {
	var competition map[string]interface{}
	if err := c.get("/api/v1/competitions/"+id, &competition); err != nil {
		return nil, err
	}
	return competition, nil
}

// PlayerInfo is the subset of the players service document used for
// lineup enrichment
type PlayerInfo struct {
	ID       string  `json:"id"`
	Name     *string `json:"name,omitempty"`
	Position *string `json:"position,omitempty"`
}

// FetchPlayer fetches player info from the players service
func (c *Client) FetchPlayer(id string) (*PlayerInfo, error) {
	var player PlayerInfo
	if err := c.get("/api/v1/players/"+id, &player); err != nil {
		return nil, err
	}
	return &player, nil
}
