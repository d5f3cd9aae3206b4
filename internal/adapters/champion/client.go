// Package champion talks to the upstream matchup API and the static roster
// service.
package champion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/matchrisk/internal/domain/model"
	"github.com/okian/matchrisk/pkg/logger"
)

// Default client configuration constants.
const (
	DefaultBaseURL      = "http://api.champion.gg"
	DefaultDDragonURL   = "http://ddragon.leagueoflegends.com"
	DefaultMatchupLimit = 1000
	defaultTimeout      = 30 * time.Second
	maxErrorBody        = 512
)

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	ddragonURL string
	apiKey     string
	limit      int
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates a client with default endpoints.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		ddragonURL: DefaultDDragonURL,
		limit:      DefaultMatchupLimit,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("champion")
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	c.ddragonURL = strings.TrimRight(c.ddragonURL, "/")
	return c
}

// flexID accepts ids encoded as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type side struct {
	Wins int `json:"wins"`
}

type wireMatchup struct {
	ID struct {
		Role string `json:"role"`
	} `json:"_id"`
	Count    int    `json:"count"`
	Champ1ID flexID `json:"champ1_id"`
	Champ2ID flexID `json:"champ2_id"`
	Champ1   side   `json:"champ1"`
	Champ2   side   `json:"champ2"`
}

type wireChampion struct {
	Patch string `json:"patch"`
}

type wireRoster struct {
	Data map[string]struct {
		ID   string `json:"id"`
		Key  flexID `json:"key"`
		Name string `json:"name"`
	} `json:"data"`
}

// Patch returns the patch the matchup API currently serves.
func (c *Client) Patch(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("limit", "1")
	q.Set("api_key", c.apiKey)
	var out []wireChampion
	if err := c.getJSON(ctx, c.baseURL+"/v2/champions?"+q.Encode(), &out); err != nil {
		return "", err
	}
	if len(out) == 0 || out[0].Patch == "" {
		return "", fmt.Errorf("%w: no patch in champion listing", ErrUpstream)
	}
	return out[0].Patch, nil
}

// Roster returns entity id -> name for a patch.
func (c *Client) Roster(ctx context.Context, patch string) (map[string]string, error) {
	u := fmt.Sprintf("%s/cdn/%s.1/data/en_US/champion.json", c.ddragonURL, url.PathEscape(patch))
	var out wireRoster
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("%w: empty roster for patch %s", ErrUpstream, patch)
	}
	roster := make(map[string]string, len(out.Data))
	for _, e := range out.Data {
		roster[string(e.Key)] = e.ID
	}
	return roster, nil
}

// Fetch returns every matchup of key in tier, oriented so that key is the
// first side. Matchups that do not involve key are dropped.
func (c *Client) Fetch(ctx context.Context, tier, key string) ([]model.RawMatchup, error) {
	q := url.Values{}
	q.Set("elo", tier)
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("api_key", c.apiKey)
	u := fmt.Sprintf("%s/v2/champions/%s/matchups?%s", c.baseURL, url.PathEscape(key), q.Encode())

	var wire []wireMatchup
	if err := c.getJSON(ctx, u, &wire); err != nil {
		return nil, err
	}

	out := make([]model.RawMatchup, 0, len(wire))
	dropped := 0
	for _, w := range wire {
		m, ok := orient(key, w)
		if !ok {
			dropped++
			continue
		}
		out = append(out, m)
	}
	if dropped > 0 {
		c.logger.Warn(ctx, "dropped matchups not involving key",
			logger.String("key", key),
			logger.Int("dropped", dropped),
		)
	}
	return out, nil
}

// orient makes key the first side of the matchup.
func orient(key string, w wireMatchup) (model.RawMatchup, bool) {
	m := model.RawMatchup{
		GamesPlayed: w.Count,
		Role:        model.Role(w.ID.Role),
	}
	switch key {
	case string(w.Champ1ID):
		m.WinsForFirst = w.Champ1.Wins
		m.OpponentID = string(w.Champ2ID)
	case string(w.Champ2ID):
		m.WinsForFirst = w.Champ2.Wins
		m.OpponentID = string(w.Champ1ID)
	default:
		return model.RawMatchup{}, false
	}
	return m, true
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("request %s: %w", redact(req.URL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s: status %d: %s", ErrUpstream, redact(req.URL), resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUpstream, redact(req.URL), err)
	}
	return nil
}

// redact hides the API key in errors and logs.
func redact(u *url.URL) string {
	c := *u
	q := c.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		c.RawQuery = q.Encode()
	}
	return c.String()
}
