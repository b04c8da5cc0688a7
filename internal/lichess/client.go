package lichess

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vytor/openingtiers/internal/logger"
)

// DefaultBaseURL is the public opening explorer.
const DefaultBaseURL = "https://explorer.lichess.ovh"

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logger.Default().WithPrefix("lichess"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request selects a position and the games counted for it.
type Request struct {
	// Play is the line leading to the position, in UCI.
	Play    []string
	Ratings []int
	Speeds  []string
}

type Opening struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
}

// Move is one continuation from the queried position.
type Move struct {
	UCI           string `json:"uci"`
	SAN           string `json:"san"`
	White         int    `json:"white"`
	Draws         int    `json:"draws"`
	Black         int    `json:"black"`
	AverageRating int    `json:"averageRating"`
}

func (m Move) Total() int {
	return m.White + m.Draws + m.Black
}

// Explorer is the explorer's answer for one position.
type Explorer struct {
	White   int      `json:"white"`
	Draws   int      `json:"draws"`
	Black   int      `json:"black"`
	Moves   []Move   `json:"moves"`
	Opening *Opening `json:"opening"`
}

func (e Explorer) Total() int {
	return e.White + e.Draws + e.Black
}

// AverageRating is the game-weighted mean of the continuations' average
// ratings, or 0 when the explorer did not report any.
func (e Explorer) AverageRating() int {
	var sum, games int64
	for _, m := range e.Moves {
		if m.AverageRating <= 0 {
			continue
		}
		n := int64(m.Total())
		sum += int64(m.AverageRating) * n
		games += n
	}
	if games == 0 {
		return 0
	}
	return int(sum / games)
}

func (c *Client) Explore(ctx context.Context, req Request) (*Explorer, error) {
	log := logger.FromContext(ctx).WithPrefix("lichess").WithField("play", strings.Join(req.Play, ","))

	endpoint := c.baseURL + "/lichess?" + query(req).Encode()
	log.Debug("fetching explorer: %s", endpoint)
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Error("failed to create request: %v", err)
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("explorer request failed: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	log.Debug("explorer response received in %v, status=%d", time.Since(start), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		serr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				serr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		log.Warn("explorer request failed: status=%d, body=%s", resp.StatusCode, serr.Body)
		return nil, serr
	}

	var out Explorer
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Error("failed to decode explorer response: %v", err)
		return nil, fmt.Errorf("decode explorer response: %w", err)
	}

	log.Debug("explorer returned %d games", out.Total())
	return &out, nil
}

func query(req Request) url.Values {
	q := url.Values{}
	q.Set("variant", "standard")
	if len(req.Play) > 0 {
		q.Set("play", strings.Join(req.Play, ","))
	}
	if len(req.Speeds) > 0 {
		q.Set("speeds", strings.Join(req.Speeds, ","))
	}
	if len(req.Ratings) > 0 {
		rs := make([]string, len(req.Ratings))
		for i, r := range req.Ratings {
			rs[i] = strconv.Itoa(r)
		}
		q.Set("ratings", strings.Join(rs, ","))
	}
	q.Set("moves", "12")
	q.Set("topGames", "0")
	q.Set("recentGames", "0")
	return q
}
