package client

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

	"github.com/dmitrijs2005/matchdeck/internal/client/auth"
	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/common"
	"github.com/dmitrijs2005/matchdeck/internal/logging"
)

const (
	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

// HTTPClient talks to the REST endpoints of the backend.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	creds      auth.Credentials
	endpoints  Endpoints
	logger     logging.Logger
}

type Option func(*HTTPClient)

// WithEndpoints overrides REST paths; empty fields keep their defaults.
func WithEndpoints(e Endpoints) Option {
	return func(c *HTTPClient) {
		c.endpoints = e.merge(DefaultEndpoints())
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = l
	}
}

// WithTimeout bounds every request made by the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

func NewHTTPClient(baseURL string, creds auth.Credentials, opts ...Option) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: base url must not be empty")
	}
	if creds == nil {
		return nil, errors.New("client: credentials must not be nil")
	}
	c := &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		creds:      creds,
		endpoints:  DefaultEndpoints(),
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.endpoints.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

type userPayload struct {
	ID        flexID `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type photoPayload struct {
	Image string `json:"image"`
}

// cityPayload accepts a nested {"name": ...} object or a bare value.
type cityPayload struct {
	Name string
}

func (c *cityPayload) UnmarshalJSON(b []byte) error {
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		c.Name = obj.Name
		return nil
	}
	var id flexID
	if err := id.UnmarshalJSON(b); err != nil {
		return err
	}
	c.Name = string(id)
	return nil
}

type profilePayload struct {
	UserID   flexID         `json:"user_id"`
	User     *userPayload   `json:"user"`
	Age      int            `json:"age"`
	Photos   []photoPayload `json:"photos"`
	Distance *float64       `json:"distance"`
	City     *cityPayload   `json:"city"`
	Bio      string         `json:"bio"`
}

type swipeRequest struct {
	TargetUserID any    `json:"target_user_id"`
	Action       string `json:"action"`
}

type swipeResponse struct {
	Match               bool   `json:"match"`
	MatchedProfileName  string `json:"matched_profile_name"`
	MatchedUserName     string `json:"matched_user_name"`
	MatchedProfileImage string `json:"matched_profile_image"`
	ConversationID      flexID `json:"conversation_id"`
}

type errorPayload struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

func (c *HTTPClient) Discover(ctx context.Context, filter models.Filter) ([]models.Candidate, error) {
	token, err := c.creds.BearerToken()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("discover: %w: bearer token required", common.ErrUnauthorized)
	}

	q := url.Values{}
	if filter.RadiusKm > 0 {
		q.Set("radius_km", strconv.Itoa(filter.RadiusKm))
	}
	if filter.CityID != "" {
		q.Set("city", filter.CityID)
	}
	for _, id := range filter.InterestIDs {
		q.Add("interests", id)
	}
	u := c.baseURL + c.endpoints.Discover
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("discover: create request: %w", err)
	}
	c.setHeaders(req, token)

	raw, err := c.doJSONRequest(req, u)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	profiles, err := decodeList[profilePayload](raw)
	if err != nil {
		return nil, fmt.Errorf("discover: decode response: %w", err)
	}

	out := make([]models.Candidate, 0, len(profiles))
	for _, p := range profiles {
		cand, ok := c.toCandidate(p)
		if !ok {
			c.logger.Warn(ctx, "skipping profile without id")
			continue
		}
		out = append(out, cand)
	}
	c.logger.Debug(ctx, "discover completed", "count", len(out))
	return out, nil
}

func (c *HTTPClient) Swipe(ctx context.Context, candidateID string, verdict models.Verdict) (*models.MatchInfo, error) {
	if candidateID == "" {
		return nil, fmt.Errorf("swipe: %w: candidate id is empty", common.ErrValidation)
	}
	if _, err := models.ParseVerdict(string(verdict)); err != nil {
		return nil, fmt.Errorf("swipe: %w: %v", common.ErrValidation, err)
	}
	token, err := c.creds.BearerToken()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(swipeRequest{TargetUserID: wireID(candidateID), Action: string(verdict)})
	if err != nil {
		return nil, fmt.Errorf("swipe: marshal request: %w", err)
	}

	u := c.baseURL + c.endpoints.Swipe
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("swipe: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req, token)

	raw, err := c.doJSONRequest(req, u)
	if err != nil {
		return nil, fmt.Errorf("swipe: %w", err)
	}

	var resp swipeResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("swipe: decode response: %w", err)
		}
	}
	if !resp.Match {
		return nil, nil
	}

	name := resp.MatchedProfileName
	if name == "" {
		name = resp.MatchedUserName
	}
	photo := resp.MatchedProfileImage
	if photo == "" {
		photo = common.DefaultPhotoURL
	}
	return &models.MatchInfo{
		ConversationID:      string(resp.ConversationID),
		CounterpartName:     name,
		CounterpartPhotoURL: c.absolute(photo),
	}, nil
}

func (c *HTTPClient) Unmatch(ctx context.Context, targetID string) error {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return fmt.Errorf("unmatch: %w: target id is empty", common.ErrValidation)
	}
	token, err := c.creds.BearerToken()
	if err != nil {
		return err
	}

	u := c.baseURL + expand(c.endpoints.Unmatch, targetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("unmatch: create request: %w", err)
	}
	c.setHeaders(req, token)

	if _, err := c.doJSONRequest(req, u); err != nil {
		return fmt.Errorf("unmatch: %w", err)
	}
	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request, bearer string) {
	req.Header.Set("Accept", "application/json")
	if csrf := c.creds.CSRFToken(); csrf != "" {
		req.Header.Set(common.CSRFHeaderName, csrf)
	}
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+bearer)
	}
}

func (c *HTTPClient) doJSONRequest(req *http.Request, u string) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTransport, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, mapStatus(res.StatusCode, u, buf)
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", common.ErrTransport, err)
	}
	return buf, nil
}

func mapStatus(code int, u string, body []byte) error {
	switch code {
	case http.StatusUnauthorized:
		return common.ErrSessionExpired
	case http.StatusForbidden:
		return fmt.Errorf("%w: status %d", common.ErrUnauthorized, code)
	}
	var p errorPayload
	detail := ""
	if json.Unmarshal(body, &p) == nil {
		detail = p.Detail
		if detail == "" {
			detail = p.Error
		}
	}
	return &common.ServerError{StatusCode: code, URL: u, Detail: detail}
}

// decodeList accepts a bare JSON array or a paginated {"results": [...]} page.
func decodeList[T any](raw []byte) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *HTTPClient) toCandidate(p profilePayload) (models.Candidate, bool) {
	id := string(p.UserID)
	name := ""
	if p.User != nil {
		if id == "" {
			id = string(p.User.ID)
		}
		name = p.User.FirstName
		if name == "" {
			name = p.User.Username
		}
	}
	if id == "" {
		return models.Candidate{}, false
	}
	if name == "" {
		name = "User"
	}

	photo := common.DefaultPhotoURL
	if len(p.Photos) > 0 && p.Photos[0].Image != "" {
		photo = p.Photos[0].Image
	}

	cand := models.Candidate{
		ID:          id,
		DisplayName: name,
		Age:         p.Age,
		PhotoURL:    c.absolute(photo),
		DistanceKm:  p.Distance,
		Bio:         p.Bio,
	}
	if p.City != nil {
		cand.City = p.City.Name
	}
	return cand, true
}

// absolute resolves a site-relative media path against the base url.
func (c *HTTPClient) absolute(p string) string {
	if strings.HasPrefix(p, "/") {
		return c.baseURL + p
	}
	return p
}

// wireID sends numeric ids as JSON numbers, everything else as strings.
func wireID(id string) any {
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return json.Number(id)
	}
	return id
}
