// Package laborlinesdk is a minimal Laborline HTTP API client.
package laborlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a Laborline API server.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Actor represents the API actor model (partial).
type Actor struct {
	ID        string   `json:"id"`
	Phone     string   `json:"phone"`
	Role      string   `json:"role"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Status    string   `json:"status"`
	Skills    []string `json:"skills"`
	Rating    *float64 `json:"rating,omitempty"`
}

// Project is a worksite.
type Project struct {
	ID           string `json:"id"`
	ContractorID string `json:"contractor_id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	Position     LatLon `json:"position"`
	CreatedAt    string `json:"created_at"`
}

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Assignment is a wage contract.
type Assignment struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	LaborerID string `json:"laborer_id"`
	WageRate  string `json:"wage_rate"`
	WageType  string `json:"wage_type"`
}

// WorkSession is one attendance interval.
type WorkSession struct {
	ID         string  `json:"id"`
	ProjectID  string  `json:"project_id"`
	LaborerID  string  `json:"laborer_id"`
	CheckInAt  string  `json:"check_in_at"`
	CheckOutAt *string `json:"check_out_at,omitempty"`
	WageEarned *string `json:"wage_earned,omitempty"`
	Status     string  `json:"status"`
}

// Gig is a single-visit service transaction.
type Gig struct {
	ID             string `json:"id"`
	ConsumerID     string `json:"consumer_id"`
	LaborerID      string `json:"laborer_id"`
	Status         string `json:"status"`
	Skill          string `json:"skill"`
	Address        string `json:"address"`
	VisitingCharge string `json:"visiting_charge"`
	TotalAmount    string `json:"total_amount"`
	PaymentMethod  string `json:"payment_method"`
	Rating         *int   `json:"rating,omitempty"`
}

// Event is a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// TokenResponse is the login payload.
type TokenResponse struct {
	Token string `json:"token"`
	Actor Actor  `json:"actor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Register creates an actor.
func (c *Client) Register(ctx context.Context, phone, password, role, firstName, lastName string) (Actor, error) {
	body := map[string]any{
		"phone":      phone,
		"password":   password,
		"role":       role,
		"first_name": firstName,
		"last_name":  lastName,
	}
	var resp Actor
	err := c.do(ctx, http.MethodPost, "v0/auth/register", body, &resp)
	return resp, err
}

// Login exchanges credentials for a token and stores it on the client.
func (c *Client) Login(ctx context.Context, phone, password string) (Actor, error) {
	body := map[string]any{"phone": phone, "password": password}
	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, "v0/auth/login", body, &resp); err != nil {
		return Actor{}, err
	}
	c.BearerToken = resp.Token
	return resp.Actor, nil
}

// Me returns the authenticated actor.
func (c *Client) Me(ctx context.Context) (Actor, error) {
	var resp Actor
	err := c.do(ctx, http.MethodGet, "v0/me", nil, &resp)
	return resp, err
}

// CreateProject registers a worksite.
func (c *Client) CreateProject(ctx context.Context, name, address string, lat, lon float64) (Project, error) {
	body := map[string]any{
		"name":     name,
		"address":  address,
		"position": LatLon{Lat: lat, Lon: lon},
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "v0/projects", body, &resp)
	return resp, err
}

// CreateAssignment binds a laborer to a project.
func (c *Client) CreateAssignment(ctx context.Context, projectID, laborerID, wageRate, wageType string) (Assignment, error) {
	body := map[string]any{
		"project_id": projectID,
		"laborer_id": laborerID,
		"wage_rate":  wageRate,
		"wage_type":  wageType,
	}
	var resp Assignment
	err := c.do(ctx, http.MethodPost, "v0/assignments", body, &resp)
	return resp, err
}

// CheckIn opens a work session.
func (c *Client) CheckIn(ctx context.Context, projectID string, lat, lon float64) (WorkSession, error) {
	body := map[string]any{
		"project_id": projectID,
		"position":   LatLon{Lat: lat, Lon: lon},
	}
	var resp WorkSession
	err := c.do(ctx, http.MethodPost, "v0/sessions/checkin", body, &resp)
	return resp, err
}

// CheckOut closes the open session.
func (c *Client) CheckOut(ctx context.Context) (WorkSession, error) {
	var resp WorkSession
	err := c.do(ctx, http.MethodPost, "v0/sessions/checkout", nil, &resp)
	return resp, err
}

// ApproveSession signs off a settled session.
func (c *Client) ApproveSession(ctx context.Context, sessionID string) (WorkSession, error) {
	var resp WorkSession
	endpoint := fmt.Sprintf("v0/sessions/%s/approve", url.PathEscape(sessionID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// RequestGig opens a gig against a laborer.
func (c *Client) RequestGig(ctx context.Context, laborerID, skill, address string, lat, lon float64) (Gig, error) {
	body := map[string]any{
		"laborer_id": laborerID,
		"skill":      skill,
		"address":    address,
		"position":   LatLon{Lat: lat, Lon: lon},
	}
	var resp Gig
	err := c.do(ctx, http.MethodPost, "v0/gigs", body, &resp)
	return resp, err
}

func (c *Client) gigAction(ctx context.Context, gigID, action string, body any) (Gig, error) {
	var resp Gig
	endpoint := fmt.Sprintf("v0/gigs/%s/%s", url.PathEscape(gigID), action)
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// AcceptGig accepts a requested gig.
func (c *Client) AcceptGig(ctx context.Context, gigID string) (Gig, error) {
	return c.gigAction(ctx, gigID, "accept", nil)
}

// StartGig starts work on an accepted gig.
func (c *Client) StartGig(ctx context.Context, gigID string) (Gig, error) {
	return c.gigAction(ctx, gigID, "start", nil)
}

// InvoiceGig completes work and fixes the bill.
func (c *Client) InvoiceGig(ctx context.Context, gigID, additionalAmount string) (Gig, error) {
	return c.gigAction(ctx, gigID, "invoice", map[string]any{"additional_amount": additionalAmount})
}

// PayGig records payment.
func (c *Client) PayGig(ctx context.Context, gigID, method string) (Gig, error) {
	return c.gigAction(ctx, gigID, "pay", map[string]any{"method": method})
}

// RateGig rates a completed gig.
func (c *Client) RateGig(ctx context.Context, gigID string, rating int) (Gig, error) {
	return c.gigAction(ctx, gigID, "rate", map[string]any{"rating": rating})
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
