package hrsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"paycore.org/internal/obs"
)

// Employee is an HR-side employee record.
type Employee struct {
	ID         string `json:"employee_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Department string `json:"department,omitempty"`
	Status     string `json:"status"`
}

// AttendanceRecord is one day's attendance for an employee.
type AttendanceRecord struct {
	EmployeeID string  `json:"employee_id"`
	Date       string  `json:"date"`
	Hours      float64 `json:"hours"`
	Status     string  `json:"status"`
}

// SalaryRecord is an HR-side salary component snapshot.
type SalaryRecord struct {
	EmployeeID string `json:"employee_id"`
	Basic      int64  `json:"basic"`
	Allowances int64  `json:"allowances"`
	Effective  string `json:"effective_date"`
}

// Client calls the external HR API. A client-side limiter spaces
// outbound calls at least one interval apart, and an authentication
// failure is retried exactly once after a token refresh.
type Client struct {
	base    string
	tokens  *TokenSource
	http    *http.Client
	limiter *rate.Limiter
}

// ClientOption configures Client behavior.
type ClientOption func(*Client)

// WithHTTPClient overrides the transport (useful for tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCallInterval overrides the minimum spacing between outbound calls.
func WithCallInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// NewClient builds an HR API client with one-call-per-second spacing.
func NewClient(baseURL string, tokens *TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Employees fetches the employee directory.
func (c *Client) Employees(ctx context.Context) ([]Employee, error) {
	var out []Employee
	if err := c.get(ctx, "/people/api/forms/employee/records", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Attendance fetches attendance rows for a date range (YYYY-MM-DD).
func (c *Client) Attendance(ctx context.Context, from, to string) ([]AttendanceRecord, error) {
	q := url.Values{"from": {from}, "to": {to}}
	var out []AttendanceRecord
	if err := c.get(ctx, "/people/api/attendance/records", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Salaries fetches current salary component snapshots.
func (c *Client) Salaries(ctx context.Context) ([]SalaryRecord, error) {
	var out []SalaryRecord
	if err := c.get(ctx, "/people/api/forms/salary/records", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dst any) error {
	retried := false
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			obs.CountHRSyncCall(path, "token_error")
			return err
		}

		u := c.base + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Zoho-oauthtoken "+token)

		resp, err := c.http.Do(req)
		if err != nil {
			obs.CountHRSyncCall(path, "transport_error")
			return fmt.Errorf("hrsync: %s: %w", path, err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			obs.CountHRSyncCall(path, "unauthorized")
			if retried {
				return ErrAuthFailed
			}
			// One retry after forcing a token refresh.
			c.tokens.Invalidate()
			retried = true
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			obs.CountHRSyncCall(path, "error")
			return fmt.Errorf("hrsync: %s: unexpected status %d", path, resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(dst)
		resp.Body.Close()
		if err != nil {
			obs.CountHRSyncCall(path, "decode_error")
			return fmt.Errorf("hrsync: %s: decode: %w", path, err)
		}
		obs.CountHRSyncCall(path, "ok")
		return nil
	}
}
