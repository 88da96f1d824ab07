package portalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"schoolportal/internal/attendance"
	"schoolportal/internal/event"
	"schoolportal/internal/school"
)

// StatusError is a non-2xx response from the portal.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("portal error %d: %s", e.Code, e.Message)
}

// Client calls the portal API on behalf of the check-in kiosk.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client with configurable timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Login exchanges credentials for a session token used on later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return err
	}
	if out.Token == "" {
		return errors.New("login response carried no token")
	}
	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return nil
}

// Event fetches one event.
func (c *Client) Event(ctx context.Context, id int64) (event.Event, error) {
	var out event.Event
	err := c.do(ctx, http.MethodGet, "/api/events/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

// Students lists active students with their face encodings. A non-zero
// courseID restricts the list to that course.
func (c *Client) Students(ctx context.Context, courseID int64) ([]school.Student, error) {
	q := url.Values{}
	q.Set("enrolled", "true")
	if courseID > 0 {
		q.Set("course_id", strconv.FormatInt(courseID, 10))
	}
	var out []school.Student
	err := c.do(ctx, http.MethodGet, "/api/students?"+q.Encode(), nil, &out)
	return out, err
}

// Attendance lists the rows already recorded for an event.
func (c *Client) Attendance(ctx context.Context, eventID int64) ([]attendance.Record, error) {
	var out []attendance.Record
	err := c.do(ctx, http.MethodGet, "/api/attendance?eventId="+strconv.FormatInt(eventID, 10), nil, &out)
	return out, err
}

// RecordAttendance submits one mark.
func (c *Client) RecordAttendance(ctx context.Context, mark attendance.Mark) error {
	return c.do(ctx, http.MethodPost, "/api/attendance", mark, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrap(err, "portal request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		msg := string(raw)
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
