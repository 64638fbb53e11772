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
	"strings"
	"time"

	"github.com/klokku/weekgrid/internal/rest"
	"github.com/klokku/weekgrid/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

// ErrTransport covers network failures, unexpected statuses and malformed responses.
var ErrTransport = errors.New("transport error")

const DefaultTimeout = 10 * time.Second

// Client talks to the persistence API. It implements store.Persistence.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL, e.g. "http://localhost:8181/api".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// ListEvents fetches the whole collection, newest first.
func (c *Client) ListEvents(ctx context.Context) ([]calendar.Event, error) {
	var dtos []calendar.EventDTO
	if err := c.do(ctx, http.MethodGet, "/events", nil, &dtos); err != nil {
		return nil, err
	}
	events := make([]calendar.Event, 0, len(dtos))
	for _, dto := range dtos {
		e, err := calendar.DTOToEvent(dto)
		if err != nil {
			return nil, fmt.Errorf("%w: event %s: %v", ErrTransport, dto.ID, err)
		}
		events = append(events, e)
	}
	return events, nil
}

func (c *Client) CreateEvent(ctx context.Context, event calendar.Event) (calendar.Event, error) {
	return c.send(ctx, http.MethodPost, "/events", event)
}

// UpdateEvent replaces every field of the stored event. Scheduling fields of an
// unscheduled event are sent as null so the server clears them.
func (c *Client) UpdateEvent(ctx context.Context, event calendar.Event) (calendar.Event, error) {
	return c.send(ctx, http.MethodPut, "/events/"+url.PathEscape(event.ID), event)
}

func (c *Client) DeleteEvent(ctx context.Context, id string) (calendar.Event, error) {
	var dto calendar.EventDTO
	if err := c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, &dto); err != nil {
		return calendar.Event{}, err
	}
	return eventFrom(dto)
}

// Migrate bulk imports events. Ids that already exist are skipped by the server. A partial
// import (207) is not an error; the counters tell what happened.
func (c *Client) Migrate(ctx context.Context, events []calendar.Event) (calendar.MigrateResult, error) {
	dtos := make([]calendar.EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, calendar.EventToDTO(e))
	}
	body, err := json.Marshal(calendar.MigrateRequest{Events: dtos})
	if err != nil {
		return calendar.MigrateResult{}, fmt.Errorf("could not encode events: %w", err)
	}

	resp, raw, err := c.roundTrip(ctx, http.MethodPost, "/migrate", body)
	if err != nil {
		return calendar.MigrateResult{}, err
	}
	var mr rest.MigrateResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		return calendar.MigrateResult{}, fmt.Errorf("%w: malformed migrate response: %v", ErrTransport, err)
	}
	result := calendar.MigrateResult{Migrated: mr.Migrated, Skipped: mr.Skipped, Failed: mr.Failed}
	if resp.StatusCode >= 300 || !mr.Success {
		return result, statusError(resp.StatusCode, mr.Error)
	}
	return result, nil
}

func (c *Client) send(ctx context.Context, method, path string, event calendar.Event) (calendar.Event, error) {
	body, err := json.Marshal(calendar.EventToDTO(event))
	if err != nil {
		return calendar.Event{}, fmt.Errorf("could not encode event %s: %w", event.ID, err)
	}
	var dto calendar.EventDTO
	if err := c.do(ctx, method, path, body, &dto); err != nil {
		return calendar.Event{}, err
	}
	return eventFrom(dto)
}

// do performs the request and decodes the data of a successful envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	resp, raw, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return statusError(resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return fmt.Errorf("%w: malformed response from %s %s: %v", ErrTransport, method, path, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return statusError(resp.StatusCode, env.Error)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: malformed data from %s %s: %v", ErrTransport, method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debugf("%s %s failed: %v", method, path, err)
		return nil, nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: could not read response: %v", ErrTransport, err)
	}
	log.Debugf("%s %s -> %d", method, path, resp.StatusCode)
	return resp, raw, nil
}

// statusError maps an error status back onto the calendar error taxonomy.
func statusError(status int, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	switch status {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", calendar.ErrValidation, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", calendar.ErrEventNotFound, message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", calendar.ErrEventAlreadyExists, message)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrTransport, status, message)
	}
}

func eventFrom(dto calendar.EventDTO) (calendar.Event, error) {
	e, err := calendar.DTOToEvent(dto)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return e, nil
}
