package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"timecapsule/internal/client/models"
	"timecapsule/internal/common"
	"timecapsule/internal/logging"
)

// HTTPClient is the JSON-over-HTTP implementation of Client.
//
// Every request carries no-cache headers so history always reflects the
// latest server state, and the device id header when one applies.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

func NewHTTPClient(baseURL string, log logging.Logger) *HTTPClient {
	if log == nil {
		log = logging.Nop{}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		log:     log,
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// envelope is the common response wrapper used by the backend. Fields not
// present in a particular response simply stay zero.
type envelope struct {
	Status       string          `json:"status"`
	Message      string          `json:"message"`
	Error        string          `json:"error"`
	NewSessionId string          `json:"new_session_id"`
	RedirectURL  string          `json:"redirect_url"`
	Data         json.RawMessage `json:"data"`
}

type historyItem struct {
	Content   string `json:"content"`
	IsUser    bool   `json:"is_user"`
	CreatedAt string `json:"created_at"`
}

// aiResponse tolerates both field spellings the backend has shipped over
// time: content/message and timestamp/created_at.
type aiResponse struct {
	Content   string `json:"content"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	CreatedAt string `json:"created_at"`
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path, deviceId string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	if deviceId != "" {
		req.Header.Set(common.DeviceIdHeaderName, deviceId)
	}
	return req, nil
}

// do executes the request and reads the whole body. A transport-level failure
// maps to common.ErrUnavailable so callers can match it with errors.Is.
func (c *HTTPClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", common.ErrUnavailable, err)
	}
	return resp.StatusCode, data, nil
}

func (c *HTTPClient) RequestNewId(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/identity/new", "", nil)
	if err != nil {
		return "", err
	}

	status, body, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: identity provisioning returned %d", common.ErrUnavailable, status)
	}

	var out struct {
		Id string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Id == "" {
		return "", fmt.Errorf("%w: malformed identity response", common.ErrUnavailable)
	}
	return out.Id, nil
}

func (c *HTTPClient) LoadHistory(ctx context.Context, deviceId, sessionId string) ([]models.ChatMessage, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/chat/sessions/"+sessionId+"/messages", deviceId, nil)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		// fall through to decoding below
	case http.StatusNotFound:
		return nil, common.ErrNotFound
	case http.StatusForbidden:
		return nil, c.rejection(body)
	default:
		return nil, fmt.Errorf("%w: history load returned %d", common.ErrUnavailable, status)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed history response", common.ErrUnavailable)
	}

	var items []historyItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return nil, fmt.Errorf("%w: malformed history payload", common.ErrUnavailable)
	}

	messages := make([]models.ChatMessage, 0, len(items))
	for _, item := range items {
		messages = append(messages, models.ChatMessage{
			Content:   item.Content,
			IsUser:    item.IsUser,
			Timestamp: parseTimestamp(item.CreatedAt),
			SessionId: sessionId,
		})
	}
	return messages, nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, deviceId, sessionId, correlationId, content string) (*models.ChatMessage, error) {
	payload := map[string]string{"message": content}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat/sessions/"+sessionId+"/messages", deviceId, payload)
	if err != nil {
		return nil, err
	}
	if correlationId != "" {
		req.Header.Set(common.CorrelationIdHeaderName, correlationId)
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		// fall through
	case http.StatusForbidden:
		return nil, c.rejection(body)
	default:
		return nil, fmt.Errorf("%w: message send returned %d", common.ErrUnavailable, status)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed send response", common.ErrUnavailable)
	}

	if env.Status == "redirect" {
		c.log.Warn(ctx, "server requested profile setup", "correlation", correlationId)
		return nil, common.ErrProfileRequired
	}

	var data struct {
		AIResponse aiResponse `json:"ai_response"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed ai response", common.ErrUnavailable)
	}

	text := data.AIResponse.Content
	if text == "" {
		text = data.AIResponse.Message
	}
	ts := data.AIResponse.Timestamp
	if ts == "" {
		ts = data.AIResponse.CreatedAt
	}

	return &models.ChatMessage{
		Content:   text,
		IsUser:    false,
		Timestamp: parseTimestamp(ts),
		SessionId: sessionId,
	}, nil
}

func (c *HTTPClient) ClearSession(ctx context.Context, deviceId, sessionId string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/chat/sessions/"+sessionId, deviceId, nil)
	if err != nil {
		return err
	}

	status, body, err := c.do(req)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusForbidden:
		return c.rejection(body)
	default:
		return fmt.Errorf("%w: session clear returned %d", common.ErrUnavailable, status)
	}
}

func (c *HTTPClient) ListDiaryEntries(ctx context.Context, deviceId string) ([]models.DiaryEntry, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/diary/entries", deviceId, nil)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	env, err := c.diaryEnvelope(status, body)
	if err != nil {
		return nil, err
	}

	var entries []models.DiaryEntry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		return nil, fmt.Errorf("%w: malformed diary payload", common.ErrUnavailable)
	}
	return entries, nil
}

func (c *HTTPClient) CreateDiaryEntry(ctx context.Context, deviceId string, entry *models.DiaryEntry) (*models.DiaryEntry, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/diary/entries", deviceId, entry)
	if err != nil {
		return nil, err
	}
	return c.decodeDiaryEntry(req)
}

func (c *HTTPClient) UpdateDiaryEntry(ctx context.Context, deviceId string, entry *models.DiaryEntry) (*models.DiaryEntry, error) {
	req, err := c.newRequest(ctx, http.MethodPut, "/api/diary/entries/"+entry.Id, deviceId, entry)
	if err != nil {
		return nil, err
	}
	return c.decodeDiaryEntry(req)
}

func (c *HTTPClient) DeleteDiaryEntry(ctx context.Context, deviceId, entryId string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/diary/entries/"+entryId, deviceId, nil)
	if err != nil {
		return err
	}

	status, body, err := c.do(req)
	if err != nil {
		return err
	}
	_, err = c.diaryEnvelope(status, body)
	return err
}

func (c *HTTPClient) decodeDiaryEntry(req *http.Request) (*models.DiaryEntry, error) {
	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	env, err := c.diaryEnvelope(status, body)
	if err != nil {
		return nil, err
	}

	var entry models.DiaryEntry
	if err := json.Unmarshal(env.Data, &entry); err != nil || entry.Id == "" {
		return nil, fmt.Errorf("%w: malformed diary entry response", common.ErrUnavailable)
	}
	return &entry, nil
}

func (c *HTTPClient) diaryEnvelope(status int, body []byte) (*envelope, error) {
	if status == http.StatusNotFound {
		return nil, common.ErrNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: diary request returned %d", common.ErrUnavailable, status)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed diary response", common.ErrUnavailable)
	}
	if env.Status == "error" {
		return nil, fmt.Errorf("diary request rejected: %s", env.Message)
	}
	return &env, nil
}

// rejection decodes the 403 ownership-conflict payload. A 403 without a
// suggested replacement is a protocol violation and is treated as
// unavailability rather than re-homing to an empty id.
func (c *HTTPClient) rejection(body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.NewSessionId == "" {
		return fmt.Errorf("%w: rejected without replacement session", common.ErrUnavailable)
	}
	return &SessionRejectedError{NewSessionId: env.NewSessionId}
}

// timestampLayouts covers the formats the backend has emitted: RFC 3339 with
// and without nanoseconds, and Python isoformat without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	// unparseable server timestamps should not break rendering
	return time.Now().UTC()
}
