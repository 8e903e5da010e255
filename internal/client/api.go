// Package client HTTP-клиент API групп, чтение потока событий и
// оптимистичные правки для удалённого клиента.
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

	"github.com/google/uuid"

	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/service"
	"github.com/xuanlam2007/scholium/internal/timeslot"
)

const defaultTimeout = 15 * time.Second

// APIError ответ сервера с ошибкой. Unwrap отдаёт доменную ошибку по коду.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return service.ErrorFromCode(e.Code)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// APIClient обращается к HTTP API от имени одного пользователя
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewAPIClient создаёт клиент. httpClient может быть nil.
func NewAPIClient(baseURL, token string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

func (c *APIClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do выполняет запрос и декодирует ответ в out (если не nil)
func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func scholiumPath(scholiumID int64, suffix string) string {
	return "/api/scholiums/" + strconv.FormatInt(scholiumID, 10) + suffix
}

// ============ Членство ============

// CheckMembership точечная проверка. Пользователь определяется токеном,
// userID нужен для совместимости с guard.Checker.
func (c *APIClient) CheckMembership(ctx context.Context, scholiumID int64, _ uuid.UUID) (bool, error) {
	var out struct {
		Member bool `json:"member"`
	}
	if err := c.do(ctx, http.MethodGet, scholiumPath(scholiumID, "/membership"), nil, &out); err != nil {
		return false, err
	}
	return out.Member, nil
}

func (c *APIClient) Members(ctx context.Context, scholiumID int64) ([]*model.Member, error) {
	var out struct {
		Members []*model.Member `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, scholiumPath(scholiumID, "/members"), nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

func (c *APIClient) UpdatePermissions(ctx context.Context, memberID int64, perms model.Permissions) error {
	path := "/api/members/" + strconv.FormatInt(memberID, 10) + "/permissions"
	return c.do(ctx, http.MethodPut, path, perms, nil)
}

func (c *APIClient) SetCohost(ctx context.Context, memberID int64, isCohost bool) error {
	path := "/api/members/" + strconv.FormatInt(memberID, 10) + "/cohost"
	return c.do(ctx, http.MethodPut, path, map[string]bool{"is_cohost": isCohost}, nil)
}

// ============ Сетка слотов ============

type slotsResponse struct {
	Slots []model.TimeSlot `json:"slots"`
}

func (c *APIClient) slots(ctx context.Context, method, path string, body any) ([]model.TimeSlot, error) {
	var out slotsResponse
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return out.Slots, nil
}

func (c *APIClient) GetSlots(ctx context.Context, scholiumID int64) ([]model.TimeSlot, error) {
	return c.slots(ctx, http.MethodGet, scholiumPath(scholiumID, "/timeslots"), nil)
}

func (c *APIClient) ReplaceSlots(ctx context.Context, scholiumID int64, slots []model.TimeSlot) ([]model.TimeSlot, error) {
	return c.slots(ctx, http.MethodPut, scholiumPath(scholiumID, "/timeslots"), slotsResponse{Slots: slots})
}

func (c *APIClient) EditSlot(ctx context.Context, scholiumID int64, index int, field timeslot.Field, value string) ([]model.TimeSlot, error) {
	body := map[string]string{"field": string(field), "value": value}
	return c.slots(ctx, http.MethodPatch, scholiumPath(scholiumID, "/timeslots/"+strconv.Itoa(index)), body)
}

func (c *APIClient) AddSlot(ctx context.Context, scholiumID int64) ([]model.TimeSlot, error) {
	return c.slots(ctx, http.MethodPost, scholiumPath(scholiumID, "/timeslots"), nil)
}

func (c *APIClient) RemoveSlot(ctx context.Context, scholiumID int64, index int) ([]model.TimeSlot, error) {
	return c.slots(ctx, http.MethodDelete, scholiumPath(scholiumID, "/timeslots/"+strconv.Itoa(index)), nil)
}

// ============ Рассылка ============

// Broadcast явная публикация события от внешнего писателя
func (c *APIClient) Broadcast(ctx context.Context, scholiumID int64, kind model.ChangeKind) error {
	body := map[string]any{"scholiumId": scholiumID, "eventType": string(kind)}
	return c.do(ctx, http.MethodPost, "/api/realtime/broadcast", body, nil)
}

// eventsURL адрес SSE-потока группы
func (c *APIClient) eventsURL(scholiumID int64) string {
	q := url.Values{}
	q.Set("scholiumId", strconv.FormatInt(scholiumID, 10))
	return c.baseURL + "/api/realtime/events?" + q.Encode()
}

// IsNotMember true для ответов 403 not_member
func IsNotMember(err error) bool {
	return errors.Is(err, service.ErrNotMember)
}
