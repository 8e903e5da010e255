package controller_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/controller"
	"github.com/xuanlam2007/scholium/internal/controller/handlers"
	"github.com/xuanlam2007/scholium/internal/controller/middleware"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/notifier"
	"github.com/xuanlam2007/scholium/internal/repository/memory"
	"github.com/xuanlam2007/scholium/internal/service"
)

var jwtSecret = []byte("router-test-secret")

type testAPI struct {
	engine   http.Handler
	bus      *notifier.Bus
	services *service.Services
}

func newTestAPI(t *testing.T, opts ...handlers.Option) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	bus := notifier.NewBus(logger)

	cipher, err := service.NewAccessIDCipher("router-test-key")
	require.NoError(t, err)

	services := service.NewServices(service.Repositories{
		Scholiums: store.Scholiums(),
		Members:   store.Members(),
		Homework:  store.Homework(),
		Subjects:  store.Subjects(),
	}, cipher, bus, logger)

	h := handlers.NewHandlers(services, bus, nil, 50*time.Millisecond, logger, opts...)
	return &testAPI{
		engine:   controller.NewRouter(h, jwtSecret, logger),
		bus:      bus,
		services: services,
	}
}

func token(t *testing.T, user uuid.UUID) string {
	t.Helper()
	tok, err := middleware.IssueToken(jwtSecret, user, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, user uuid.UUID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Fields []struct {
		Field string `json:"field"`
		Error string `json:"error"`
	} `json:"fields"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// mathClub создаёт группу с хостом и участником через API
func (a *testAPI) mathClub(t *testing.T) (id int64, host, member uuid.UUID) {
	t.Helper()
	host, member = uuid.New(), uuid.New()

	w := a.do(t, host, http.MethodPost, "/api/scholiums", map[string]string{"name": "Math Club"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	details := decode[model.ScholiumDetails](t, w)
	assert.Len(t, details.AccessID, 8)
	assert.Len(t, details.Slots, 6)

	w = a.do(t, member, http.MethodPost, "/api/scholiums/join", map[string]string{"access_id": details.AccessID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return details.ID, host, member
}

func path(id int64, suffix string) string {
	return "/api/scholiums/" + strconv.FormatInt(id, 10) + suffix
}

func TestHealthz(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, uuid.Nil, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequiresAuth(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, uuid.Nil, http.MethodGet, "/api/scholiums", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMembershipAndMembers(t *testing.T) {
	a := newTestAPI(t)
	id, host, member := a.mathClub(t)

	w := a.do(t, member, http.MethodGet, path(id, "/membership"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[map[string]bool](t, w)["member"])

	w = a.do(t, uuid.New(), http.MethodGet, path(id, "/membership"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[map[string]bool](t, w)["member"])

	w = a.do(t, host, http.MethodGet, path(id, "/members"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	members := decode[struct {
		Members []model.Member `json:"members"`
	}](t, w).Members
	assert.Len(t, members, 2)

	w = a.do(t, uuid.New(), http.MethodGet, path(id, "/members"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, service.CodeNotMember, decode[errorBody](t, w).Code)

	w = a.do(t, host, http.MethodDelete, path(id, "/members/me"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, service.CodeHostCannotQuit, decode[errorBody](t, w).Code)
}

func TestTimeSlotErrors(t *testing.T) {
	a := newTestAPI(t)
	id, host, member := a.mathClub(t)

	w := a.do(t, member, http.MethodPost, path(id, "/timeslots"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, service.CodePermissionDenied, decode[errorBody](t, w).Code)

	w = a.do(t, host, http.MethodPatch, path(id, "/timeslots/1"), map[string]string{"field": "start", "value": "08:00"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, service.CodeInvalidOrdering, decode[errorBody](t, w).Code)

	w = a.do(t, host, http.MethodPatch, path(id, "/timeslots/1"), map[string]string{"field": "middle", "value": "08:00"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[errorBody](t, w)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "field", body.Fields[0].Field)

	w = a.do(t, host, http.MethodPut, path(id, "/timeslots"), map[string]any{
		"slots": []model.TimeSlot{{Start: "07:00", End: "08:00"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, service.CodeInvalidSlotCount, decode[errorBody](t, w).Code)

	w = a.do(t, host, http.MethodDelete, path(id, "/timeslots/99"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, host, http.MethodPost, path(id, "/timeslots"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	slots := decode[struct {
		Slots []model.TimeSlot `json:"slots"`
	}](t, w).Slots
	require.Len(t, slots, 7)
	assert.Equal(t, model.TimeSlot{Start: "18:15", End: "19:00"}, slots[6])
}

func TestHomeworkValidation(t *testing.T) {
	a := newTestAPI(t)
	id, host, _ := a.mathClub(t)

	w := a.do(t, host, http.MethodPost, path(id, "/homework"), map[string]any{
		"title":      "Essay",
		"due_date":   time.Now().Add(24 * time.Hour),
		"start_time": "25:00",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[errorBody](t, w)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "start_time", body.Fields[0].Field)

	w = a.do(t, host, http.MethodPost, path(id, "/homework"), map[string]any{
		"title":    "Essay",
		"due_date": time.Now().Add(24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, host, http.MethodGet, path(id, "/homework/upcoming"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	upcoming := decode[struct {
		Homework []model.Homework `json:"homework"`
	}](t, w).Homework
	assert.Len(t, upcoming, 1)
}

func TestTimetableImage(t *testing.T) {
	a := newTestAPI(t)
	id, _, member := a.mathClub(t)

	w := a.do(t, member, http.MethodGet, path(id, "/timetable.png"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestBroadcastValidation(t *testing.T) {
	a := newTestAPI(t)
	id, _, member := a.mathClub(t)

	w := a.do(t, member, http.MethodPost, "/api/realtime/broadcast", map[string]any{"scholiumId": id, "eventType": "refresh"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, uuid.New(), http.MethodPost, "/api/realtime/broadcast", map[string]any{"scholiumId": id, "eventType": "homework"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	got := make(chan model.ChangeEvent, 1)
	unsubscribe := a.bus.Subscribe(id, func(ev model.ChangeEvent) { got <- ev })
	defer unsubscribe()

	w = a.do(t, member, http.MethodPost, "/api/realtime/broadcast", map[string]any{"scholiumId": id, "eventType": "homework"})
	require.Equal(t, http.StatusOK, w.Code)
	select {
	case ev := <-got:
		assert.Equal(t, model.ChangeHomework, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast not delivered")
	}
}

// ============ SSE ============

type sseReader struct {
	t       *testing.T
	scanner *bufio.Scanner
	lines   chan string
}

// server закрывается последним: очистки потоков регистрируются позже
// и выполняются раньше, иначе Close ждёт открытые потоки
func (a *testAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(a.engine)
	t.Cleanup(srv.Close)
	return srv
}

func openStream(t *testing.T, srv *httptest.Server, user uuid.UUID, scholiumID int64) (*http.Response, *sseReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	url := srv.URL + "/api/realtime/events?scholiumId=" + strconv.FormatInt(scholiumID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, user))

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}

	done := make(chan struct{})
	r := &sseReader{t: t, scanner: bufio.NewScanner(resp.Body), lines: make(chan string, 64)}
	go func() {
		defer close(r.lines)
		for r.scanner.Scan() {
			select {
			case r.lines <- r.scanner.Text():
			case <-done:
				return
			}
		}
	}()
	t.Cleanup(func() { close(done) })
	return resp, r
}

// next следующая непустая строка
func (r *sseReader) next() string {
	r.t.Helper()
	for {
		select {
		case line, ok := <-r.lines:
			if !ok {
				r.t.Fatal("stream closed")
			}
			if line != "" {
				return line
			}
		case <-time.After(2 * time.Second):
			r.t.Fatal("no line from stream")
		}
	}
}

// nextFrame следующий data-кадр, комментарии пропускаются
func (r *sseReader) nextFrame() notifier.Frame {
	r.t.Helper()
	for {
		line := r.next()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		var f notifier.Frame
		require.NoError(r.t, json.Unmarshal([]byte(strings.TrimSpace(data)), &f))
		return f
	}
}

func TestEventStream(t *testing.T) {
	a := newTestAPI(t)
	id, host, member := a.mathClub(t)
	srv := a.server(t)

	resp, stream := openStream(t, srv, member, id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	connected := stream.nextFrame()
	assert.Equal(t, notifier.FrameConnected, connected.Type)
	assert.Equal(t, id, connected.ScholiumID)

	w := a.do(t, host, http.MethodPost, path(id, "/timeslots"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	frame := stream.nextFrame()
	assert.Equal(t, string(model.ChangeTimeSlots), frame.Type)
	assert.Equal(t, id, frame.ScholiumID)
	assert.NotZero(t, frame.Timestamp)
}

func TestEventStreamKeepalive(t *testing.T) {
	a := newTestAPI(t)
	id, _, member := a.mathClub(t)
	srv := a.server(t)

	_, stream := openStream(t, srv, member, id)
	stream.nextFrame()
	assert.Equal(t, ": ping", stream.next())
}

func TestEventStreamRequiresMembership(t *testing.T) {
	a := newTestAPI(t)
	id, _, _ := a.mathClub(t)
	srv := a.server(t)

	resp, _ := openStream(t, srv, uuid.New(), id)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestEventStreamDeregistersOnDisconnect(t *testing.T) {
	a := newTestAPI(t)
	id, _, member := a.mathClub(t)
	srv := a.server(t)

	ctx, cancel := context.WithCancel(context.Background())
	url := srv.URL + "/api/realtime/events?scholiumId=" + strconv.FormatInt(id, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, member))
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return a.bus.SubscriberCount(id) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.Eventually(t, func() bool { return a.bus.SubscriberCount(id) == 0 }, 2*time.Second, 5*time.Millisecond)
}

// ============ WebSocket ============

func dialSocket(t *testing.T, srv *httptest.Server, user uuid.UUID, scholiumID int64, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/realtime/ws?scholiumId=" + strconv.FormatInt(scholiumID, 10)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token(t, user))
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func readFrame(t *testing.T, conn *websocket.Conn) notifier.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f notifier.Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestSocketStream(t *testing.T) {
	a := newTestAPI(t)
	id, host, member := a.mathClub(t)
	srv := a.server(t)

	conn, _, err := dialSocket(t, srv, member, id, "")
	require.NoError(t, err)

	connected := readFrame(t, conn)
	assert.Equal(t, notifier.FrameConnected, connected.Type)
	assert.Equal(t, id, connected.ScholiumID)

	w := a.do(t, host, http.MethodPost, path(id, "/timeslots"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	frame := readFrame(t, conn)
	assert.Equal(t, string(model.ChangeTimeSlots), frame.Type)
	assert.Equal(t, id, frame.ScholiumID)

	require.Equal(t, 1, a.bus.SubscriberCount(id))
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return a.bus.SubscriberCount(id) == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestSocketRequiresMembership(t *testing.T) {
	a := newTestAPI(t)
	id, _, _ := a.mathClub(t)
	srv := a.server(t)

	_, resp, err := dialSocket(t, srv, uuid.New(), id, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSocketOrigin(t *testing.T) {
	a := newTestAPI(t, handlers.WithAllowedOrigins("https://app.example.com/"))
	id, _, member := a.mathClub(t)
	srv := a.server(t)

	_, resp, err := dialSocket(t, srv, member, id, "https://evil.example.com")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, a.bus.SubscriberCount(id))

	for _, origin := range []string{"https://app.example.com", srv.URL} {
		conn, _, err := dialSocket(t, srv, member, id, origin)
		require.NoError(t, err, origin)
		assert.Equal(t, notifier.FrameConnected, readFrame(t, conn).Type)
	}
}
