package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
	backoff "gopkg.in/cenkalti/backoff.v1"

	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/notifier"
)

// DefaultMaxFailures подряд неудачных подключений до перехода на опрос
const DefaultMaxFailures = 5

var errStreamClosed = errors.New("event stream closed by server")

// StreamSource источник событий поверх SSE. После переподключения
// отдаёт синтетический refresh, после серии неудач переходит на Poller.
type StreamSource struct {
	api          *APIClient
	backoff      notifier.Backoff
	maxFailures  int
	pollInterval time.Duration
	logger       *zap.Logger
}

type StreamOption func(*StreamSource)

func WithBackoff(b notifier.Backoff) StreamOption {
	return func(s *StreamSource) { s.backoff = b }
}

func WithMaxFailures(n int) StreamOption {
	return func(s *StreamSource) { s.maxFailures = n }
}

func WithPollInterval(d time.Duration) StreamOption {
	return func(s *StreamSource) { s.pollInterval = d }
}

func NewStreamSource(api *APIClient, logger *zap.Logger, opts ...StreamOption) *StreamSource {
	s := &StreamSource{
		api:          api,
		backoff:      notifier.DefaultBackoff(),
		maxFailures:  DefaultMaxFailures,
		pollInterval: DefaultPollInterval,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe открывает поток для группы в отдельной горутине
func (s *StreamSource) Subscribe(scholiumID int64, handler notifier.Handler) func() {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.run(ctx, scholiumID, handler)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}

func (s *StreamSource) run(ctx context.Context, scholiumID int64, handler notifier.Handler) {
	logger := s.logger.With(zap.Int64("scholium_id", scholiumID))

	var (
		delay     time.Duration
		failures  int
		connected bool
	)
	for {
		err := s.readStream(ctx, scholiumID, func(ev model.ChangeEvent) {
			handler(ev)
		}, func() {
			if connected {
				// события за время разрыва потеряны
				handler(model.NewChangeEvent(scholiumID, model.ChangeRefresh))
			}
			connected = true
			failures = 0
			delay = 0
		})
		if ctx.Err() != nil {
			return
		}

		failures++
		if failures >= s.maxFailures {
			logger.Warn("Event stream unavailable, falling back to polling",
				zap.Int("failures", failures),
				zap.Error(err))
			s.poll(ctx, scholiumID, handler)
			return
		}

		delay = s.backoff.Next(delay)
		logger.Info("Event stream disconnected, reconnecting",
			zap.Duration("retry_in", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *StreamSource) poll(ctx context.Context, scholiumID int64, handler notifier.Handler) {
	poller := NewPoller(s.pollInterval)
	unsubscribe := poller.Subscribe(scholiumID, handler)
	defer unsubscribe()
	// сразу перечитать, поток мог пропустить изменения
	handler(model.NewChangeEvent(scholiumID, model.ChangeRefresh))
	<-ctx.Done()
}

// readStream читает один сеанс SSE до ошибки или отмены. Повторы делает run,
// поэтому у клиента sse стратегия без переподключений.
func (s *StreamSource) readStream(ctx context.Context, scholiumID int64, emit notifier.Handler, onConnected func()) error {
	// у потока нет общего таймаута, его держит только ctx
	httpClient := *s.api.http
	httpClient.Timeout = 0

	stream := sse.NewClient(s.api.eventsURL(scholiumID))
	stream.Connection = &httpClient
	stream.ReconnectStrategy = &backoff.StopBackOff{}
	stream.ResponseValidator = func(_ *sse.Client, resp *http.Response) error {
		if resp.StatusCode == http.StatusOK {
			return nil
		}
		defer resp.Body.Close()
		return decodeError(resp)
	}
	if s.api.token != "" {
		stream.Headers["Authorization"] = "Bearer " + s.api.token
	}

	err := stream.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
		// комментарии ": ping" приходят без данных
		if len(msg.Data) == 0 {
			return
		}
		ev, isEvent, err := notifier.DecodeFrame(msg.Data)
		if err != nil {
			s.logger.Debug("Skipping bad frame", zap.ByteString("data", msg.Data), zap.Error(err))
			return
		}
		if !isEvent {
			onConnected()
			return
		}
		emit(ev)
	})
	if err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return errStreamClosed
}
