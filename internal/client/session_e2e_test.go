package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/client"
	"github.com/xuanlam2007/scholium/internal/controller"
	"github.com/xuanlam2007/scholium/internal/controller/handlers"
	"github.com/xuanlam2007/scholium/internal/controller/middleware"
	"github.com/xuanlam2007/scholium/internal/guard"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/notifier"
	"github.com/xuanlam2007/scholium/internal/repository/memory"
	"github.com/xuanlam2007/scholium/internal/service"
	"github.com/xuanlam2007/scholium/internal/session"
)

var secret = []byte("e2e-secret")

func TestRemovedMemberIsRedirected(t *testing.T) {
	logger := zap.NewNop()
	store := memory.NewStore()
	bus := notifier.NewBus(logger)
	cipher, err := service.NewAccessIDCipher("e2e-key")
	require.NoError(t, err)

	services := service.NewServices(service.Repositories{
		Scholiums: store.Scholiums(),
		Members:   store.Members(),
		Homework:  store.Homework(),
		Subjects:  store.Subjects(),
	}, cipher, bus, logger)

	h := handlers.NewHandlers(services, bus, nil, time.Second, logger)
	srv := httptest.NewServer(controller.NewRouter(h, secret, logger))
	defer srv.Close()

	ctx := context.Background()
	host, member := uuid.New(), uuid.New()
	scholium, err := services.Scholiums.Create(ctx, host, "Math Club")
	require.NoError(t, err)
	_, err = services.Scholiums.Join(ctx, member, scholium.AccessID)
	require.NoError(t, err)

	tok, err := middleware.IssueToken(secret, member, time.Hour)
	require.NoError(t, err)
	api := client.NewAPIClient(srv.URL, tok, srv.Client())

	refreshed := make(chan []model.ChangeKind, 8)
	evicted := make(chan guard.Reason, 2)
	s := session.New(session.Options{
		ScholiumID: scholium.ID,
		UserID:     member,
		Source:     client.NewStreamSource(api, logger),
		Checker:    api,
		OnRefresh:  func(_ context.Context, kinds []model.ChangeKind) { refreshed <- kinds },
		OnEvict:    func(r guard.Reason) { evicted <- r },
	})
	require.NoError(t, s.Mount(ctx))
	defer s.Unmount()

	require.Eventually(t, func() bool { return bus.SubscriberCount(scholium.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = services.TimeSlots.AddSlot(ctx, scholium.ID, host)
	require.NoError(t, err)
	select {
	case kinds := <-refreshed:
		assert.Contains(t, kinds, model.ChangeTimeSlots)
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after slot change")
	}

	members, err := services.Members.List(ctx, scholium.ID, host)
	require.NoError(t, err)
	var memberID int64
	for _, m := range members {
		if m.UserID == member {
			memberID = m.ID
		}
	}
	require.NotZero(t, memberID)
	require.NoError(t, services.Members.Remove(ctx, memberID, host))

	select {
	case reason := <-evicted:
		assert.Equal(t, guard.ReasonRemoved, reason)
	case <-time.After(2 * time.Second):
		t.Fatal("member not redirected")
	}

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
	assert.True(t, s.Evicted())
	require.Eventually(t, func() bool { return bus.SubscriberCount(scholium.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
}
