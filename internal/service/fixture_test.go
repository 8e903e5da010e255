package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xuanlam2007/scholium/internal/access"
	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/notifier"
	"github.com/xuanlam2007/scholium/internal/repository/memory"
	"github.com/xuanlam2007/scholium/internal/service"
)

// recorder запоминает публикации синхронно
type recorder struct {
	mu     sync.Mutex
	events []model.ChangeEvent
}

func (r *recorder) Publish(_ context.Context, scholiumID int64, kind model.ChangeKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, model.ChangeEvent{ScholiumID: scholiumID, Kind: kind})
}

func (r *recorder) Subscribe(int64, notifier.Handler) func() { return func() {} }

func (r *recorder) kinds() []model.ChangeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ChangeKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	store     *memory.Store
	events    *recorder
	scholiums *service.ScholiumService
	members   *service.MemberService
	slots     *service.TimeSlotService
	homework  *service.HomeworkService
	subjects  *service.SubjectService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	events := &recorder{}
	logger := zap.NewNop()
	resolver := access.NewResolver(store.Members())

	cipher, err := service.NewAccessIDCipher("test-secret")
	require.NoError(t, err)

	return &fixture{
		store:     store,
		events:    events,
		scholiums: service.NewScholiumService(store.Scholiums(), store.Members(), resolver, cipher, events, logger),
		members:   service.NewMemberService(store.Members(), resolver, events, logger),
		slots:     service.NewTimeSlotService(store.Scholiums(), resolver, events, logger),
		homework:  service.NewHomeworkService(store.Homework(), store.Subjects(), resolver, events, logger),
		subjects:  service.NewSubjectService(store.Subjects(), resolver, events, logger),
	}
}

// group создаёт группу с хостом и одним обычным участником
func (f *fixture) group(t *testing.T) (scholium *model.ScholiumDetails, host, member uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	host, member = uuid.New(), uuid.New()

	scholium, err := f.scholiums.Create(ctx, host, "Math Club")
	require.NoError(t, err)
	_, err = f.scholiums.Join(ctx, member, scholium.AccessID)
	require.NoError(t, err)

	f.events.reset()
	return scholium, host, member
}

func (f *fixture) memberID(t *testing.T, scholiumID int64, user uuid.UUID) int64 {
	t.Helper()
	m, err := f.store.Members().Get(context.Background(), scholiumID, user)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m.ID
}
