package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/service"
	"github.com/xuanlam2007/scholium/internal/timeslot"
)

func TestCreateScholium(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	host := uuid.New()

	sc, err := f.scholiums.Create(ctx, host, "  Math Club ")
	require.NoError(t, err)
	assert.Equal(t, "Math Club", sc.Name)
	assert.True(t, service.ValidAccessID(sc.AccessID))
	assert.Equal(t, timeslot.Defaults(), sc.Slots)
	assert.Equal(t, model.MemberRole{IsHost: true, CanAddHomework: true, CanCreateSubject: true}, sc.Role)

	_, err = f.scholiums.Create(ctx, host, "   ")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, _, _ := f.group(t)
	user := uuid.New()

	_, err := f.scholiums.Join(ctx, user, "short")
	assert.ErrorIs(t, err, service.ErrInvalidAccessID)
	_, err = f.scholiums.Join(ctx, user, "ZZZZZZZZ")
	assert.ErrorIs(t, err, service.ErrInvalidAccessID)

	joined, err := f.scholiums.Join(ctx, user, sc.AccessID)
	require.NoError(t, err)
	assert.Equal(t, sc.ID, joined.ID)
	role, _ := f.members.Role(ctx, sc.ID, user)
	assert.True(t, role.IsMember)
	assert.False(t, role.CanAddHomework())

	f.events.reset()
	_, err = f.scholiums.Join(ctx, user, sc.AccessID)
	require.NoError(t, err)
	assert.Empty(t, f.events.kinds(), "joining twice changes nothing")
}

func TestDetailsAndRenew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, member := f.group(t)

	details, err := f.scholiums.Details(ctx, sc.ID, member)
	require.NoError(t, err)
	assert.Equal(t, sc.AccessID, details.AccessID)
	assert.False(t, details.Role.IsHost)

	_, err = f.scholiums.Details(ctx, sc.ID, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotMember)

	_, err = f.scholiums.RenewAccessID(ctx, sc.ID, member)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	renewed, err := f.scholiums.RenewAccessID(ctx, sc.ID, host)
	require.NoError(t, err)
	assert.NotEqual(t, sc.AccessID, renewed)

	_, err = f.scholiums.Join(ctx, uuid.New(), sc.AccessID)
	assert.ErrorIs(t, err, service.ErrInvalidAccessID, "old code stops working")
	_, err = f.scholiums.Join(ctx, uuid.New(), renewed)
	assert.NoError(t, err)
}

func TestRenameAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, member := f.group(t)

	assert.ErrorIs(t, f.scholiums.Rename(ctx, sc.ID, member, "Physics"), service.ErrPermissionDenied)
	require.NoError(t, f.scholiums.Rename(ctx, sc.ID, host, "Physics"))
	assert.Equal(t, []model.ChangeKind{model.ChangeScholium}, f.events.kinds())

	list, err := f.scholiums.ListForUser(ctx, member)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Physics", list[0].Name)
}

func TestDeleteScholium(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, member := f.group(t)

	assert.ErrorIs(t, f.scholiums.Delete(ctx, sc.ID, member), service.ErrPermissionDenied)
	require.NoError(t, f.scholiums.Delete(ctx, sc.ID, host))
	assert.Equal(t, []model.ChangeKind{model.ChangeDeleted}, f.events.kinds())

	ok, err := f.members.CheckMembership(ctx, sc.ID, member)
	require.NoError(t, err)
	assert.False(t, ok)
}
