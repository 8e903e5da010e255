package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuanlam2007/scholium/internal/model"
	"github.com/xuanlam2007/scholium/internal/service"
)

func TestCheckMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, member := f.group(t)

	for _, user := range []uuid.UUID{host, member} {
		ok, err := f.members.CheckMembership(ctx, sc.ID, user)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := f.members.CheckMembership(ctx, sc.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, member := f.group(t)
	memberID := f.memberID(t, sc.ID, member)

	t.Run("non-host is denied", func(t *testing.T) {
		other := uuid.New()
		_, err := f.scholiums.Join(ctx, other, sc.AccessID)
		require.NoError(t, err)
		f.events.reset()

		err = f.members.Remove(ctx, memberID, other)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
		ok, _ := f.members.CheckMembership(ctx, sc.ID, member)
		assert.True(t, ok)
		assert.Empty(t, f.events.kinds())
	})

	t.Run("host cannot be removed", func(t *testing.T) {
		err := f.members.Remove(ctx, f.memberID(t, sc.ID, host), host)
		assert.ErrorIs(t, err, service.ErrCannotModifyHost)
	})

	t.Run("host removes member", func(t *testing.T) {
		f.events.reset()
		require.NoError(t, f.members.Remove(ctx, memberID, host))
		ok, _ := f.members.CheckMembership(ctx, sc.ID, member)
		assert.False(t, ok)
		assert.Equal(t, []model.ChangeKind{model.ChangeMember}, f.events.kinds())
	})

	t.Run("removing again succeeds", func(t *testing.T) {
		f.events.reset()
		assert.NoError(t, f.members.Remove(ctx, memberID, host))
		assert.Empty(t, f.events.kinds())
	})
}

func TestQuit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, member := f.group(t)

	assert.ErrorIs(t, f.members.Quit(ctx, sc.ID, host), service.ErrHostCannotQuit)
	require.NoError(t, f.members.Quit(ctx, sc.ID, member))
	assert.ErrorIs(t, f.members.Quit(ctx, sc.ID, member), service.ErrNotMember)
	assert.Equal(t, []model.ChangeKind{model.ChangeMember}, f.events.kinds())
}

func TestUpdatePermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, member := f.group(t)
	memberID := f.memberID(t, sc.ID, member)

	perms := model.Permissions{CanAddHomework: true}
	assert.ErrorIs(t, f.members.UpdatePermissions(ctx, memberID, member, perms), service.ErrPermissionDenied)
	assert.ErrorIs(t, f.members.UpdatePermissions(ctx, f.memberID(t, sc.ID, host), host, perms), service.ErrCannotModifyHost)

	require.NoError(t, f.members.UpdatePermissions(ctx, memberID, host, perms))
	role, err := f.members.Role(ctx, sc.ID, member)
	require.NoError(t, err)
	assert.True(t, role.CanAddHomework())
	assert.False(t, role.CanCreateSubject())
	assert.Equal(t, []model.ChangeKind{model.ChangePermissions}, f.events.kinds())
}

func TestCohost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, member := f.group(t)
	memberID := f.memberID(t, sc.ID, member)

	_, err := f.members.ToggleCohost(ctx, memberID, member)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	isCohost, err := f.members.ToggleCohost(ctx, memberID, host)
	require.NoError(t, err)
	assert.True(t, isCohost)
	role, _ := f.members.Role(ctx, sc.ID, member)
	assert.True(t, role.IsCohost)
	assert.True(t, role.CanAddHomework() && role.CanCreateSubject())

	isCohost, err = f.members.ToggleCohost(ctx, memberID, host)
	require.NoError(t, err)
	assert.False(t, isCohost)
	m, _ := f.store.Members().GetByID(ctx, memberID)
	assert.False(t, m.IsCohost)
	assert.True(t, m.CanAddHomework, "demotion keeps granted permissions")

	assert.ErrorIs(t, f.members.SetCohost(ctx, f.memberID(t, sc.ID, host), host, true), service.ErrCannotModifyHost)
}

func TestTransferHost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, host, member := f.group(t)

	assert.ErrorIs(t, f.members.TransferHost(ctx, sc.ID, member, member), service.ErrPermissionDenied)
	assert.ErrorIs(t, f.members.TransferHost(ctx, sc.ID, host, uuid.New()), service.ErrNotFound)

	require.NoError(t, f.members.TransferHost(ctx, sc.ID, host, member))

	oldRole, _ := f.members.Role(ctx, sc.ID, host)
	newRole, _ := f.members.Role(ctx, sc.ID, member)
	assert.False(t, oldRole.IsHost)
	assert.False(t, oldRole.IsCohost)
	assert.True(t, newRole.IsHost)
	assert.NoError(t, f.members.Quit(ctx, sc.ID, host), "demoted host can quit")
}
