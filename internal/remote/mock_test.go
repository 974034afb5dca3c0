package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/plansync/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockRemote(t *testing.T) {
	m := NewMockRemote[model.Account]()
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return t0.Add(time.Hour) })

	old := model.Account{ID: uuid.New(), Name: "Old", Currency: "USD"}
	m.Seed(old, t0)

	fresh := model.Account{ID: uuid.New(), Name: "Fresh", Currency: "EUR"}
	require.NoError(t, m.Push(ctx, fresh))

	result, err := m.Pull(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, fresh.ID, result.Items[0].ID)

	all, err := m.Pull(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	require.NoError(t, m.Delete(ctx, old.ID))
	_, ok := m.Item(old.ID)
	assert.False(t, ok)

	errDown := errors.New("down")
	m.PushFn = func(context.Context, model.Account) error { return errDown }
	assert.ErrorIs(t, m.Push(ctx, old), errDown)
	_, ok = m.Item(old.ID)
	assert.False(t, ok, "failed push must not store the item")

	assert.Len(t, m.Pushes(), 2)
	assert.Equal(t, []uuid.UUID{old.ID}, m.Deletes())
	assert.Len(t, m.Pulls(), 2)
}
