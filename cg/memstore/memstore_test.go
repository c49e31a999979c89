package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/errors"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New(
		&cg.ServiceEntity{ID: "s2", AppID: "app1", Name: "Payments"},
		&cg.ServiceEntity{ID: "s1", AppID: "app1", Name: "Checkout"},
		&cg.ServiceEntity{ID: "s3", AppID: "app2", Name: "Payments"},
		&cg.TemplateEntity{ID: "t1", AppID: cg.GlobalAppID, Name: "Shared Script"},
		&cg.SecretEntity{ID: "sec1", AccountID: "acc", Name: "db-password"},
	)

	t.Run("get by app and id", func(t *testing.T) {
		e, err := s.GetByAppAndID(ctx, cg.Service, "app1", "s1")
		require.NoError(t, err)
		assert.Equal(t, "Checkout", e.DisplayName())

		_, err = s.GetByAppAndID(ctx, cg.Service, "app2", "s1")
		assert.True(t, errors.Is(err, errors.ErrNotFound), "entity of another app is invisible")
	})

	t.Run("global and account level entities are visible everywhere", func(t *testing.T) {
		_, err := s.GetByAppAndID(ctx, cg.Template, "app1", "t1")
		assert.NoError(t, err)
		_, err = s.GetByAppAndID(ctx, cg.Secret, "app2", "sec1")
		assert.NoError(t, err)
	})

	t.Run("list is ordered and app scoped", func(t *testing.T) {
		list, err := s.ListByApp(ctx, cg.Service, "app1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "s1", list[0].EntityRef().ID)
		assert.Equal(t, "s2", list[1].EntityRef().ID)
	})

	t.Run("name lookup is case insensitive", func(t *testing.T) {
		e, err := s.GetByName(ctx, cg.Secret, "", "DB-PASSWORD")
		require.NoError(t, err)
		assert.Equal(t, "sec1", e.EntityRef().ID)

		_, err = s.GetByName(ctx, cg.Secret, "", "missing")
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("put rejects missing id", func(t *testing.T) {
		err := s.Put(ctx, &cg.WorkflowEntity{AppID: "app1"})
		assert.True(t, errors.IsInvalidRequestError(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.GetByAppAndID(cctx, cg.Service, "app1", "s1")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
