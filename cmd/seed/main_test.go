package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/backend/internal/tenant/domain"
	"storefront/backend/internal/tenant/repository"
	"storefront/backend/internal/tenant/store"
)

func draft() domain.Draft {
	return domain.Draft{Slug: "Default", Name: "Default Storefront", Config: json.RawMessage(defaultConfig)}
}

func TestSeed_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := store.New(repository.NewMemoryRepository(), nil, nil)

	first, err := seed(ctx, s, draft())
	require.NoError(t, err)
	assert.Equal(t, "default", first.Slug)
	assert.True(t, first.IsActive)

	second, err := seed(ctx, s, draft())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSeed_KeepsOperatorChosenActiveTenant(t *testing.T) {
	ctx := context.Background()
	s := store.New(repository.NewMemoryRepository(), nil, nil)
	chosen, err := s.Create(ctx, domain.Draft{Slug: "acme", Name: "Acme", Config: json.RawMessage(`{}`), IsActive: true}, store.Actor{ID: "ops"})
	require.NoError(t, err)

	seeded, err := seed(ctx, s, draft())
	require.NoError(t, err)
	assert.False(t, seeded.IsActive)

	active, err := s.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, chosen.ID, active.ID)
}
