package service

import (
	"context"
	"testing"

	"shopfront/internal/database"
	"shopfront/internal/media"
	"shopfront/internal/repository"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMaintenanceService_WipeAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	maintenance := NewMaintenanceService(repository.NewMaintenanceRepository(env.store), env.media, 0, zap.NewNop())

	p, err := env.catalog.Create(ctx, shirtInput(), []media.File{jpeg("a.jpg")})
	require.NoError(t, err)
	_, err = env.cart.Add(ctx, p.ID, "M")
	require.NoError(t, err)
	_, err = env.orders.PlaceOrder(ctx, nil, PaymentInput{CardNumber: "4111111111111111"})
	require.NoError(t, err)
	_, err = env.cart.Add(ctx, p.ID, "S")
	require.NoError(t, err)

	report, err := maintenance.WipeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.WipeResult{Products: 1, CartItems: 1, Orders: 1}, report.WipeResult)
	assert.Equal(t, 1, report.Files)
	assert.Empty(t, env.uploads(t))

	products, err := env.catalog.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
	orders, err := env.orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMaintenanceService_SweepOrphans(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	maintenance := NewMaintenanceService(repository.NewMaintenanceRepository(env.store), env.media, 0, zap.NewNop())

	p, err := env.catalog.Create(ctx, shirtInput(), []media.File{jpeg("kept.jpg")})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(env.fs, "/uploads/stray.jpg", []byte("x"), 0o644))

	removed, err := maintenance.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{p.Media[0].StoredName}, env.uploads(t))
}

func TestMaintenanceService_SweepAbortsOnCorruptCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	maintenance := NewMaintenanceService(repository.NewMaintenanceRepository(env.store), env.media, 0, zap.NewNop())

	p, err := env.catalog.Create(ctx, shirtInput(), []media.File{jpeg("kept.jpg")})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(env.fs, "/data/products.json", []byte(`[{"id":`), 0o644))

	removed, err := maintenance.SweepOrphans(ctx)
	assert.ErrorIs(t, err, database.ErrCorruptDocument)
	assert.Zero(t, removed)
	assert.Equal(t, []string{p.Media[0].StoredName}, env.uploads(t))
}
