package seed_test

import (
	"context"
	"testing"

	"github.com/smallbiznis/leasehold/internal/seed"
	"github.com/smallbiznis/leasehold/internal/testutil"
	utilitydomain "github.com/smallbiznis/leasehold/internal/utility/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUtilityTypesIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()

	require.NoError(t, seed.EnsureUtilityTypes(ctx, db))
	require.NoError(t, seed.EnsureUtilityTypes(ctx, db))

	var items []utilitydomain.UtilityType
	require.NoError(t, db.Order("id ASC").Find(&items).Error)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID.Int64())
	assert.Equal(t, utilitydomain.KindElectricity, items[0].Code)
	assert.Equal(t, int64(2), items[1].ID.Int64())
	assert.Equal(t, utilitydomain.KindWater, items[1].Code)
}

func TestEnsureUtilityTypesRequiresDB(t *testing.T) {
	assert.Error(t, seed.EnsureUtilityTypes(context.Background(), nil))
}
