package service_test

import (
	"testing"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserve(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("holds units until ttl", func(t *testing.T) {
		v := &models.Variant{Quantity: 5}
		require.NoError(t, service.Reserve(v, 2, 15*time.Minute, now))
		assert.Equal(t, 2, v.ReservedQuantity)
		require.NotNil(t, v.ReservedUntil)
		assert.Equal(t, now.Add(15*time.Minute), *v.ReservedUntil)
		assert.Equal(t, 3, v.Available())
	})

	t.Run("insufficient stock", func(t *testing.T) {
		v := &models.Variant{Quantity: 3, ReservedQuantity: 2, ReservedUntil: ptrTime(now.Add(time.Minute))}
		err := service.Reserve(v, 2, time.Minute, now)
		assert.ErrorIs(t, err, service.ErrInsufficientStock)
		assert.Equal(t, 2, v.ReservedQuantity)
	})

	t.Run("expired hold is dropped first", func(t *testing.T) {
		v := &models.Variant{Quantity: 3, ReservedQuantity: 3, ReservedUntil: ptrTime(now.Add(-time.Minute))}
		require.NoError(t, service.Reserve(v, 3, time.Minute, now))
		assert.Equal(t, 3, v.ReservedQuantity)
		assert.True(t, v.ReservedUntil.After(now))
	})

	t.Run("later expiry wins", func(t *testing.T) {
		far := now.Add(time.Hour)
		v := &models.Variant{Quantity: 10, ReservedQuantity: 1, ReservedUntil: &far}
		require.NoError(t, service.Reserve(v, 1, time.Minute, now))
		assert.Equal(t, far, *v.ReservedUntil)
	})

	t.Run("zero quantity", func(t *testing.T) {
		v := &models.Variant{Quantity: 10}
		assert.ErrorIs(t, service.Reserve(v, 0, time.Minute, now), service.ErrQuantityInvalid)
	})
}

func TestCommit(t *testing.T) {
	until := time.Now().Add(time.Minute)

	t.Run("consumes reservation", func(t *testing.T) {
		v := &models.Variant{Quantity: 5, ReservedQuantity: 2, ReservedUntil: &until}
		short, err := service.Commit(v, 2)
		require.NoError(t, err)
		assert.Zero(t, short)
		assert.Equal(t, 3, v.Quantity)
		assert.Zero(t, v.ReservedQuantity)
		assert.Nil(t, v.ReservedUntil)
	})

	t.Run("partial reservation keeps expiry", func(t *testing.T) {
		v := &models.Variant{Quantity: 5, ReservedQuantity: 3, ReservedUntil: &until}
		_, err := service.Commit(v, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, v.ReservedQuantity)
		assert.NotNil(t, v.ReservedUntil)
	})

	t.Run("without reservation", func(t *testing.T) {
		v := &models.Variant{Quantity: 4}
		_, err := service.Commit(v, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, v.Quantity)
		assert.Zero(t, v.ReservedQuantity)
	})

	t.Run("oversell floors at zero", func(t *testing.T) {
		v := &models.Variant{Quantity: 1}
		short, err := service.Commit(v, 3)
		require.NoError(t, err)
		assert.Equal(t, 2, short)
		assert.Zero(t, v.Quantity)
	})
}

func TestHeal(t *testing.T) {
	now := time.Now()

	v := &models.Variant{Quantity: 5, ReservedQuantity: 2, ReservedUntil: ptrTime(now.Add(-time.Second))}
	assert.Equal(t, service.HealExpired, service.Heal(v, now))
	assert.Zero(t, v.ReservedQuantity)
	assert.Nil(t, v.ReservedUntil)

	orphan := &models.Variant{Quantity: 5, ReservedQuantity: 2}
	assert.Equal(t, service.HealOrphaned, service.Heal(orphan, now))
	assert.Zero(t, orphan.ReservedQuantity)

	live := &models.Variant{Quantity: 5, ReservedQuantity: 2, ReservedUntil: ptrTime(now.Add(time.Minute))}
	assert.Equal(t, service.HealNone, service.Heal(live, now))
	assert.Equal(t, 2, live.ReservedQuantity)
}

func TestReleaseAndSetStock(t *testing.T) {
	v := &models.Variant{Quantity: 5}
	assert.False(t, service.Release(v))

	v.ReservedQuantity = 3
	assert.True(t, service.Release(v))
	assert.Zero(t, v.ReservedQuantity)

	assert.ErrorIs(t, service.SetStock(v, -1), service.ErrQuantityInvalid)
	require.NoError(t, service.SetStock(v, 12))
	assert.Equal(t, 12, v.Quantity)
}

func ptrTime(t time.Time) *time.Time { return &t }
