package models

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCompleteActivation(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	profile := createTestProfile(t, "Asha Rao")

	result, err := CompleteActivation(ctx, profile.ID, FreeActivation)
	require.Nil(t, err)
	assert.Equal(t, 1, result.ActivationNumber)
	assert.Equal(t, int64(0), result.AmountPaise)
	assert.True(t, result.IsFree())
	assert.False(t, result.AlreadyActivated)
	assert.Len(t, result.Token, 64)

	activated, err := FindProfile(ctx, profile.ID)
	require.Nil(t, err)
	assert.True(t, activated.IsPaid)
	assert.True(t, activated.IsFreeCustomer)
	assert.Equal(t, 1, *activated.ActivationNumber)
	assert.NotNil(t, activated.ActivatedAt)
}

func TestCompleteActivationTwiceReusesNumberAndToken(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	profile := createTestProfile(t, "Asha Rao")

	first, err := CompleteActivation(ctx, profile.ID, FreeActivation)
	require.Nil(t, err)

	second, err := CompleteActivation(ctx, profile.ID, FreeActivation)
	require.Nil(t, err)

	assert.True(t, second.AlreadyActivated)
	assert.Equal(t, first.ActivationNumber, second.ActivationNumber)
	assert.Equal(t, first.Token, second.Token)

	count, err := CurrentActivationCount(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 1, count, "counter should only move once per profile")

	var codes int64
	db.Model(&QRCode{}).Where("profile_id = ?", profile.ID).Count(&codes)
	assert.Equal(t, int64(1), codes)
}

func TestCompleteActivationNumbersAreSequential(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		profile := createTestProfile(t, "user")
		result, err := CompleteActivation(ctx, profile.ID, FreeActivation)
		require.Nil(t, err)
		assert.Equal(t, i, result.ActivationNumber)
	}
}

func TestFreeActivationRejectsPricedSlot(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	setActivationCounter(t, 100)
	profile := createTestProfile(t, "Vikram Singh")

	_, err := CompleteActivation(ctx, profile.ID, FreeActivation)
	assert.ErrorIs(t, err, ErrPaymentRequired)

	// Nothing from the rejected attempt is kept
	count, err := CurrentActivationCount(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 100, count)

	unchanged, err := FindProfile(ctx, profile.ID)
	require.Nil(t, err)
	assert.False(t, unchanged.IsPaid)
	assert.Nil(t, unchanged.ActivationNumber)

	_, err = FindQRCodeByProfile(ctx, profile.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPaidActivationPricesReservedSlot(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	setActivationCounter(t, 100)
	profile := createTestProfile(t, "Vikram Singh")

	result, err := CompleteActivation(ctx, profile.ID, PaidActivation)
	require.Nil(t, err)
	assert.Equal(t, 101, result.ActivationNumber)
	assert.Equal(t, int64(9900), result.AmountPaise)

	paid, err := FindProfile(ctx, profile.ID)
	require.Nil(t, err)
	assert.True(t, paid.IsPaid)
	assert.False(t, paid.IsFreeCustomer)
}

func TestCompleteActivationUnknownProfile(t *testing.T) {
	InitializeTestDb()

	_, err := CompleteActivation(context.Background(), uuid.New(), FreeActivation)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	count, _ := CurrentActivationCount(context.Background())
	assert.Equal(t, 0, count)
}
