package models

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIssueOrReuseProfileToken(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	profile := createTestProfile(t, "Meera Iyer")

	first, err := IssueOrReuseProfileToken(ctx, profile.ID)
	require.Nil(t, err)
	assert.True(t, first.IsActive)
	assert.Len(t, first.Token, 64)

	second, err := IssueOrReuseProfileToken(ctx, profile.ID)
	require.Nil(t, err)
	assert.Equal(t, first.Token, second.Token, "an existing token must be reused")
	assert.Equal(t, first.ID, second.ID)
}

func TestInsertOrReuseCodeAfterLostRace(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	profile := createTestProfile(t, "Kiran Shah")
	winner, err := IssueOrReuseProfileToken(ctx, profile.ID)
	require.Nil(t, err)

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The owner lookup already missed, the insert collides
		code, err := insertOrReuseCode(tx, QRCode{ProfileID: &profile.ID})
		require.Nil(t, err)
		assert.Equal(t, winner.Token, code.Token)

		// The transaction is still usable afterwards
		var count int64
		return tx.Model(&QRCode{}).Where("profile_id = ?", profile.ID).Count(&count).Error
	})
	assert.Nil(t, err)

	var count int64
	require.Nil(t, db.Model(&QRCode{}).Where("profile_id = ?", profile.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestQRCodeNeedsExactlyOneOwner(t *testing.T) {
	InitializeTestDb()

	profileID, vehicleID := uuid.New(), uuid.New()

	err := db.Create(&QRCode{Token: "no-owner"}).Error
	assert.ErrorIs(t, err, ErrInvalidQROwner)

	err = db.Create(&QRCode{Token: "two-owners", ProfileID: &profileID, VehicleID: &vehicleID}).Error
	assert.ErrorIs(t, err, ErrInvalidQROwner)
}

func TestSetProfileQRActive(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	profile := createTestProfile(t, "Meera Iyer")

	err := SetProfileQRActive(ctx, profile.ID, false)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	code, err := IssueOrReuseProfileToken(ctx, profile.ID)
	require.Nil(t, err)

	require.Nil(t, SetProfileQRActive(ctx, profile.ID, false))
	found, err := FindQRCodeByToken(ctx, code.Token)
	require.Nil(t, err)
	assert.False(t, found.IsActive)

	require.Nil(t, SetProfileQRActive(ctx, profile.ID, true))
	found, err = FindQRCodeByToken(ctx, code.Token)
	require.Nil(t, err)
	assert.True(t, found.IsActive)
}

func TestTokensMissingArtifact(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	stored, err := IssueOrReuseProfileToken(ctx, createTestProfile(t, "a").ID)
	require.Nil(t, err)
	missing, err := IssueOrReuseProfileToken(ctx, createTestProfile(t, "b").ID)
	require.Nil(t, err)

	require.Nil(t, ArtifactLedger{}.MarkArtifactStored(ctx, stored.Token))

	tokens, err := TokensMissingArtifact(ctx, 10)
	assert.Nil(t, err)
	assert.Equal(t, []string{missing.Token}, tokens)
}
