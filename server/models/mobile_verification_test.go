package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMobileVerificationFlow(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	profile := createTestProfile(t, "Rohan Gupta")

	otp, err := CreateMobileVerification(ctx, profile.Mobile)
	require.Nil(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, otp)

	wrong := "000000"
	if otp == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, VerifyMobileOTP(ctx, profile.Mobile, wrong), ErrOTPInvalid)

	verification := MobileVerification{}
	require.Nil(t, db.First(&verification, "mobile = ?", profile.Mobile).Error)
	assert.Equal(t, 1, verification.Attempts)
	assert.NotEqual(t, otp, verification.OTPHash, "only the hash is stored")

	require.Nil(t, VerifyMobileOTP(ctx, profile.Mobile, otp))

	verified, err := FindProfile(ctx, profile.ID)
	require.Nil(t, err)
	assert.True(t, verified.MobileVerified)

	// A code is single use
	assert.ErrorIs(t, VerifyMobileOTP(ctx, profile.Mobile, otp), ErrOTPNotFound)
}

func TestMobileVerificationRequestLimit(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	for i := 0; i < MAX_OTP_REQUESTS; i++ {
		_, err := CreateMobileVerification(ctx, "+919876543210")
		require.Nil(t, err)
	}

	_, err := CreateMobileVerification(ctx, "+919876543210")
	assert.ErrorIs(t, err, ErrTooManyOTPRequests)

	// Other numbers are unaffected
	_, err = CreateMobileVerification(ctx, "+919876543211")
	assert.Nil(t, err)
}

func TestMobileVerificationLocksAfterFailedAttempts(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	profile := createTestProfile(t, "Rohan Gupta")
	otp, err := CreateMobileVerification(ctx, profile.Mobile)
	require.Nil(t, err)

	wrong := "000000"
	if otp == wrong {
		wrong = "111111"
	}
	for i := 0; i < MAX_OTP_ATTEMPTS; i++ {
		assert.ErrorIs(t, VerifyMobileOTP(ctx, profile.Mobile, wrong), ErrOTPInvalid)
	}

	assert.ErrorIs(t, VerifyMobileOTP(ctx, profile.Mobile, otp), ErrOTPNotFound)
}
