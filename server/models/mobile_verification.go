package models

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OTP_DIGITS       = 6
	OTP_TTL          = 5 * time.Minute
	OTP_WINDOW       = 10 * time.Minute
	MAX_OTP_REQUESTS = 5
	MAX_OTP_ATTEMPTS = 5
)

var (
	ErrTooManyOTPRequests = errors.New("too many OTP requests, please try again later")
	ErrOTPNotFound        = errors.New("OTP expired or not found")
	ErrOTPInvalid         = errors.New("invalid OTP")
)

type MobileVerification struct {
	BaseModel
	Mobile     string     `gorm:"index;not null"`
	OTPHash    string     `gorm:"not null"`
	ExpiresAt  time.Time  `gorm:"not null"`
	Attempts   int        `gorm:"not null;default:0"`
	ConsumedAt *time.Time
}

// CreateMobileVerification issues a one time code for mobile and returns it
// in clear so it can be sent. Only its hash is stored.
func CreateMobileVerification(ctx context.Context, mobile string) (string, error) {
	var otp string

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		now := time.Now().UTC()

		err := tx.Model(&MobileVerification{}).
			Where("mobile = ? AND created_at >= ?", mobile, now.Add(-OTP_WINDOW)).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count >= MAX_OTP_REQUESTS {
			return ErrTooManyOTPRequests
		}

		otp, err = generateOTP()
		if err != nil {
			return err
		}

		return tx.Create(&MobileVerification{
			Mobile:    mobile,
			OTPHash:   hashOTP(otp),
			ExpiresAt: now.Add(OTP_TTL),
		}).Error
	})
	if err != nil {
		return "", err
	}

	return otp, nil
}

// VerifyMobileOTP checks otp against the latest live code for mobile and
// marks every profile using that number as verified. Returns
// gorm.ErrRecordNotFound when no profile uses the number.
func VerifyMobileOTP(ctx context.Context, mobile, otp string) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		verification := MobileVerification{}

		err := tx.Where("mobile = ? AND expires_at > ? AND consumed_at IS NULL", mobile, now).
			Order("created_at desc").First(&verification).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOTPNotFound
		}
		if err != nil {
			return err
		}

		if verification.Attempts >= MAX_OTP_ATTEMPTS {
			return ErrOTPNotFound
		}

		if subtle.ConstantTimeCompare([]byte(hashOTP(otp)), []byte(verification.OTPHash)) != 1 {
			return errOTPMismatch{id: verification.ID}
		}

		err = tx.Model(&verification).Update("consumed_at", now).Error
		if err != nil {
			return err
		}

		res := tx.Model(&Profile{}).Where("mobile = ?", mobile).Update("mobile_verified", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})

	// Count the failed attempt outside the rolled back transaction
	var mismatch errOTPMismatch
	if errors.As(err, &mismatch) {
		updateErr := db.WithContext(ctx).Model(&MobileVerification{}).Where("id = ?", mismatch.id).
			UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error
		if updateErr != nil {
			logg.Error(updateErr)
		}
		return ErrOTPInvalid
	}

	return err
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

type errOTPMismatch struct {
	id uuid.UUID
}

func (e errOTPMismatch) Error() string {
	return ErrOTPInvalid.Error()
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTP_DIGITS, n.Int64()), nil
}

func hashOTP(otp string) string {
	sum := sha256.Sum256([]byte(otp))
	return hex.EncodeToString(sum[:])
}
