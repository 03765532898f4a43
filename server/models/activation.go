package models

import (
	"context"
	"errors"
	"time"

	"github.com/Daskott/kavach/server/pricing"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const ACTIVATION_COUNTER_ID = 1

var ErrPaymentRequired = errors.New("activation requires payment")

type ActivationMode int

const (
	// FreeActivation refuses to activate once the reserved slot is priced.
	FreeActivation ActivationMode = iota
	// PaidActivation runs after the gateway confirmed payment.
	PaidActivation
)

// ActivationCounter is a single row holding the number of activations
// handed out so far.
type ActivationCounter struct {
	ID        uint `gorm:"primarykey"`
	Value     int  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

type ActivationResult struct {
	ProfileID        uuid.UUID
	ActivationNumber int
	AmountPaise      int64
	Token            string
	AlreadyActivated bool
	// ArtifactStoredAt is set once the token's image is in storage
	ArtifactStoredAt *time.Time
}

func (result *ActivationResult) IsFree() bool {
	return result.AmountPaise == 0
}

// CompleteActivation activates a profile in one transaction: it flips the
// profile to paid, reserves the next activation number, prices it and issues
// or reuses the profile's token. Activating an already active profile returns
// its existing number and token without touching the counter.
//
// In FreeActivation mode a priced slot rolls everything back and returns
// ErrPaymentRequired.
func CompleteActivation(ctx context.Context, profileID uuid.UUID, mode ActivationMode) (*ActivationResult, error) {
	result := ActivationResult{ProfileID: profileID}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Profile{}).
			Where("id = ? AND is_paid = ?", profileID, false).
			Updates(map[string]interface{}{"is_paid": true, "activated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return loadExistingActivation(tx, &result)
		}

		// The row update is what serializes concurrent activations, the
		// value is read back inside the same transaction
		err := tx.Model(&ActivationCounter{}).Where("id = ?", ACTIVATION_COUNTER_ID).
			UpdateColumn("value", gorm.Expr("value + ?", 1)).Error
		if err != nil {
			return err
		}

		counter := ActivationCounter{}
		if err := tx.First(&counter, ACTIVATION_COUNTER_ID).Error; err != nil {
			return err
		}

		result.ActivationNumber = counter.Value
		result.AmountPaise = pricing.PriceFor(counter.Value)
		if mode == FreeActivation && result.AmountPaise > 0 {
			return ErrPaymentRequired
		}

		err = tx.Model(&Profile{}).Where("id = ?", profileID).Updates(map[string]interface{}{
			"activation_number": counter.Value,
			"is_free_customer":  result.AmountPaise == 0,
		}).Error
		if err != nil {
			return err
		}

		code, err := issueOrReuseToken(tx, QRCode{ProfileID: &profileID})
		if err != nil {
			return err
		}
		result.Token = code.Token
		result.ArtifactStoredAt = code.ArtifactStoredAt

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// CurrentActivationCount is the number of activations handed out so far.
func CurrentActivationCount(ctx context.Context) (int, error) {
	counter := ActivationCounter{}
	err := db.WithContext(ctx).First(&counter, ACTIVATION_COUNTER_ID).Error
	if err != nil {
		return 0, err
	}

	return counter.Value, nil
}

func loadExistingActivation(tx *gorm.DB, result *ActivationResult) error {
	profile := Profile{}
	if err := tx.First(&profile, "id = ?", result.ProfileID).Error; err != nil {
		return err
	}

	result.AlreadyActivated = true
	if profile.ActivationNumber != nil {
		result.ActivationNumber = *profile.ActivationNumber
		result.AmountPaise = pricing.PriceFor(*profile.ActivationNumber)
	}

	code, err := issueOrReuseToken(tx, QRCode{ProfileID: &result.ProfileID})
	if err != nil {
		return err
	}
	result.Token = code.Token
	result.ArtifactStoredAt = code.ArtifactStoredAt

	return nil
}
