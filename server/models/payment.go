package models

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

const (
	MOCK_PROVIDER     = "mock"
	RAZORPAY_PROVIDER = "razorpay"

	PAYMENT_CREATED   = "created"
	PAYMENT_SUCCEEDED = "succeeded"

	CURRENCY_INR = "INR"
)

// Payment is a ledger row. IdempotencyKey is unique, so replaying the same
// logical payment updates its row instead of adding another.
type Payment struct {
	BaseModel
	ProfileID         uuid.UUID `json:"profileId" gorm:"type:uuid;index;not null"`
	AmountPaise       int64     `json:"amountPaise" gorm:"not null"`
	CurrencyCode      string    `json:"currencyCode" gorm:"not null;default:'INR'"`
	Provider          string    `json:"provider" gorm:"not null"`
	ProviderOrderID   string    `json:"providerOrderId,omitempty" gorm:"index"`
	ProviderPaymentID string    `json:"providerPaymentId,omitempty"`
	Status            string    `json:"status" gorm:"not null"`
	IsActivation      bool      `json:"isActivation" gorm:"not null;default:false"`
	IdempotencyKey    string    `json:"-" gorm:"not null;uniqueIndex"`
}

func ActivationPaymentKey(profileID uuid.UUID) string {
	return fmt.Sprintf("activation-%v", profileID)
}

func RazorpayPaymentKey(orderID string) string {
	return fmt.Sprintf("razorpay-%v", orderID)
}

func UpsertPayment(ctx context.Context, payment *Payment) error {
	if payment.CurrencyCode == "" {
		payment.CurrencyCode = CURRENCY_INR
	}

	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "idempotency_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"amount_paise", "currency_code", "provider", "provider_order_id",
			"provider_payment_id", "status", "is_activation", "updated_at",
		}),
	}).Create(payment).Error
}

func FindPaymentByKey(ctx context.Context, key string) (*Payment, error) {
	payment := Payment{}
	err := db.WithContext(ctx).First(&payment, "idempotency_key = ?", key).Error
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func FetchPayments(ctx context.Context, profileID uuid.UUID) ([]Payment, error) {
	payments := []Payment{}
	err := db.WithContext(ctx).Where("profile_id = ?", profileID).
		Order("created_at desc").Find(&payments).Error

	return payments, err
}
