// Package activation turns a registered profile into an activated one with a
// live QR token, either for free or after a confirmed gateway payment.
package activation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Daskott/kavach/server/apperr"
	"github.com/Daskott/kavach/server/logger"
	"github.com/Daskott/kavach/server/metrics"
	"github.com/Daskott/kavach/server/models"
	"github.com/Daskott/kavach/server/pricing"
	"github.com/Daskott/kavach/server/razorpay"
	"github.com/Daskott/kavach/server/work"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RENDER_QR_ARTIFACT_HANDLER = "render_qr_artifact"

	DIRECT_PATH  = "direct"
	GATEWAY_PATH = "gateway"
)

var logg = logger.NewLogger()

type PaymentGateway interface {
	Configured() bool
	KeyID() string
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]string) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

type ArtifactProducer interface {
	RenderAndStore(ctx context.Context, token string) error
}

type JobQueue interface {
	Perform(job work.JobParams) error
}

type Result struct {
	Success          bool   `json:"success"`
	ActivationNumber int    `json:"activationNumber"`
	IsFree           bool   `json:"isFree"`
	Token            string `json:"token"`
	PricePaise       int64  `json:"pricePaise"`
	AlreadyActivated bool   `json:"alreadyActivated,omitempty"`
}

type Order struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

type Service struct {
	gateway   PaymentGateway
	artifacts ArtifactProducer
	jobs      JobQueue
}

func NewService(gateway PaymentGateway, artifacts ArtifactProducer, jobs JobQueue) *Service {
	return &Service{gateway: gateway, artifacts: artifacts, jobs: jobs}
}

// RenderArtifactJob is the repair job for a token whose image is missing.
func RenderArtifactJob(token string) work.JobParams {
	return work.JobParams{
		Name:    fmt.Sprintf("render:%v", token),
		Handler: RENDER_QR_ARTIFACT_HANDLER,
		Args:    map[string]interface{}{"token": token},
	}
}

// Quote previews the price of the caller's activation without reserving it.
func (s *Service) Quote(ctx context.Context, profileID uuid.UUID) (*pricing.Quote, error) {
	profile, err := findProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	return quoteFor(ctx, profile)
}

// Activate is the direct path. It only succeeds while the reserved slot is
// free; priced slots have to go through the gateway.
func (s *Service) Activate(ctx context.Context, profileID uuid.UUID) (*Result, error) {
	result, err := models.CompleteActivation(ctx, profileID, models.FreeActivation)
	if errors.Is(err, models.ErrPaymentRequired) {
		return nil, apperr.Wrap(apperr.PaymentRequired, err, "Activation requires payment. Request a quote to continue.")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.NotFound, err, "Profile not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Activation failed")
	}

	s.EnsureArtifact(ctx, result.Token, result.ArtifactStoredAt)

	if !result.AlreadyActivated {
		metrics.Activations.WithLabelValues(DIRECT_PATH, metrics.Tier(true)).Inc()
	}

	if result.IsFree() {
		err = models.UpsertPayment(ctx, &models.Payment{
			ProfileID:         profileID,
			AmountPaise:       0,
			Provider:          models.MOCK_PROVIDER,
			ProviderPaymentID: fmt.Sprintf("mock_%v", uuid.NewString()),
			Status:            models.PAYMENT_SUCCEEDED,
			IsActivation:      true,
			IdempotencyKey:    models.ActivationPaymentKey(profileID),
		})
		if err != nil {
			logg.Errorf("unable to record free activation payment for %v: %v", profileID, err)
		}
	}

	return newResult(result), nil
}

func (s *Service) CreateOrder(ctx context.Context, profileID uuid.UUID, amountPaise int64) (*Order, error) {
	if !s.gateway.Configured() {
		return nil, apperr.New(apperr.Unavailable, "Payment gateway is not configured.")
	}

	profile, err := findProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile.IsPaid {
		return nil, apperr.New(apperr.Conflict, "Profile is already activated.")
	}

	quote, err := quoteFor(ctx, profile)
	if err != nil {
		return nil, err
	}

	if quote.IsFree {
		return nil, apperr.New(apperr.Validation, "Your activation is free. Use the free activation flow instead.")
	}

	if amountPaise != quote.AmountPaise {
		return nil, apperr.New(apperr.Validation, "Amount mismatch. Expected %d paise.", quote.AmountPaise)
	}

	receipt := fmt.Sprintf("kavach-activation-%v-%d", profileID.String()[:8], time.Now().UnixMilli())
	order, err := s.gateway.CreateOrder(ctx, quote.AmountPaise, models.CURRENCY_INR, receipt, map[string]string{
		"profile_id":       profileID.String(),
		"activation_index": fmt.Sprint(quote.ActivationNumber),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, err, "Failed to create order")
	}

	err = models.UpsertPayment(ctx, &models.Payment{
		ProfileID:       profileID,
		AmountPaise:     order.Amount,
		CurrencyCode:    order.Currency,
		Provider:        models.RAZORPAY_PROVIDER,
		ProviderOrderID: order.ID,
		Status:          models.PAYMENT_CREATED,
		IsActivation:    true,
		IdempotencyKey:  models.RazorpayPaymentKey(order.ID),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to record order")
	}

	return &Order{OrderID: order.ID, Amount: order.Amount, Currency: order.Currency, KeyID: s.gateway.KeyID()}, nil
}

// VerifyAndActivate completes the gateway path. Nothing is written unless the
// checkout signature matches.
func (s *Service) VerifyAndActivate(ctx context.Context, profileID uuid.UUID, orderID, paymentID, signature string) (*Result, error) {
	if !s.gateway.Configured() {
		return nil, apperr.New(apperr.Unavailable, "Payment gateway is not configured.")
	}

	if orderID == "" || paymentID == "" || signature == "" {
		return nil, apperr.New(apperr.Validation, "Missing razorpay_order_id, razorpay_payment_id or razorpay_signature")
	}

	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		return nil, apperr.New(apperr.Signature, "Invalid payment signature")
	}

	order, err := models.FindPaymentByKey(ctx, models.RazorpayPaymentKey(orderID))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.Internal, err, "Verification failed")
	}
	if err == nil && order.ProfileID != profileID {
		return nil, apperr.New(apperr.Forbidden, "Order belongs to another account")
	}

	result, err := models.CompleteActivation(ctx, profileID, models.PaidActivation)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.NotFound, err, "Profile not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Activation failed")
	}

	s.EnsureArtifact(ctx, result.Token, result.ArtifactStoredAt)

	if !result.AlreadyActivated {
		metrics.Activations.WithLabelValues(GATEWAY_PATH, metrics.Tier(result.IsFree())).Inc()
	}

	// The ledger keeps what the gateway charged. The slot reserved now may be
	// priced differently when another activation landed after the quote.
	chargedPaise, currency := result.AmountPaise, models.CURRENCY_INR
	if order != nil {
		chargedPaise, currency = order.AmountPaise, order.CurrencyCode
	}
	if chargedPaise != result.AmountPaise {
		metrics.PriceMismatches.Inc()
		logg.Warnf("order %v charged %d paise but activation #%d is priced at %d paise",
			orderID, chargedPaise, result.ActivationNumber, result.AmountPaise)
	}

	err = models.UpsertPayment(ctx, &models.Payment{
		ProfileID:         profileID,
		AmountPaise:       chargedPaise,
		CurrencyCode:      currency,
		Provider:          models.RAZORPAY_PROVIDER,
		ProviderOrderID:   orderID,
		ProviderPaymentID: paymentID,
		Status:            models.PAYMENT_SUCCEEDED,
		IsActivation:      true,
		IdempotencyKey:    models.RazorpayPaymentKey(orderID),
	})
	if err != nil {
		logg.Errorf("unable to record payment for order %v: %v", orderID, err)
	}

	return newResult(result), nil
}

// EnsureArtifact uploads the image for token unless storedAt says it is
// already there. A failed upload never fails the caller, a repair job is
// queued instead.
func (s *Service) EnsureArtifact(ctx context.Context, token string, storedAt *time.Time) {
	if storedAt != nil {
		return
	}

	err := s.artifacts.RenderAndStore(ctx, token)
	if err == nil {
		return
	}

	logg.Errorf("unable to store qr artifact for token %v: %v", token, err)
	if err := s.jobs.Perform(RenderArtifactJob(token)); err != nil {
		logg.Error(err)
	}
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func findProfile(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	profile, err := models.FindProfile(ctx, profileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.NotFound, err, "Profile not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Unable to load profile")
	}

	return profile, nil
}

// quoteFor gives an activated profile its own number, everyone else the next one.
func quoteFor(ctx context.Context, profile *models.Profile) (*pricing.Quote, error) {
	if profile.IsPaid && profile.ActivationNumber != nil {
		quote := pricing.QuoteFor(*profile.ActivationNumber)
		return &quote, nil
	}

	count, err := models.CurrentActivationCount(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to get quote")
	}

	quote := pricing.QuoteFor(count + 1)
	return &quote, nil
}

func newResult(result *models.ActivationResult) *Result {
	return &Result{
		Success:          true,
		ActivationNumber: result.ActivationNumber,
		IsFree:           result.IsFree(),
		Token:            result.Token,
		PricePaise:       result.AmountPaise,
		AlreadyActivated: result.AlreadyActivated,
	}
}
