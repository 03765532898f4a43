package models

import (
	"context"
	"errors"
	"time"

	"github.com/Daskott/kavach/server/qr"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidQROwner = errors.New("a qr code belongs to exactly one profile or one vehicle")

// QRCode is the token behind a printed code. Deactivating it is a soft flag,
// rows are never deleted.
type QRCode struct {
	BaseModel
	ProfileID        *uuid.UUID `json:"profileId,omitempty" gorm:"type:uuid;uniqueIndex"`
	VehicleID        *uuid.UUID `json:"vehicleId,omitempty" gorm:"type:uuid;uniqueIndex"`
	Token            string     `json:"token" gorm:"not null;uniqueIndex"`
	IsActive         bool       `json:"isActive" gorm:"not null;default:true"`
	ArtifactStoredAt *time.Time `json:"-"`
}

func (code *QRCode) BeforeCreate(tx *gorm.DB) error {
	if (code.ProfileID == nil) == (code.VehicleID == nil) {
		return ErrInvalidQROwner
	}
	return code.BaseModel.BeforeCreate(tx)
}

func (code *QRCode) IsFleet() bool {
	return code.VehicleID != nil
}

func IssueOrReuseProfileToken(ctx context.Context, profileID uuid.UUID) (*QRCode, error) {
	return issueOrReuseToken(db.WithContext(ctx), QRCode{ProfileID: &profileID})
}

func IssueOrReuseVehicleToken(ctx context.Context, vehicleID uuid.UUID) (*QRCode, error) {
	return issueOrReuseToken(db.WithContext(ctx), QRCode{VehicleID: &vehicleID})
}

func FindQRCodeByToken(ctx context.Context, token string) (*QRCode, error) {
	code := QRCode{}
	err := db.WithContext(ctx).First(&code, "token = ?", token).Error
	if err != nil {
		return nil, err
	}

	return &code, nil
}

func FindQRCodeByProfile(ctx context.Context, profileID uuid.UUID) (*QRCode, error) {
	code := QRCode{}
	err := db.WithContext(ctx).First(&code, "profile_id = ?", profileID).Error
	if err != nil {
		return nil, err
	}

	return &code, nil
}

// SetProfileQRActive flips the active flag of a profile's code. Returns
// gorm.ErrRecordNotFound when the profile has no code yet.
func SetProfileQRActive(ctx context.Context, profileID uuid.UUID, active bool) error {
	res := db.WithContext(ctx).Model(&QRCode{}).Where("profile_id = ?", profileID).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TokensMissingArtifact lists active tokens whose image was never uploaded.
func TokensMissingArtifact(ctx context.Context, limit int) ([]string, error) {
	tokens := []string{}
	err := db.WithContext(ctx).Model(&QRCode{}).
		Where("is_active = ? AND artifact_stored_at IS NULL", true).
		Order("created_at").Limit(limit).Pluck("token", &tokens).Error

	return tokens, err
}

// ArtifactLedger records uploaded qr images against their token.
type ArtifactLedger struct{}

func (ArtifactLedger) MarkArtifactStored(ctx context.Context, token string) error {
	return db.WithContext(ctx).Model(&QRCode{}).Where("token = ?", token).
		Update("artifact_stored_at", time.Now().UTC()).Error
}

// FetchProfileQRCodes maps each profile id that has a code to that code.
func FetchProfileQRCodes(ctx context.Context, profileIDs []uuid.UUID) (map[uuid.UUID]QRCode, error) {
	codes := []QRCode{}
	result := make(map[uuid.UUID]QRCode)
	if len(profileIDs) == 0 {
		return result, nil
	}

	err := db.WithContext(ctx).Where("profile_id IN ?", profileIDs).Find(&codes).Error
	if err != nil {
		return nil, err
	}

	for _, code := range codes {
		result[*code.ProfileID] = code
	}
	return result, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// issueOrReuseToken returns the owner's existing code or creates one. owner
// must carry exactly one of ProfileID/VehicleID.
func issueOrReuseToken(tx *gorm.DB, owner QRCode) (*QRCode, error) {
	existing, err := findCodeByOwner(tx, owner)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return insertOrReuseCode(tx, owner)
}

// insertOrReuseCode inserts a fresh code for owner. When a concurrent request
// got there first the insert is skipped, so the surrounding transaction stays
// usable, and the winner's code is returned.
func insertOrReuseCode(tx *gorm.DB, owner QRCode) (*QRCode, error) {
	token, err := qr.GenerateToken()
	if err != nil {
		return nil, err
	}

	code := QRCode{ProfileID: owner.ProfileID, VehicleID: owner.VehicleID, Token: token, IsActive: true}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&code)
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		return findCodeByOwner(tx, owner)
	}
	return &code, nil
}

func findCodeByOwner(tx *gorm.DB, owner QRCode) (*QRCode, error) {
	code := QRCode{}
	var err error

	switch {
	case owner.ProfileID != nil && owner.VehicleID == nil:
		err = tx.First(&code, "profile_id = ?", *owner.ProfileID).Error
	case owner.VehicleID != nil && owner.ProfileID == nil:
		err = tx.First(&code, "vehicle_id = ?", *owner.VehicleID).Error
	default:
		return nil, ErrInvalidQROwner
	}

	if err != nil {
		return nil, err
	}
	return &code, nil
}
