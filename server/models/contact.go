package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const MAX_EMERGENCY_CONTACTS = 3

var ErrContactLimitReached = errors.New("a profile can have at most 3 emergency contacts")

type EmergencyContact struct {
	BaseModel
	ProfileID uuid.UUID `json:"-" gorm:"type:uuid;index;not null"`
	Name      string    `json:"name" validate:"required,max=100"`
	Relation  string    `json:"relation" validate:"max=50"`
	Phone     string    `json:"phone" validate:"required,max=20"`
}

func AddEmergencyContact(ctx context.Context, contact *EmergencyContact) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Touch the owning profile first so concurrent adds queue on its row
		res := tx.Model(&Profile{}).Where("id = ?", contact.ProfileID).Update("updated_at", time.Now().UTC())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var count int64
		err := tx.Model(&EmergencyContact{}).Where("profile_id = ?", contact.ProfileID).Count(&count).Error
		if err != nil {
			return err
		}
		if count >= MAX_EMERGENCY_CONTACTS {
			return ErrContactLimitReached
		}

		return tx.Create(contact).Error
	})
}

func FetchEmergencyContacts(ctx context.Context, profileID uuid.UUID) ([]EmergencyContact, error) {
	contacts := []EmergencyContact{}
	err := db.WithContext(ctx).Where("profile_id = ?", profileID).
		Order("created_at").Limit(MAX_EMERGENCY_CONTACTS).Find(&contacts).Error

	return contacts, err
}

func DeleteEmergencyContact(ctx context.Context, profileID, contactID uuid.UUID) error {
	res := db.WithContext(ctx).Where("id = ? AND profile_id = ?", contactID, profileID).
		Delete(&EmergencyContact{})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
