package models

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EmergencyProfile struct {
	BaseModel
	ProfileID      uuid.UUID `json:"-" gorm:"type:uuid;uniqueIndex;not null"`
	BloodGroup     string    `json:"bloodGroup"`
	GuardianPhone  string    `json:"guardianPhone"`
	SecondaryPhone string    `json:"secondaryPhone"`
	Age            *int      `json:"age"`
	Language       string    `json:"language"`
	OrganDonor     bool      `json:"organDonor" gorm:"not null;default:false"`
}

type MedicalInfo struct {
	BaseModel
	ProfileID         uuid.UUID `json:"-" gorm:"type:uuid;uniqueIndex;not null"`
	Allergies         string    `json:"allergies"`
	MedicalConditions string    `json:"medicalConditions"`
	Medications       string    `json:"medications"`
}

func (MedicalInfo) TableName() string {
	return "medical_info"
}

type EmergencyNote struct {
	BaseModel
	ProfileID uuid.UUID `json:"-" gorm:"type:uuid;uniqueIndex;not null"`
	Note      string    `json:"note"`
}

// EmergencyDetails groups the 1:1 disclosure records of a profile. Missing
// records are left nil.
type EmergencyDetails struct {
	Profile *EmergencyProfile `json:"emergencyProfile"`
	Medical *MedicalInfo      `json:"medicalInfo"`
	Note    *EmergencyNote    `json:"emergencyNote"`
}

// UpsertEmergencyDetails replaces all three records of a profile, last
// write wins.
func UpsertEmergencyDetails(ctx context.Context, profileID uuid.UUID, details EmergencyDetails) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if details.Profile != nil {
			details.Profile.ProfileID = profileID
			err := upsertByProfile(tx, details.Profile,
				"blood_group", "guardian_phone", "secondary_phone", "age", "language", "organ_donor")
			if err != nil {
				return err
			}
		}

		if details.Medical != nil {
			details.Medical.ProfileID = profileID
			err := upsertByProfile(tx, details.Medical, "allergies", "medical_conditions", "medications")
			if err != nil {
				return err
			}
		}

		if details.Note != nil {
			details.Note.ProfileID = profileID
			return upsertByProfile(tx, details.Note, "note")
		}

		return nil
	})
}

func FindEmergencyDetails(ctx context.Context, profileID uuid.UUID) (*EmergencyDetails, error) {
	details := EmergencyDetails{}
	tx := db.WithContext(ctx)

	emergencyProfile := EmergencyProfile{}
	if found, err := findByProfile(tx, &emergencyProfile, profileID); err != nil {
		return nil, err
	} else if found {
		details.Profile = &emergencyProfile
	}

	medical := MedicalInfo{}
	if found, err := findByProfile(tx, &medical, profileID); err != nil {
		return nil, err
	} else if found {
		details.Medical = &medical
	}

	note := EmergencyNote{}
	if found, err := findByProfile(tx, &note, profileID); err != nil {
		return nil, err
	} else if found {
		details.Note = &note
	}

	return &details, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func upsertByProfile(tx *gorm.DB, record interface{}, columns ...string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns(append(columns, "updated_at")),
	}).Create(record).Error
}

func findByProfile(tx *gorm.DB, record interface{}, profileID uuid.UUID) (bool, error) {
	err := tx.First(record, "profile_id = ?", profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}
