package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertEmergencyDetailsLastWriteWins(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	profile := createTestProfile(t, "Nisha Menon")
	age := 34

	err := UpsertEmergencyDetails(ctx, profile.ID, EmergencyDetails{
		Profile: &EmergencyProfile{BloodGroup: "O+", Age: &age, GuardianPhone: "+919811111111"},
		Medical: &MedicalInfo{Allergies: "penicillin"},
		Note:    &EmergencyNote{Note: "diabetic"},
	})
	require.Nil(t, err)

	err = UpsertEmergencyDetails(ctx, profile.ID, EmergencyDetails{
		Profile: &EmergencyProfile{BloodGroup: "B-", OrganDonor: true},
		Medical: &MedicalInfo{Allergies: "peanuts", Medications: "insulin"},
	})
	require.Nil(t, err)

	details, err := FindEmergencyDetails(ctx, profile.ID)
	require.Nil(t, err)
	assert.Equal(t, "B-", details.Profile.BloodGroup)
	assert.True(t, details.Profile.OrganDonor)
	assert.Nil(t, details.Profile.Age)
	assert.Equal(t, "", details.Profile.GuardianPhone)
	assert.Equal(t, "peanuts", details.Medical.Allergies)
	assert.Equal(t, "insulin", details.Medical.Medications)
	assert.Equal(t, "diabetic", details.Note.Note, "omitted records are left alone")

	var rows int64
	db.Model(&EmergencyProfile{}).Where("profile_id = ?", profile.ID).Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestFindEmergencyDetailsMissing(t *testing.T) {
	InitializeTestDb()

	profile := createTestProfile(t, "Nisha Menon")

	details, err := FindEmergencyDetails(context.Background(), profile.ID)
	require.Nil(t, err)
	assert.Nil(t, details.Profile)
	assert.Nil(t, details.Medical)
	assert.Nil(t, details.Note)
}

func TestEmergencyContactLimit(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	profile := createTestProfile(t, "Nisha Menon")

	for i := 0; i < MAX_EMERGENCY_CONTACTS; i++ {
		err := AddEmergencyContact(ctx, &EmergencyContact{ProfileID: profile.ID, Name: "contact", Phone: "+91980000000"})
		require.Nil(t, err)
	}

	err := AddEmergencyContact(ctx, &EmergencyContact{ProfileID: profile.ID, Name: "one too many", Phone: "+1"})
	assert.ErrorIs(t, err, ErrContactLimitReached)

	contacts, err := FetchEmergencyContacts(ctx, profile.ID)
	require.Nil(t, err)
	assert.Len(t, contacts, MAX_EMERGENCY_CONTACTS)

	// Freeing a slot allows a new contact
	require.Nil(t, DeleteEmergencyContact(ctx, profile.ID, contacts[0].ID))
	err = AddEmergencyContact(ctx, &EmergencyContact{ProfileID: profile.ID, Name: "replacement", Phone: "+1"})
	assert.Nil(t, err)
}

func TestDeleteEmergencyContactOfAnotherProfile(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	owner := createTestProfile(t, "owner")
	other := createTestProfile(t, "other")

	contact := &EmergencyContact{ProfileID: owner.ID, Name: "mum", Phone: "+1"}
	require.Nil(t, AddEmergencyContact(ctx, contact))

	err := DeleteEmergencyContact(ctx, other.ID, contact.ID)
	assert.True(t, IsRecordNotFound(err))
}
