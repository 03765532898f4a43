package scan

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/Daskott/kavach/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var visitor = Visitor{IP: "203.0.113.7", UserAgent: strings.Repeat("a", 600)}

func newActivatedProfile(t *testing.T, name string) (*models.Profile, string) {
	t.Helper()
	ctx := context.Background()

	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
	profile := &models.Profile{FullName: name, Email: &email, Mobile: "+919822222222"}
	require.Nil(t, models.CreateProfile(ctx, profile, "hunter22"))

	result, err := models.CompleteActivation(ctx, profile.ID, models.FreeActivation)
	require.Nil(t, err)
	return profile, result.Token
}

func jsonKeys(t *testing.T, v interface{}) []string {
	t.Helper()

	body, err := json.Marshal(v)
	require.Nil(t, err)

	fields := map[string]interface{}{}
	require.Nil(t, json.Unmarshal(body, &fields))

	keys := []string{}
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func TestResolvePersonal(t *testing.T) {
	models.InitializeTestDb()
	ctx := context.Background()
	profile, token := newActivatedProfile(t, "Meera Nair")

	age := 34
	err := models.UpsertEmergencyDetails(ctx, profile.ID, models.EmergencyDetails{
		Profile: &models.EmergencyProfile{BloodGroup: "O+", GuardianPhone: "+919833333333", Age: &age, Language: "Malayalam", OrganDonor: true},
		Medical: &models.MedicalInfo{Allergies: "Penicillin", MedicalConditions: "Asthma", Medications: "Salbutamol"},
		Note:    &models.EmergencyNote{Note: "Inhaler in left pocket"},
	})
	require.Nil(t, err)
	require.Nil(t, models.AddEmergencyContact(ctx, &models.EmergencyContact{ProfileID: profile.ID, Name: "Arun", Relation: "Brother", Phone: "+919844444444"}))

	resolution, err := NewResolver().Resolve(ctx, token, visitor)
	require.Nil(t, err)
	require.Equal(t, Personal, resolution.Outcome)

	disclosure := resolution.Personal
	assert.Equal(t, "Meera Nair", disclosure.Name)
	assert.Equal(t, 34, *disclosure.Age)
	assert.Equal(t, "O+", disclosure.BloodGroup)
	assert.Equal(t, "Penicillin", disclosure.Allergies)
	assert.Equal(t, "Inhaler in left pocket", disclosure.EmergencyNote)
	assert.True(t, disclosure.OrganDonor)

	// No secondary phone on record, first contact is used
	assert.Equal(t, "+919844444444", disclosure.SecondaryPhone)
	require.Len(t, disclosure.Contacts, 1)
	assert.Equal(t, "Brother", disclosure.Contacts[0].Relation)

	assert.Equal(t, []string{
		"age", "allergies", "bloodGroup", "contacts", "emergencyNote", "guardianPhone",
		"language", "medicalConditions", "medications", "name", "organDonor", "secondaryPhone",
	}, jsonKeys(t, disclosure))

	body, err := json.Marshal(disclosure)
	require.Nil(t, err)
	assert.NotContains(t, string(body), "meera.nair@example.com")
	assert.NotContains(t, string(body), "+919822222222")
	assert.NotContains(t, string(body), profile.ID.String())

	count, err := models.CountScanLogs(ctx, token)
	require.Nil(t, err)
	assert.Equal(t, int64(1), count)
}

func TestResolveUnknownToken(t *testing.T) {
	models.InitializeTestDb()

	resolution, err := NewResolver().Resolve(context.Background(), "does-not-exist", visitor)
	require.Nil(t, err)
	assert.Equal(t, NotFound, resolution.Outcome)
	assert.Nil(t, resolution.Personal)
}

func TestResolveNotActivated(t *testing.T) {
	models.InitializeTestDb()
	ctx := context.Background()

	profile := &models.Profile{FullName: "Not Yet"}
	require.Nil(t, models.CreateProfile(ctx, profile, ""))

	code, err := models.IssueOrReuseProfileToken(ctx, profile.ID)
	require.Nil(t, err)

	resolution, err := NewResolver().Resolve(ctx, code.Token, visitor)
	require.Nil(t, err)
	assert.Equal(t, NotFound, resolution.Outcome)

	count, err := models.CountScanLogs(ctx, code.Token)
	require.Nil(t, err)
	assert.Equal(t, int64(0), count)
}

func TestResolveInactive(t *testing.T) {
	models.InitializeTestDb()
	ctx := context.Background()
	profile, token := newActivatedProfile(t, "Dev Patel")

	require.Nil(t, models.SetProfileQRActive(ctx, profile.ID, false))

	resolution, err := NewResolver().Resolve(ctx, token, visitor)
	require.Nil(t, err)
	assert.Equal(t, Inactive, resolution.Outcome)
	assert.Nil(t, resolution.Personal)
	assert.Nil(t, resolution.Fleet)
}

func TestResolveFleet(t *testing.T) {
	models.InitializeTestDb()
	ctx := context.Background()
	owner, _ := newActivatedProfile(t, "Speedy Logistics")

	vehicle := &models.FleetVehicle{OwnerProfileID: owner.ID, VehicleNumber: "KA01AB1234", Label: "Van 3", MakeModel: "Tata Ace"}
	require.Nil(t, models.CreateFleetVehicle(ctx, vehicle))

	code, err := models.IssueOrReuseVehicleToken(ctx, vehicle.ID)
	require.Nil(t, err)

	resolution, err := NewResolver().Resolve(ctx, code.Token, visitor)
	require.Nil(t, err)
	require.Equal(t, Fleet, resolution.Outcome)
	assert.Nil(t, resolution.Fleet.Driver)
	assert.Equal(t, "Speedy Logistics", resolution.Fleet.OwnerName)

	driver := &models.FleetDriver{OwnerProfileID: owner.ID, Name: "Suresh", Phone: "+919855555555", BloodGroup: "B+"}
	require.Nil(t, models.CreateFleetDriver(ctx, driver))
	_, err = models.AssignDriver(ctx, owner.ID, driver.ID, &vehicle.ID)
	require.Nil(t, err)

	resolution, err = NewResolver().Resolve(ctx, code.Token, visitor)
	require.Nil(t, err)
	require.NotNil(t, resolution.Fleet.Driver)
	assert.Equal(t, "Suresh", resolution.Fleet.Driver.Name)

	assert.Equal(t, []string{"driver", "label", "makeModel", "ownerName", "vehicleNumber"}, jsonKeys(t, resolution.Fleet))
	assert.Equal(t, []string{"bloodGroup", "name", "notes", "phone"}, jsonKeys(t, resolution.Fleet.Driver))

	count, err := models.CountScanLogs(ctx, code.Token)
	require.Nil(t, err)
	assert.Equal(t, int64(2), count)
}

func TestResolveFleetVehicleOfUnknownOwner(t *testing.T) {
	models.InitializeTestDb()
	ctx := context.Background()

	vehicle := &models.FleetVehicle{OwnerProfileID: uuid.New(), VehicleNumber: "MH02CD5678"}
	require.Nil(t, models.CreateFleetVehicle(ctx, vehicle))

	code, err := models.IssueOrReuseVehicleToken(ctx, vehicle.ID)
	require.Nil(t, err)

	resolution, err := NewResolver().Resolve(ctx, code.Token, visitor)
	require.Nil(t, err)
	assert.Equal(t, NotFound, resolution.Outcome)
}
