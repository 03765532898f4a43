// Package scan resolves a public QR token to what a first responder may see.
// Every response is built from a fixed set of fields; nothing from a model is
// serialized directly.
package scan

import (
	"context"
	"errors"

	"github.com/Daskott/kavach/server/logger"
	"github.com/Daskott/kavach/server/metrics"
	"github.com/Daskott/kavach/server/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const INACTIVE_MESSAGE = "QR is inactive. Contact the owner."

var logg = logger.NewLogger()

type Outcome int

const (
	NotFound Outcome = iota
	Inactive
	Personal
	Fleet
)

func (o Outcome) String() string {
	switch o {
	case Inactive:
		return "inactive"
	case Personal:
		return "personal"
	case Fleet:
		return "fleet"
	default:
		return "not_found"
	}
}

type Contact struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
	Phone    string `json:"phone"`
}

type PersonalDisclosure struct {
	Name              string    `json:"name"`
	Age               *int      `json:"age"`
	Language          string    `json:"language"`
	BloodGroup        string    `json:"bloodGroup"`
	Allergies         string    `json:"allergies"`
	MedicalConditions string    `json:"medicalConditions"`
	Medications       string    `json:"medications"`
	EmergencyNote     string    `json:"emergencyNote"`
	GuardianPhone     string    `json:"guardianPhone"`
	SecondaryPhone    string    `json:"secondaryPhone"`
	OrganDonor        bool      `json:"organDonor"`
	Contacts          []Contact `json:"contacts"`
}

type Driver struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	BloodGroup string `json:"bloodGroup"`
	Notes      string `json:"notes"`
}

type FleetDisclosure struct {
	VehicleNumber string  `json:"vehicleNumber"`
	Label         string  `json:"label"`
	MakeModel     string  `json:"makeModel"`
	OwnerName     string  `json:"ownerName"`
	Driver        *Driver `json:"driver"`
}

type Resolution struct {
	Outcome  Outcome
	Personal *PersonalDisclosure
	Fleet    *FleetDisclosure
}

// Visitor describes who scanned, for the scan log only.
type Visitor struct {
	IP        string
	UserAgent string
}

type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

func (r *Resolver) Resolve(ctx context.Context, token string, visitor Visitor) (*Resolution, error) {
	resolution, code, err := r.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	metrics.Scans.WithLabelValues(resolution.Outcome.String()).Inc()

	if resolution.Outcome == Personal || resolution.Outcome == Fleet {
		logScan(ctx, code, visitor)
	}

	return resolution, nil
}

func (r *Resolver) resolve(ctx context.Context, token string) (*Resolution, *models.QRCode, error) {
	notFound := &Resolution{Outcome: NotFound}
	if token == "" {
		return notFound, nil, nil
	}

	code, err := models.FindQRCodeByToken(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if !code.IsActive {
		return &Resolution{Outcome: Inactive}, code, nil
	}

	if code.IsFleet() {
		disclosure, err := fleetDisclosure(ctx, *code.VehicleID)
		if err != nil || disclosure == nil {
			return notFound, nil, err
		}
		return &Resolution{Outcome: Fleet, Fleet: disclosure}, code, nil
	}

	disclosure, err := personalDisclosure(ctx, *code.ProfileID)
	if err != nil || disclosure == nil {
		return notFound, nil, err
	}
	return &Resolution{Outcome: Personal, Personal: disclosure}, code, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// activatedProfile returns nil when the profile is missing or not activated.
func activatedProfile(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	profile, err := models.FindProfile(ctx, profileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !profile.IsPaid {
		return nil, nil
	}
	return profile, nil
}

func personalDisclosure(ctx context.Context, profileID uuid.UUID) (*PersonalDisclosure, error) {
	profile, err := activatedProfile(ctx, profileID)
	if err != nil || profile == nil {
		return nil, err
	}

	details, err := models.FindEmergencyDetails(ctx, profileID)
	if err != nil {
		return nil, err
	}

	contacts, err := models.FetchEmergencyContacts(ctx, profileID)
	if err != nil {
		return nil, err
	}

	disclosure := PersonalDisclosure{Name: profile.FullName, Contacts: []Contact{}}

	if details.Profile != nil {
		disclosure.Age = details.Profile.Age
		disclosure.Language = details.Profile.Language
		disclosure.BloodGroup = details.Profile.BloodGroup
		disclosure.GuardianPhone = details.Profile.GuardianPhone
		disclosure.SecondaryPhone = details.Profile.SecondaryPhone
		disclosure.OrganDonor = details.Profile.OrganDonor
	}

	if details.Medical != nil {
		disclosure.Allergies = details.Medical.Allergies
		disclosure.MedicalConditions = details.Medical.MedicalConditions
		disclosure.Medications = details.Medical.Medications
	}

	if details.Note != nil {
		disclosure.EmergencyNote = details.Note.Note
	}

	for _, contact := range contacts {
		disclosure.Contacts = append(disclosure.Contacts, Contact{
			Name:     contact.Name,
			Relation: contact.Relation,
			Phone:    contact.Phone,
		})
	}

	if disclosure.SecondaryPhone == "" && len(contacts) > 0 {
		disclosure.SecondaryPhone = contacts[0].Phone
	}

	return &disclosure, nil
}

func fleetDisclosure(ctx context.Context, vehicleID uuid.UUID) (*FleetDisclosure, error) {
	vehicle, err := models.FindFleetVehicleByID(ctx, vehicleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	owner, err := activatedProfile(ctx, vehicle.OwnerProfileID)
	if err != nil || owner == nil {
		return nil, err
	}

	disclosure := FleetDisclosure{
		VehicleNumber: vehicle.VehicleNumber,
		Label:         vehicle.Label,
		MakeModel:     vehicle.MakeModel,
		OwnerName:     owner.FullName,
	}

	driver, err := models.CurrentDriver(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	if driver != nil {
		disclosure.Driver = &Driver{
			Name:       driver.Name,
			Phone:      driver.Phone,
			BloodGroup: driver.BloodGroup,
			Notes:      driver.Notes,
		}
	}

	return &disclosure, nil
}

// logScan never fails the scan, a lost log row only costs analytics.
func logScan(ctx context.Context, code *models.QRCode, visitor Visitor) {
	err := models.AppendScanLog(ctx, &models.ScanLog{
		Token:     code.Token,
		ProfileID: code.ProfileID,
		VehicleID: code.VehicleID,
		IP:        visitor.IP,
		UserAgent: visitor.UserAgent,
	})
	if err != nil {
		logg.Errorf("unable to log scan for token %v: %v", code.Token, err)
	}
}
