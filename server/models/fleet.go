package models

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FleetVehicle struct {
	BaseModel
	OwnerProfileID uuid.UUID `json:"-" gorm:"type:uuid;index;not null"`
	VehicleNumber  string    `json:"vehicleNumber" gorm:"not null" validate:"required,max=30"`
	Label          string    `json:"label" validate:"max=100"`
	MakeModel      string    `json:"makeModel" validate:"max=100"`
}

// FleetDriver may be assigned to at most one vehicle, and a vehicle has at
// most one assigned driver.
type FleetDriver struct {
	BaseModel
	OwnerProfileID    uuid.UUID  `json:"-" gorm:"type:uuid;index;not null"`
	Name              string     `json:"name" gorm:"not null" validate:"required,max=100"`
	Phone             string     `json:"phone" validate:"max=20"`
	BloodGroup        string     `json:"bloodGroup" validate:"max=20"`
	Notes             string     `json:"notes" validate:"max=1000"`
	AssignedVehicleID *uuid.UUID `json:"assignedVehicleId" gorm:"type:uuid;index"`
}

func CreateFleetVehicle(ctx context.Context, vehicle *FleetVehicle) error {
	return db.WithContext(ctx).Create(vehicle).Error
}

func FetchFleetVehicles(ctx context.Context, ownerID uuid.UUID) ([]FleetVehicle, error) {
	vehicles := []FleetVehicle{}
	err := db.WithContext(ctx).Where("owner_profile_id = ?", ownerID).
		Order("created_at").Find(&vehicles).Error

	return vehicles, err
}

// FindFleetVehicle looks up a vehicle scoped to its owner.
func FindFleetVehicle(ctx context.Context, ownerID, vehicleID uuid.UUID) (*FleetVehicle, error) {
	vehicle := FleetVehicle{}
	err := db.WithContext(ctx).
		First(&vehicle, "id = ? AND owner_profile_id = ?", vehicleID, ownerID).Error
	if err != nil {
		return nil, err
	}

	return &vehicle, nil
}

func FindFleetVehicleByID(ctx context.Context, vehicleID uuid.UUID) (*FleetVehicle, error) {
	vehicle := FleetVehicle{}
	err := db.WithContext(ctx).First(&vehicle, "id = ?", vehicleID).Error
	if err != nil {
		return nil, err
	}

	return &vehicle, nil
}

// CreateFleetDriver stores a driver, taking over the vehicle it is assigned
// to if any.
func CreateFleetDriver(ctx context.Context, driver *FleetDriver) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vehicleID := driver.AssignedVehicleID
		driver.AssignedVehicleID = nil

		if err := tx.Create(driver).Error; err != nil {
			return err
		}

		if vehicleID == nil {
			return nil
		}
		return assignDriver(tx, driver, vehicleID)
	})
}

func FetchFleetDrivers(ctx context.Context, ownerID uuid.UUID) ([]FleetDriver, error) {
	drivers := []FleetDriver{}
	err := db.WithContext(ctx).Where("owner_profile_id = ?", ownerID).
		Order("created_at").Find(&drivers).Error

	return drivers, err
}

// AssignDriver moves a driver onto vehicleID, or unassigns them when
// vehicleID is nil. Whoever drove that vehicle before is unassigned.
func AssignDriver(ctx context.Context, ownerID, driverID uuid.UUID, vehicleID *uuid.UUID) (*FleetDriver, error) {
	driver := FleetDriver{}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&driver, "id = ? AND owner_profile_id = ?", driverID, ownerID).Error
		if err != nil {
			return err
		}
		return assignDriver(tx, &driver, vehicleID)
	})
	if err != nil {
		return nil, err
	}

	return &driver, nil
}

func DeleteFleetDriver(ctx context.Context, ownerID, driverID uuid.UUID) error {
	res := db.WithContext(ctx).Where("id = ? AND owner_profile_id = ?", driverID, ownerID).
		Delete(&FleetDriver{})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CurrentDriver returns nil when no driver is assigned to the vehicle.
func CurrentDriver(ctx context.Context, vehicleID uuid.UUID) (*FleetDriver, error) {
	driver := FleetDriver{}
	err := db.WithContext(ctx).First(&driver, "assigned_vehicle_id = ?", vehicleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &driver, nil
}

func assignDriver(tx *gorm.DB, driver *FleetDriver, vehicleID *uuid.UUID) error {
	if vehicleID != nil {
		// Vehicle must belong to the same fleet
		vehicle := FleetVehicle{}
		err := tx.First(&vehicle, "id = ? AND owner_profile_id = ?", *vehicleID, driver.OwnerProfileID).Error
		if err != nil {
			return err
		}

		err = tx.Model(&FleetDriver{}).
			Where("assigned_vehicle_id = ? AND id <> ?", *vehicleID, driver.ID).
			Update("assigned_vehicle_id", nil).Error
		if err != nil {
			return err
		}
	}

	driver.AssignedVehicleID = vehicleID
	return tx.Model(&FleetDriver{}).Where("id = ?", driver.ID).
		Update("assigned_vehicle_id", vehicleID).Error
}
