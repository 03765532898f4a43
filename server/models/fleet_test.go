package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignDriverIsExclusivePerVehicle(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	owner := createTestProfile(t, "Fleet Co")

	truck := &FleetVehicle{OwnerProfileID: owner.ID, VehicleNumber: "KA01AB1234"}
	require.Nil(t, CreateFleetVehicle(ctx, truck))

	ravi := &FleetDriver{OwnerProfileID: owner.ID, Name: "Ravi", AssignedVehicleID: &truck.ID}
	require.Nil(t, CreateFleetDriver(ctx, ravi))

	current, err := CurrentDriver(ctx, truck.ID)
	require.Nil(t, err)
	assert.Equal(t, ravi.ID, current.ID)

	// A second driver takes the vehicle over
	sunil := &FleetDriver{OwnerProfileID: owner.ID, Name: "Sunil"}
	require.Nil(t, CreateFleetDriver(ctx, sunil))

	_, err = AssignDriver(ctx, owner.ID, sunil.ID, &truck.ID)
	require.Nil(t, err)

	current, err = CurrentDriver(ctx, truck.ID)
	require.Nil(t, err)
	assert.Equal(t, sunil.ID, current.ID)

	drivers, err := FetchFleetDrivers(ctx, owner.ID)
	require.Nil(t, err)
	for _, driver := range drivers {
		if driver.ID == ravi.ID {
			assert.Nil(t, driver.AssignedVehicleID, "previous driver should be unassigned")
		}
	}

	// Unassign
	_, err = AssignDriver(ctx, owner.ID, sunil.ID, nil)
	require.Nil(t, err)
	current, err = CurrentDriver(ctx, truck.ID)
	assert.Nil(t, err)
	assert.Nil(t, current)
}

func TestAssignDriverToAnotherFleetsVehicle(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	owner := createTestProfile(t, "Fleet Co")
	rival := createTestProfile(t, "Rival Co")

	rivalVan := &FleetVehicle{OwnerProfileID: rival.ID, VehicleNumber: "MH02CD5678"}
	require.Nil(t, CreateFleetVehicle(ctx, rivalVan))

	driver := &FleetDriver{OwnerProfileID: owner.ID, Name: "Ravi"}
	require.Nil(t, CreateFleetDriver(ctx, driver))

	_, err := AssignDriver(ctx, owner.ID, driver.ID, &rivalVan.ID)
	assert.True(t, IsRecordNotFound(err))
}

func TestIssueOrReuseVehicleToken(t *testing.T) {
	InitializeTestDb()
	ctx := context.Background()

	owner := createTestProfile(t, "Fleet Co")
	truck := &FleetVehicle{OwnerProfileID: owner.ID, VehicleNumber: "KA01AB1234"}
	require.Nil(t, CreateFleetVehicle(ctx, truck))

	first, err := IssueOrReuseVehicleToken(ctx, truck.ID)
	require.Nil(t, err)
	assert.True(t, first.IsFleet())

	second, err := IssueOrReuseVehicleToken(ctx, truck.ID)
	require.Nil(t, err)
	assert.Equal(t, first.Token, second.Token)
}
