package server

import (
	"net/http"

	"github.com/Daskott/kavach/server/apperr"
	"github.com/Daskott/kavach/server/models"
	"github.com/google/uuid"
)

type assignDriverRequest struct {
	VehicleID *string `json:"vehicleId"`
}

type vehicleQRCode struct {
	VehicleID     uuid.UUID `json:"vehicleId"`
	VehicleNumber string    `json:"vehicleNumber"`
	qrCodeResponse
}

func fetchVehicles(rw http.ResponseWriter, r *http.Request) {
	vehicles, err := models.FetchFleetVehicles(r.Context(), requestIdentity(r).Profile.ID)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, vehicles)
}

func createVehicle(rw http.ResponseWriter, r *http.Request) {
	vehicle := models.FleetVehicle{}
	if err := decodeAndValidate(r, &vehicle); err != nil {
		writeError(rw, err)
		return
	}
	vehicle.OwnerProfileID = requestIdentity(r).Profile.ID

	if err := models.CreateFleetVehicle(r.Context(), &vehicle); err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: vehicle}, http.StatusCreated)
}

func (s *Server) issueVehicleQRCode(rw http.ResponseWriter, r *http.Request) {
	owner := requestIdentity(r).Profile
	if !owner.IsPaid {
		writeError(rw, apperr.New(apperr.PaymentRequired, "Activate your profile to issue fleet QR codes"))
		return
	}

	vehicleID, err := pathUUID(r, "id")
	if err != nil {
		writeError(rw, err)
		return
	}

	vehicle, err := models.FindFleetVehicle(r.Context(), owner.ID, vehicleID)
	if err != nil {
		writeError(rw, notFoundOr(err, "Vehicle not found"))
		return
	}

	code, err := s.issueVehicleCode(r, vehicle)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, code)
}

// issueFleetQRCodes issues a code for every vehicle of the fleet that has
// none yet, reusing existing ones.
func (s *Server) issueFleetQRCodes(rw http.ResponseWriter, r *http.Request) {
	owner := requestIdentity(r).Profile
	if !owner.IsPaid {
		writeError(rw, apperr.New(apperr.PaymentRequired, "Activate your profile to issue fleet QR codes"))
		return
	}

	vehicles, err := models.FetchFleetVehicles(r.Context(), owner.ID)
	if err != nil {
		writeError(rw, err)
		return
	}

	codes := make([]vehicleQRCode, 0, len(vehicles))
	for i := range vehicles {
		code, err := s.issueVehicleCode(r, &vehicles[i])
		if err != nil {
			writeError(rw, err)
			return
		}
		codes = append(codes, *code)
	}

	writeData(rw, codes)
}

func fetchDrivers(rw http.ResponseWriter, r *http.Request) {
	drivers, err := models.FetchFleetDrivers(r.Context(), requestIdentity(r).Profile.ID)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, drivers)
}

func createDriver(rw http.ResponseWriter, r *http.Request) {
	driver := models.FleetDriver{}
	if err := decodeAndValidate(r, &driver); err != nil {
		writeError(rw, err)
		return
	}
	driver.OwnerProfileID = requestIdentity(r).Profile.ID

	if err := models.CreateFleetDriver(r.Context(), &driver); err != nil {
		writeError(rw, notFoundOr(err, "Vehicle not found"))
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: driver}, http.StatusCreated)
}

func assignDriver(rw http.ResponseWriter, r *http.Request) {
	driverID, err := pathUUID(r, "id")
	if err != nil {
		writeError(rw, err)
		return
	}

	data := assignDriverRequest{}
	if err := decodeAndValidate(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	var vehicleID *uuid.UUID
	if data.VehicleID != nil {
		id, err := uuid.Parse(*data.VehicleID)
		if err != nil {
			writeError(rw, apperr.Wrap(apperr.Validation, err, "invalid vehicleId"))
			return
		}
		vehicleID = &id
	}

	driver, err := models.AssignDriver(r.Context(), requestIdentity(r).Profile.ID, driverID, vehicleID)
	if err != nil {
		writeError(rw, notFoundOr(err, "Driver or vehicle not found"))
		return
	}

	writeData(rw, driver)
}

func deleteDriver(rw http.ResponseWriter, r *http.Request) {
	driverID, err := pathUUID(r, "id")
	if err != nil {
		writeError(rw, err)
		return
	}

	err = models.DeleteFleetDriver(r.Context(), requestIdentity(r).Profile.ID, driverID)
	if err != nil {
		writeError(rw, notFoundOr(err, "Driver not found"))
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (s *Server) issueVehicleCode(r *http.Request, vehicle *models.FleetVehicle) (*vehicleQRCode, error) {
	code, err := models.IssueOrReuseVehicleToken(r.Context(), vehicle.ID)
	if err != nil {
		return nil, err
	}

	s.activation.EnsureArtifact(r.Context(), code.Token, code.ArtifactStoredAt)

	return &vehicleQRCode{
		VehicleID:      vehicle.ID,
		VehicleNumber:  vehicle.VehicleNumber,
		qrCodeResponse: s.qrCodeResponse(code),
	}, nil
}
