package server

import (
	"net/http"

	"github.com/Daskott/kavach/server/apperr"
	"github.com/Daskott/kavach/server/models"
	"github.com/google/uuid"
)

type qrStatusRequest struct {
	ProfileID string `json:"profileId" validate:"required,uuid"`
	Active    *bool  `json:"active" validate:"required"`
}

type adminUser struct {
	*models.Profile
	QR *models.QRCode `json:"qr"`
}

func fetchUsers(rw http.ResponseWriter, r *http.Request) {
	profiles, paging, err := models.FetchProfiles(r.Context(), pageParam(r))
	if err != nil {
		writeError(rw, err)
		return
	}

	ids := make([]uuid.UUID, 0, len(profiles))
	for _, profile := range profiles {
		ids = append(ids, profile.ID)
	}

	codes, err := models.FetchProfileQRCodes(r.Context(), ids)
	if err != nil {
		writeError(rw, err)
		return
	}

	users := make([]adminUser, 0, len(profiles))
	for i := range profiles {
		user := adminUser{Profile: &profiles[i]}
		if code, ok := codes[profiles[i].ID]; ok {
			user.QR = &code
		}
		users = append(users, user)
	}

	writeData(rw, map[string]interface{}{"users": users, "paging": paging})
}

func disableQR(rw http.ResponseWriter, r *http.Request) {
	setQRActive(rw, r, false)
}

func enableQR(rw http.ResponseWriter, r *http.Request) {
	setQRActive(rw, r, true)
}

func updateQRStatus(rw http.ResponseWriter, r *http.Request) {
	data := qrStatusRequest{}
	if err := decodeAndValidate(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	profileID, err := uuid.Parse(data.ProfileID)
	if err != nil {
		writeError(rw, apperr.Wrap(apperr.Validation, err, "invalid profileId"))
		return
	}

	updateProfileQR(rw, r, profileID, *data.Active)
}

func fetchStats(rw http.ResponseWriter, r *http.Request) {
	stats, err := models.CurrentAdminStats(r.Context())
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, stats)
}

func fetchJobs(rw http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !models.JobStatusNameMap[status] {
		writeError(rw, apperr.New(apperr.Validation, "invalid job status '%v'", status))
		return
	}

	jobs, paging, err := models.FetchJobs(status, pageParam(r))
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, map[string]interface{}{"jobs": jobs, "paging": paging})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func setQRActive(rw http.ResponseWriter, r *http.Request, active bool) {
	profileID, err := pathUUID(r, "id")
	if err != nil {
		writeError(rw, err)
		return
	}

	updateProfileQR(rw, r, profileID, active)
}

func updateProfileQR(rw http.ResponseWriter, r *http.Request, profileID uuid.UUID, active bool) {
	err := models.SetProfileQRActive(r.Context(), profileID, active)
	if err != nil {
		writeError(rw, notFoundOr(err, "User has no QR or user not found"))
		return
	}

	logg.Infof("QR of profile %v set active=%v by admin %v", profileID, active, requestIdentity(r).Admin.ID)

	writeData(rw, map[string]interface{}{"profileId": profileID, "isActive": active})
}
