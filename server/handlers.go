package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Daskott/kavach/server/apperr"
	"github.com/Daskott/kavach/server/auth"
	"github.com/Daskott/kavach/server/auth/key"
	"github.com/Daskott/kavach/server/models"
	"github.com/Daskott/kavach/server/qr"
	"github.com/Daskott/kavach/server/scan"
	"github.com/Daskott/kavach/server/twilio"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,password"`
	Mobile   string `json:"mobile" validate:"required,max=20,mobile"`
}

type logInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type otpRequest struct {
	Mobile string `json:"mobile" validate:"required,mobile"`
	OTP    string `json:"otp" validate:"omitempty,numeric,len=6"`
}

type updateProfileRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,min=1,max=200"`
	Mobile   *string `json:"mobile" validate:"omitempty,mobile"`
}

type emergencyProfileRequest struct {
	BloodGroup        string `json:"bloodGroup" validate:"max=20"`
	Allergies         string `json:"allergies" validate:"max=2000"`
	MedicalConditions string `json:"medicalConditions" validate:"max=2000"`
	Medications       string `json:"medications" validate:"max=2000"`
	GuardianPhone     string `json:"guardianPhone" validate:"max=20"`
	SecondaryPhone    string `json:"secondaryPhone" validate:"max=20"`
	EmergencyNote     string `json:"emergencyNote" validate:"max=1000"`
	Age               *int   `json:"age" validate:"omitempty,min=0,max=150"`
	Language          string `json:"language" validate:"max=50"`
	OrganDonor        bool   `json:"organDonor"`
}

type createOrderRequest struct {
	AmountPaise int64 `json:"amountPaise"`
}

type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type sessionResponse struct {
	Token     string      `json:"token"`
	ExpiresIn string      `json:"expiresIn"`
	User      interface{} `json:"user"`
}

type scanResponse struct {
	Success  bool        `json:"success"`
	Inactive bool        `json:"inactive,omitempty"`
	Message  string      `json:"message,omitempty"`
	Type     string      `json:"type,omitempty"`
	Data     interface{} `json:"data"`
}

type qrCodeResponse struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	ImageURL string `json:"imageUrl"`
	IsActive bool   `json:"isActive"`
}

func health(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")

	if err := models.Ping(r.Context()); err != nil {
		writeError(rw, apperr.Wrap(apperr.Unavailable, err, "database unavailable"))
		return
	}

	writeData(rw, map[string]string{"status": "ok"})
}

func (s *Server) jwks(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")

	publicJWK, err := s.keyPair.JWK()
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, key.ExportJWKAsJWKS(publicJWK), http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Auth
// --------------------------------------------------------------------------------//

func (s *Server) register(rw http.ResponseWriter, r *http.Request) {
	data := registerRequest{}
	if err := decodeAndValidate(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	email := data.Email
	profile := models.Profile{FullName: strings.TrimSpace(data.Name), Email: &email, Mobile: strings.TrimSpace(data.Mobile)}

	err := models.CreateProfile(r.Context(), &profile, data.Password)
	if errors.Is(err, models.ErrDuplicateEmail) {
		writeError(rw, apperr.Wrap(apperr.Conflict, err, "Email already registered"))
		return
	}
	if err != nil {
		writeError(rw, err)
		return
	}

	s.writeSession(rw, &profile, http.StatusCreated)
}

func (s *Server) logIn(rw http.ResponseWriter, r *http.Request) {
	data := logInRequest{}
	if err := decodeAndValidate(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	profile, err := models.FindProfileByEmail(r.Context(), data.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(rw, err)
		return
	}

	if profile == nil || !profile.CheckPassword(data.Password) {
		writeError(rw, apperr.New(apperr.Authentication, "Invalid email or password"))
		return
	}

	s.writeSession(rw, profile, http.StatusOK)
}

func (s *Server) adminLogIn(rw http.ResponseWriter, r *http.Request) {
	data := logInRequest{}
	if err := decodeAndValidate(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	admin, err := models.FindActiveAdminByEmail(r.Context(), data.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(rw, err)
		return
	}

	if admin == nil || !admin.CheckPassword(data.Password) {
		writeError(rw, apperr.New(apperr.Authentication, "Invalid credentials"))
		return
	}

	token, err := auth.EncodeJWT(auth.NewClaims(s.config.Kavach.BaseURL, admin.ID.String(), admin.Email, "", true), s.keyPair)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, sessionResponse{Token: token, ExpiresIn: auth.ADMIN_TOKEN_TTL.String(), User: admin})
}

func (s *Server) requestOTP(rw http.ResponseWriter, r *http.Request) {
	data := otpRequest{}
	if err := decodeAndValidate(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	otp, err := models.CreateMobileVerification(r.Context(), data.Mobile)
	if errors.Is(err, models.ErrTooManyOTPRequests) {
		writeError(rw, apperr.Wrap(apperr.RateLimited, err, err.Error()))
		return
	}
	if err != nil {
		writeError(rw, err)
		return
	}

	if err := s.sms.SendMessage(data.Mobile, twilio.OTPMessage(otp)); err != nil {
		writeError(rw, apperr.Wrap(apperr.Upstream, err, "Unable to send OTP"))
		return
	}

	writeData(rw, map[string]string{"message": "OTP sent"})
}

func verifyOTP(rw http.ResponseWriter, r *http.Request) {
	data := otpRequest{}
	if err := decodeAndValidate(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	if data.OTP == "" {
		writeError(rw, apperr.New(apperr.Validation, "OTP is required"))
		return
	}

	err := models.VerifyMobileOTP(r.Context(), data.Mobile, data.OTP)
	switch {
	case errors.Is(err, models.ErrOTPNotFound), errors.Is(err, models.ErrOTPInvalid):
		writeError(rw, apperr.Wrap(apperr.Validation, err, err.Error()))
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeError(rw, apperr.Wrap(apperr.NotFound, err, "No account uses this mobile number"))
		return
	case err != nil:
		writeError(rw, err)
		return
	}

	writeData(rw, map[string]bool{"verified": true})
}

// ---------------------------------------------------------------------------------//
// Owner data
// --------------------------------------------------------------------------------//

func findMe(rw http.ResponseWriter, r *http.Request) {
	profile := requestIdentity(r).Profile

	data := map[string]interface{}{"profile": profile}

	code, err := models.FindQRCodeByProfile(r.Context(), profile.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(rw, err)
		return
	}
	if code != nil {
		data["qr"] = code
	}

	writeData(rw, data)
}

func updateMe(rw http.ResponseWriter, r *http.Request) {
	profile := requestIdentity(r).Profile

	data := updateProfileRequest{}
	if err := decodeAndValidate(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	update := make(map[string]interface{})
	if data.FullName != nil {
		update["full_name"] = strings.TrimSpace(*data.FullName)
	}
	if data.Mobile != nil {
		update["mobile"] = strings.TrimSpace(*data.Mobile)
	}

	if len(update) == 0 {
		writeError(rw, apperr.New(apperr.Validation, "valid fields required"))
		return
	}

	if err := profile.Update(r.Context(), update); err != nil {
		writeError(rw, err)
		return
	}

	updated, err := models.FindProfile(r.Context(), profile.ID)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, map[string]interface{}{"profile": updated})
}

func findEmergencyProfile(rw http.ResponseWriter, r *http.Request) {
	profile := requestIdentity(r).Profile

	details, err := models.FindEmergencyDetails(r.Context(), profile.ID)
	if err != nil {
		writeError(rw, err)
		return
	}

	data := emergencyProfileRequest{}
	if details.Profile != nil {
		data.BloodGroup = details.Profile.BloodGroup
		data.GuardianPhone = details.Profile.GuardianPhone
		data.SecondaryPhone = details.Profile.SecondaryPhone
		data.Age = details.Profile.Age
		data.Language = details.Profile.Language
		data.OrganDonor = details.Profile.OrganDonor
	}
	if details.Medical != nil {
		data.Allergies = details.Medical.Allergies
		data.MedicalConditions = details.Medical.MedicalConditions
		data.Medications = details.Medical.Medications
	}
	if details.Note != nil {
		data.EmergencyNote = details.Note.Note
	}

	writeData(rw, data)
}

func updateEmergencyProfile(rw http.ResponseWriter, r *http.Request) {
	profile := requestIdentity(r).Profile

	data := emergencyProfileRequest{}
	if err := decodeAndValidate(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	err := models.UpsertEmergencyDetails(r.Context(), profile.ID, models.EmergencyDetails{
		Profile: &models.EmergencyProfile{
			BloodGroup:     strings.TrimSpace(data.BloodGroup),
			GuardianPhone:  strings.TrimSpace(data.GuardianPhone),
			SecondaryPhone: strings.TrimSpace(data.SecondaryPhone),
			Age:            data.Age,
			Language:       strings.TrimSpace(data.Language),
			OrganDonor:     data.OrganDonor,
		},
		Medical: &models.MedicalInfo{
			Allergies:         strings.TrimSpace(data.Allergies),
			MedicalConditions: strings.TrimSpace(data.MedicalConditions),
			Medications:       strings.TrimSpace(data.Medications),
		},
		Note: &models.EmergencyNote{Note: strings.TrimSpace(data.EmergencyNote)},
	})
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, data)
}

func fetchContacts(rw http.ResponseWriter, r *http.Request) {
	contacts, err := models.FetchEmergencyContacts(r.Context(), requestIdentity(r).Profile.ID)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeData(rw, contacts)
}

func createContact(rw http.ResponseWriter, r *http.Request) {
	contact := models.EmergencyContact{}
	if err := decodeAndValidate(r, &contact); err != nil {
		writeError(rw, err)
		return
	}
	contact.ProfileID = requestIdentity(r).Profile.ID

	err := models.AddEmergencyContact(r.Context(), &contact)
	if errors.Is(err, models.ErrContactLimitReached) {
		writeError(rw, apperr.Wrap(apperr.Validation, err, err.Error()))
		return
	}
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contact}, http.StatusCreated)
}

func deleteContact(rw http.ResponseWriter, r *http.Request) {
	contactID, err := pathUUID(r, "id")
	if err != nil {
		writeError(rw, err)
		return
	}

	err = models.DeleteEmergencyContact(r.Context(), requestIdentity(r).Profile.ID, contactID)
	if err != nil {
		writeError(rw, notFoundOr(err, "Contact not found"))
		return
	}

	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Activation
// --------------------------------------------------------------------------------//

func (s *Server) activate(rw http.ResponseWriter, r *http.Request) {
	result, err := s.activation.Activate(r.Context(), requestIdentity(r).Profile.ID)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, result, http.StatusOK)
}

func (s *Server) quote(rw http.ResponseWriter, r *http.Request) {
	quote, err := s.activation.Quote(r.Context(), requestIdentity(r).Profile.ID)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, quote, http.StatusOK)
}

func (s *Server) createOrder(rw http.ResponseWriter, r *http.Request) {
	data := createOrderRequest{}
	if err := decodeAndValidate(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	order, err := s.activation.CreateOrder(r.Context(), requestIdentity(r).Profile.ID, data.AmountPaise)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, order, http.StatusOK)
}

func (s *Server) verifyPayment(rw http.ResponseWriter, r *http.Request) {
	data := verifyPaymentRequest{}
	if err := decodeAndValidate(r, &data); err != nil {
		writeError(rw, err)
		return
	}

	result, err := s.activation.VerifyAndActivate(r.Context(), requestIdentity(r).Profile.ID,
		data.OrderID, data.PaymentID, data.Signature)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, result, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// QR codes
// --------------------------------------------------------------------------------//

func (s *Server) findOrCreateQR(rw http.ResponseWriter, r *http.Request) {
	profile := requestIdentity(r).Profile
	if !profile.IsPaid {
		writeError(rw, apperr.New(apperr.PaymentRequired, "Activate your profile to get a QR code"))
		return
	}

	code, err := models.IssueOrReuseProfileToken(r.Context(), profile.ID)
	if err != nil {
		writeError(rw, err)
		return
	}

	s.activation.EnsureArtifact(r.Context(), code.Token, code.ArtifactStoredAt)

	writeData(rw, s.qrCodeResponse(code))
}

// downloadQR streams the image for a token the caller owns, directly or
// through their fleet. Admins may fetch any image.
func (s *Server) downloadQR(rw http.ResponseWriter, r *http.Request) {
	identity := requestIdentity(r)
	token := mux.Vars(r)["token"]

	code, err := models.FindQRCodeByToken(r.Context(), token)
	if err != nil {
		writeError(rw, notFoundOr(err, "QR not found"))
		return
	}

	allowed, err := canAccessQRCode(r, identity, code)
	if err != nil {
		writeError(rw, err)
		return
	}
	if !allowed {
		writeError(rw, apperr.New(apperr.NotFound, "QR not found"))
		return
	}

	png, err := s.producer.Fetch(r.Context(), code.Token)
	if err != nil {
		writeError(rw, apperr.Wrap(apperr.Upstream, err, "Unable to load QR image"))
		return
	}

	rw.Header().Set("Content-Type", qr.IMAGE_CONTENT_TYPE)
	rw.Header().Set("Cache-Control", "private, max-age=3600")
	rw.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="kavach-%v.png"`, code.Token[:8]))
	rw.WriteHeader(http.StatusOK)
	rw.Write(png)
}

func (s *Server) resolveToken(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set("Cache-Control", "no-store")

	resolution, err := s.resolver.Resolve(r.Context(), mux.Vars(r)["token"], scan.Visitor{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(rw, err)
		return
	}

	switch resolution.Outcome {
	case scan.Inactive:
		writeResponse(rw, scanResponse{Success: true, Inactive: true, Message: scan.INACTIVE_MESSAGE}, http.StatusOK)
	case scan.Personal:
		writeResponse(rw, scanResponse{Success: true, Type: resolution.Outcome.String(), Data: resolution.Personal}, http.StatusOK)
	case scan.Fleet:
		writeResponse(rw, scanResponse{Success: true, Type: resolution.Outcome.String(), Data: resolution.Fleet}, http.StatusOK)
	default:
		writeResponse(rw, ResponsePayload{Error: "Invalid or expired link"}, http.StatusNotFound)
	}
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (s *Server) writeSession(rw http.ResponseWriter, profile *models.Profile, status int) {
	email := ""
	if profile.Email != nil {
		email = *profile.Email
	}

	claims := auth.NewClaims(s.config.Kavach.BaseURL, profile.ID.String(), email, profile.FullName, false)
	token, err := auth.EncodeJWT(claims, s.keyPair)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeResponse(rw, ResponsePayload{
		Success: true,
		Data:    sessionResponse{Token: token, ExpiresIn: auth.TOKEN_TTL.String(), User: profile},
	}, status)
}

func (s *Server) qrCodeResponse(code *models.QRCode) qrCodeResponse {
	return qrCodeResponse{
		Token:    code.Token,
		URL:      qr.EmergencyURL(s.config.Kavach.BaseURL, code.Token),
		ImageURL: fmt.Sprintf("/api/qr/%v", code.Token),
		IsActive: code.IsActive,
	}
}

func canAccessQRCode(r *http.Request, identity *Identity, code *models.QRCode) (bool, error) {
	if identity.Admin != nil {
		return true, nil
	}

	if identity.Profile == nil {
		return false, nil
	}

	if !code.IsFleet() {
		return *code.ProfileID == identity.Profile.ID, nil
	}

	vehicle, err := models.FindFleetVehicleByID(r.Context(), *code.VehicleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return vehicle.OwnerProfileID == identity.Profile.ID, nil
}
