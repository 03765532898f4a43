package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Daskott/kavach/server/apperr"
	"github.com/Daskott/kavach/server/auth"
	"github.com/Daskott/kavach/server/logger"
	"github.com/Daskott/kavach/server/metrics"
	"github.com/Daskott/kavach/server/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type RequestContextKey string

const identityContextKey = RequestContextKey("identity")

// Identity is the caller behind a verified bearer token. Exactly one of
// Profile and Admin is set.
type Identity struct {
	Claims  *auth.KavachTokenClaims
	Profile *models.Profile
	Admin   *models.Admin
}

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status int
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{
			ResponseWriter: w,
			Status:         200,
		}

		defer func() {
			responseStatus := logger.Green(responseWriter.Status)
			if responseWriter.Status >= 400 {
				responseStatus = logger.Red(responseWriter.Status)
			}

			logg.Info(
				r.Method, " ",
				r.URL.Path, " ",
				responseStatus, " ",
				logger.Yellow(fmt.Sprintf("[%v]", time.Since(start))))
		}()

		next.ServeHTTP(responseWriter, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		responseWriter := &ResponseWriterWithStatus{ResponseWriter: w, Status: 200}

		next.ServeHTTP(responseWriter, r)

		// Label by template so tokens and ids don't explode cardinality
		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}

		metrics.RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(responseWriter.Status)).
			Observe(time.Since(start).Seconds())
	})
}

func jsonContentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// authenticateMiddleware verifies the bearer token and loads the account
// behind it. Tokens from the external identity provider provision a profile
// on first use.
func (s *Server) authenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.identify(r)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func profileRouteMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestIdentity(r).Profile == nil {
			writeError(w, apperr.New(apperr.Forbidden, "action is forbidden"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func commercialRouteMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !requestIdentity(r).Profile.IsCommercial {
			writeError(w, apperr.New(apperr.Forbidden, "fleet features require a commercial account"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func adminRouteMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestIdentity(r).Admin == nil {
			writeError(w, apperr.New(apperr.Forbidden, "action is forbidden"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (s *Server) identify(r *http.Request) (*Identity, error) {
	authHeaderList := strings.Split(r.Header.Get("Authorization"), "Bearer ")
	if len(authHeaderList) < 2 {
		return nil, apperr.Wrap(apperr.Authentication, auth.ErrNoToken, "Authorization token required")
	}

	claims, err := s.verifier.Verify(r.Context(), strings.TrimSpace(authHeaderList[1]))
	if err != nil {
		return nil, apperr.Wrap(apperr.Authentication, err, "invalid token provided")
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.Wrap(apperr.Authentication, err, "invalid token provided")
	}

	identity := &Identity{Claims: claims}

	if claims.IsAdmin {
		admin, err := models.FindActiveAdmin(r.Context(), subject)
		if err != nil {
			return nil, apperr.Wrap(apperr.Authentication, err, "invalid token provided")
		}
		identity.Admin = admin
		return identity, nil
	}

	// Validate that accounts from local tokens still exist
	if s.verifier.IsLocal(claims) {
		identity.Profile, err = models.FindProfile(r.Context(), subject)
		if err != nil {
			return nil, apperr.Wrap(apperr.Authentication, err, "invalid token provided")
		}
		return identity, nil
	}

	identity.Profile, err = models.FindOrProvisionProfile(r.Context(), subject, claims.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "unable to load profile")
	}
	return identity, nil
}

func requestIdentity(r *http.Request) *Identity {
	identity, ok := r.Context().Value(identityContextKey).(*Identity)
	if !ok {
		return &Identity{}
	}
	return identity
}
