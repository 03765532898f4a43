package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Daskott/kavach/server/apperr"
	"github.com/Daskott/kavach/server/models"
	"github.com/Daskott/kavach/server/work"
	"github.com/Daskott/kavach/utils"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

const INTERNAL_ERROR_MESSAGE = "Internal server error"

var (
	validate = validator.New()

	mobileNumberRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

	// hideInternalErrors replaces 5xx messages with a generic one
	hideInternalErrors bool
)

func init() {
	if err := RegisterValidators(validate); err != nil {
		logg.Panic(err)
	}
}

type ResponsePayload struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad interface{}, statusCode int) {
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func writeData(rw http.ResponseWriter, data interface{}) {
	writeResponse(rw, ResponsePayload{Success: true, Data: data}, http.StatusOK)
}

func writeError(rw http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := kind.Status()
	message := apperr.Message(err)

	if status >= http.StatusInternalServerError {
		logg.Errorf("%+v", err)
		if hideInternalErrors {
			message = INTERNAL_ERROR_MESSAGE
		}
	} else {
		logg.Debug(err)
	}

	writeResponse(rw, ResponsePayload{Error: message, Errors: apperr.Details(err)}, status)
}

// decodeAndValidate reads a JSON body into data and runs struct validation.
func decodeAndValidate(r *http.Request, data interface{}) error {
	err := json.NewDecoder(r.Body).Decode(data)
	if err != nil {
		return apperr.Wrap(apperr.Validation, err, "malformed request body")
	}

	errs := validate.Struct(data)
	if errs != nil {
		return apperr.WithDetails(apperr.Validation, "invalid request", strings.Split(errs.Error(), "\n"))
	}

	return nil
}

// notFoundOr classifies gorm.ErrRecordNotFound as NotFound with message,
// anything else as an internal failure.
func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.NotFound, err, message)
	}
	return apperr.Wrap(apperr.Internal, err, "")
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.Validation, err, "invalid "+name)
	}
	return id, nil
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func RegisterValidators(validate *validator.Validate) error {
	err := validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		// if whitespace in password return false
		err := validate.Var(fl.Field().String(), "contains= ")
		if err == nil {
			return false
		}
		return len(fl.Field().String()) > 0
	})
	if err != nil {
		return err
	}

	return validate.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobileNumberRegex.MatchString(fl.Field().String())
	})
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("Kavach server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(workerPool *work.WorkerPoolAdapter, server *http.Server) {
	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Errorf("Kavach server shutdown failed:%+s", err)
	}

	// Stop background jobs once no request can enqueue new ones
	workerPool.Stop()

	if err := models.Close(); err != nil {
		logg.Error(err)
	}

	logg.Infof("Kavach server stopped properly")
}

// configDirectory retrieves the directory to store kavach data
// Or logs an error message and then calls os.Exit if it's unable to.
func configDirectory(devMode bool) string {
	// Use 'kavach' folder in home directory for prod
	configFolderName := "kavach"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
