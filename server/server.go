package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Daskott/kavach/server/activation"
	"github.com/Daskott/kavach/server/auth"
	"github.com/Daskott/kavach/server/auth/key"
	"github.com/Daskott/kavach/server/logger"
	"github.com/Daskott/kavach/server/models"
	"github.com/Daskott/kavach/server/qr"
	"github.com/Daskott/kavach/server/razorpay"
	"github.com/Daskott/kavach/server/scan"
	"github.com/Daskott/kavach/server/storage"
	"github.com/Daskott/kavach/server/twilio"
	"github.com/Daskott/kavach/server/work"
	"github.com/Daskott/kavach/shared"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DEFAULT_SCAN_PER_MINUTE = 30
	DEFAULT_AUTH_PER_MINUTE = 20
	DEFAULT_API_PER_MINUTE  = 120
)

var logg = logger.NewLogger()

type SMSSender interface {
	SendMessage(to, msg string) error
}

type Server struct {
	config     *shared.ServerConfig
	devMode    bool
	keyPair    *key.KeyPair
	verifier   *auth.Verifier
	producer   *qr.Producer
	activation *activation.Service
	resolver   *scan.Resolver
	sms        SMSSender
	workers    *work.WorkerPoolAdapter
}

func Start(config *shared.ServerConfig, devMode bool) {
	logger.SetProduction(config.Kavach.Production)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := MigrateDatabase(config, devMode)
	fatalOnError(err)

	store, err := storage.New(ctx, config.Storage)
	fatalOnError(err)

	kavach, err := newServer(ctx, config, devMode, store)
	fatalOnError(err)

	err = kavach.scheduleJobs()
	fatalOnError(err)

	kavach.workers.Start()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%v", config.Kavach.Listener.Port),
		Handler:           kavach.router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go serve(httpServer)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cleanup(kavach.workers, httpServer)
}

// MigrateDatabase opens the configured database and brings its schema and
// seed data up to date.
func MigrateDatabase(config *shared.ServerConfig, devMode bool) error {
	return models.AutoMigrate(config.Database, configDirectory(devMode))
}

func newServer(ctx context.Context, config *shared.ServerConfig, devMode bool, store storage.ObjectStore) (*Server, error) {
	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(config.Kavach.PrivateKeyPem)
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewVerifier(ctx, config.Kavach.BaseURL, keyPair, config.Identity)
	if err != nil {
		return nil, err
	}

	workers, err := work.NewWorkerAdapter(config.Jobs.TimeZone)
	if err != nil {
		return nil, err
	}

	producer := qr.NewProducer(store, config.Kavach.BaseURL, models.ArtifactLedger{})
	hideInternalErrors = config.Kavach.Production

	kavach := &Server{
		config:     config,
		devMode:    devMode,
		keyPair:    keyPair,
		verifier:   verifier,
		producer:   producer,
		activation: activation.NewService(razorpay.NewClient(config.Razorpay), producer, workers),
		resolver:   scan.NewResolver(),
		sms:        twilio.NewClient(config.Twilio, devMode),
		workers:    workers,
	}

	if err := kavach.registerJobHandlers(); err != nil {
		return nil, err
	}

	return kavach, nil
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware, metricsMiddleware)

	r.HandleFunc("/health", health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/.well-known/jwks.json", s.jwks).Methods("GET")

	scanRouter := r.PathPrefix("/e").Subrouter()
	scanRouter.Use(rateLimiter(s.config.RateLimit.ScanPerMinute, DEFAULT_SCAN_PER_MINUTE))
	scanRouter.HandleFunc("/{token}", s.resolveToken).Methods("GET")

	// Unauthenticated api routes are registered first so the token
	// middleware below never sees them
	authRouter := r.PathPrefix("/api").Subrouter()
	authRouter.Use(jsonContentMiddleware, rateLimiter(s.config.RateLimit.AuthPerMinute, DEFAULT_AUTH_PER_MINUTE))
	authRouter.HandleFunc("/auth/register", s.register).Methods("POST")
	authRouter.HandleFunc("/auth/login", s.logIn).Methods("POST")
	authRouter.HandleFunc("/auth/otp/request", s.requestOTP).Methods("POST")
	authRouter.HandleFunc("/auth/otp/verify", verifyOTP).Methods("POST")
	authRouter.HandleFunc("/admin/login", s.adminLogIn).Methods("POST")

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(jsonContentMiddleware, rateLimiter(s.config.RateLimit.APIPerMinute, DEFAULT_API_PER_MINUTE), s.authenticateMiddleware)
	apiRouter.HandleFunc("/qr/{token}", s.downloadQR).Methods("GET")

	adminRouter := apiRouter.PathPrefix("/admin").Subrouter()
	adminRouter.Use(adminRouteMiddleware)
	adminRouter.HandleFunc("/users", fetchUsers).Methods("GET")
	adminRouter.HandleFunc("/users/{id}/disable-qr", disableQR).Methods("POST")
	adminRouter.HandleFunc("/users/{id}/enable-qr", enableQR).Methods("POST")
	adminRouter.HandleFunc("/qr-status", updateQRStatus).Methods("POST")
	adminRouter.HandleFunc("/stats", fetchStats).Methods("GET")
	adminRouter.HandleFunc("/jobs", fetchJobs).Methods("GET")

	fleetRouter := apiRouter.PathPrefix("/fleet").Subrouter()
	fleetRouter.Use(profileRouteMiddleware, commercialRouteMiddleware)
	fleetRouter.HandleFunc("/vehicles", fetchVehicles).Methods("GET")
	fleetRouter.HandleFunc("/vehicles", createVehicle).Methods("POST")
	fleetRouter.HandleFunc("/vehicles/qr", s.issueFleetQRCodes).Methods("POST")
	fleetRouter.HandleFunc("/vehicles/{id}/qr", s.issueVehicleQRCode).Methods("POST")
	fleetRouter.HandleFunc("/drivers", fetchDrivers).Methods("GET")
	fleetRouter.HandleFunc("/drivers", createDriver).Methods("POST")
	fleetRouter.HandleFunc("/drivers/{id}/assignment", assignDriver).Methods("PUT")
	fleetRouter.HandleFunc("/drivers/{id}", deleteDriver).Methods("DELETE")

	ownerRouter := apiRouter.NewRoute().Subrouter()
	ownerRouter.Use(profileRouteMiddleware)
	ownerRouter.HandleFunc("/me", findMe).Methods("GET")
	ownerRouter.HandleFunc("/me", updateMe).Methods("PATCH")
	ownerRouter.HandleFunc("/emergency-profile", findEmergencyProfile).Methods("GET")
	ownerRouter.HandleFunc("/emergency-profile", updateEmergencyProfile).Methods("PUT")
	ownerRouter.HandleFunc("/emergency-contacts", fetchContacts).Methods("GET")
	ownerRouter.HandleFunc("/emergency-contacts", createContact).Methods("POST")
	ownerRouter.HandleFunc("/emergency-contacts/{id}", deleteContact).Methods("DELETE")
	ownerRouter.HandleFunc("/activate", s.activate).Methods("POST")
	ownerRouter.HandleFunc("/razorpay/quote", s.quote).Methods("GET", "POST")
	ownerRouter.HandleFunc("/razorpay/create-order", s.createOrder).Methods("POST")
	ownerRouter.HandleFunc("/razorpay/verify", s.verifyPayment).Methods("POST")
	ownerRouter.HandleFunc("/qr", s.findOrCreateQR).Methods("GET")

	return cors.Handler(cors.Options{
		AllowedOrigins: s.config.Cors.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})(r)
}

func rateLimiter(perMinute, fallback int) mux.MiddlewareFunc {
	if perMinute <= 0 {
		perMinute = fallback
	}
	return httprate.LimitByIP(perMinute, time.Minute)
}
