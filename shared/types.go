package shared

const (
	SQLITE_DRIVER   = "sqlite"
	POSTGRES_DRIVER = "postgres"

	GCS_STORAGE   = "gcs"
	S3_STORAGE    = "s3"
	LOCAL_STORAGE = "local"
)

type ServerConfig struct {
	Kavach    KavachConfig    `mapstructure:"kavach" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Razorpay  RazorpayConfig  `mapstructure:"razorpay"`
	Twilio    TwilioConfig    `mapstructure:"twilio"`
	Jobs      JobsConfig      `mapstructure:"jobs" validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	Cors      CorsConfig      `mapstructure:"cors"`
}

type KavachConfig struct {
	PrivateKeyPem string         `mapstructure:"privateKeyPem" validate:"required"`
	BaseURL       string         `mapstructure:"baseURL" validate:"required,url"`
	Production    bool           `mapstructure:"production"`
	Listener      ListenerConfig `mapstructure:"listener" validate:"required"`
}

type ListenerConfig struct {
	Port int `mapstructure:"port" validate:"required"`
}

// DatabaseConfig selects the store. DSN is used by postgres, PassPhrase by
// the encrypted sqlite file kept under the config directory.
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	DSN        string `mapstructure:"dsn"`
	PassPhrase string `mapstructure:"passPhrase"`
}

type StorageConfig struct {
	Backend               string   `mapstructure:"backend" validate:"required,oneof=gcs s3 local"`
	Bucket                string   `mapstructure:"bucket"`
	Prefix                string   `mapstructure:"prefix"`
	Dir                   string   `mapstructure:"dir"`
	GoogleCredentialsFile string   `mapstructure:"googleCredentialsFile"`
	S3                    S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	ForcePathStyle  bool   `mapstructure:"forcePathStyle"`
}

// IdentityConfig describes an external identity provider whose tokens are
// accepted next to the ones this server signs itself.
type IdentityConfig struct {
	JWKSURL   string `mapstructure:"jwksURL" validate:"omitempty,url"`
	Issuer    string `mapstructure:"issuer"`
	JWTSecret string `mapstructure:"jwtSecret"`
}

type RazorpayConfig struct {
	KeyID     string `mapstructure:"keyId"`
	KeySecret string `mapstructure:"keySecret"`
	BaseURL   string `mapstructure:"baseURL" validate:"omitempty,url"`
}

type TwilioConfig struct {
	AccountSid          string `mapstructure:"accountSid"`
	AuthToken           string `mapstructure:"authToken"`
	MessagingServiceSid string `mapstructure:"messagingServiceSid"`
}

type JobsConfig struct {
	TimeZone              string `mapstructure:"timeZone" validate:"required"`
	ArtifactSweepSchedule string `mapstructure:"artifactSweepSchedule"`
}

type RateLimitConfig struct {
	ScanPerMinute int `mapstructure:"scanPerMinute" validate:"omitempty,min=1"`
	AuthPerMinute int `mapstructure:"authPerMinute" validate:"omitempty,min=1"`
	APIPerMinute  int `mapstructure:"apiPerMinute" validate:"omitempty,min=1"`
}

type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}
