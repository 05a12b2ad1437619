package config

type Config struct {
	Address string `json:"address" env:"APP_ADDRESS"`
	Prefork bool   `json:"prefork" env:"APP_PREFORK"`

	Webp bool `json:"webp" env:"APP_WEBP"`

	AllowedOrigins []string `json:"allowedOrigins" env:"APP_ALLOWED_ORIGINS"`

	HmacKey string `json:"hmacKey" env:"APP_HMAC_KEY"`
	Token   string `json:"token" env:"APP_TOKEN"`

	Metrics      *bool `json:"metrics" env:"APP_METRICS"`
	HTTPCacheTTL int   `json:"httpCacheTTL" env:"APP_HTTP_CACHE_TTL" envDefault:"3600"`

	// LocalRoot enables plain file paths as sources; they must resolve inside it.
	LocalRoot    string `json:"localRoot" env:"APP_LOCAL_ROOT"`
	MaxUploadMB  int    `json:"maxUploadMB" env:"APP_MAX_UPLOAD_MB" envDefault:"256"`
	DefaultStyle string `json:"defaultStyle" env:"APP_DEFAULT_STYLE" envDefault:"lightkurve"`

	RenderWidth  int `json:"renderWidth" env:"APP_RENDER_WIDTH" envDefault:"640"`
	RenderHeight int `json:"renderHeight" env:"APP_RENDER_HEIGHT" envDefault:"480"`

	S3Endpoint  string `json:"s3Endpoint" env:"APP_S3_ENDPOINT"`
	S3AccessKey string `json:"s3AccessKey" env:"APP_S3_ACCESS_KEY"`
	S3SecretKey string `json:"s3SecretKey" env:"APP_S3_SECRET_KEY"`
	S3Bucket    string `json:"s3Bucket" env:"APP_S3_BUCKET"`
	S3Prefix    string `json:"s3Prefix" env:"APP_S3_PREFIX"`
	S3Region    string `json:"s3Region" env:"APP_S3_REGION"`
	S3UseSSL    bool   `json:"s3UseSSL" env:"APP_S3_USE_SSL" envDefault:"true"`
}
