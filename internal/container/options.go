package container

import (
	"errors"
	"fmt"

	"github.com/serroba/urls-node/internal/shortener"
)

// Secret sources.
const (
	SecretSourceSecretsManager = "secretsmanager"
	SecretSourceFile           = "file"
)

// Options holds every setting of the service. humacli maps each field to a
// kebab-case flag and a SERVICE_ prefixed environment variable.
type Options struct {
	Port           int    `default:"8888"       help:"Port to listen on"                         short:"p"`
	BasePath       string `default:"/urls-node" help:"Path prefix of the URL routes"`
	CodeLength     int    `default:"9"          help:"Length of generated short codes (7-14)"     short:"c"`
	ShortURLScheme string `default:"https"      help:"Scheme of returned short URLs"`
	LogFormat      string `default:"json"       help:"Log output format: json or console"`

	DBScheme      string `default:"postgres"                   help:"Database connection scheme"`
	DBHost        string `default:"localhost"                  help:"Database host"`
	DBPort        int    `default:"5432"                       help:"Database port"`
	DBName        string `default:"urls"                       help:"Database name"`
	CABundle      string `default:"rds-combined-ca-bundle.pem" help:"PEM bundle used to verify the database certificate"`
	CloseOnReturn bool   `default:"true"                       help:"Close the database connection after every request"`

	SecretID     string `default:""               help:"Identifier of the database credentials secret"`
	SecretSource string `default:"secretsmanager" help:"Where to read the secret: secretsmanager or file"`
	SecretFile   string `default:"secrets.yaml"   help:"Secrets file used by the file source"`
	AWSRegion    string `default:""               help:"AWS region override for Secrets Manager"`

	RedisAddr           string `default:""      help:"Redis server address; enables the mapping cache and rotation events" short:"r"`
	MappingCacheSeconds int    `default:"3600"  help:"TTL of cached mappings in seconds, 0 disables the cache"`
	RotationEvents      bool   `default:"false" help:"Drop the cached connection on credential rotation events"`
}

// Validate reports every invalid setting at once.
func (o *Options) Validate() error {
	var errs []error

	if o.Port <= 0 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", o.Port))
	}

	if o.CodeLength < shortener.MinCodeLength || o.CodeLength > shortener.MaxCodeLength {
		errs = append(errs, fmt.Errorf("code-length must be between %d and %d", shortener.MinCodeLength, shortener.MaxCodeLength))
	}

	if o.ShortURLScheme != "http" && o.ShortURLScheme != "https" {
		errs = append(errs, fmt.Errorf("short-url-scheme must be http or https, got %q", o.ShortURLScheme))
	}

	if o.LogFormat != "json" && o.LogFormat != "console" {
		errs = append(errs, fmt.Errorf("log-format must be json or console, got %q", o.LogFormat))
	}

	if o.DBHost == "" {
		errs = append(errs, errors.New("db-host is required"))
	}

	if o.SecretID == "" {
		errs = append(errs, errors.New("secret-id is required"))
	}

	switch o.SecretSource {
	case SecretSourceSecretsManager:
	case SecretSourceFile:
		if o.SecretFile == "" {
			errs = append(errs, errors.New("secret-file is required for the file secret source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown secret-source %q", o.SecretSource))
	}

	if o.MappingCacheSeconds < 0 {
		errs = append(errs, errors.New("mapping-cache-seconds must not be negative"))
	}

	if o.RotationEvents && o.RedisAddr == "" {
		errs = append(errs, errors.New("rotation-events requires redis-addr"))
	}

	return errors.Join(errs...)
}
