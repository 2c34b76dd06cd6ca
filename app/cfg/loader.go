package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath   string `long:"db-path" env:"DB_PATH" default:"rss_monitor.db" description:"Path to the SQLite database file"`
	SeedFile string `long:"seed-file" env:"SEED_FILE" description:"YAML file with sources and keywords to register at startup (optional)"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"5000" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	PollInterval int    `long:"poll-interval" env:"POLL_INTERVAL" default:"300" description:"Seconds between the end of one polling cycle and the start of the next"`
	FetchTimeout int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-source fetch timeout in seconds"`
	FetchRetries int    `long:"fetch-retries" env:"FETCH_RETRIES" default:"1" description:"Retries for transient fetch failures"`

	// Notification configuration
	SNSTopicARN    string `long:"notify-sns-topic-arn" env:"NOTIFY_SNS_TOPIC_ARN" description:"Publish matches to this SNS topic (optional)"`
	SQSQueueURL    string `long:"notify-sqs-queue-url" env:"NOTIFY_SQS_QUEUE_URL" description:"Send matches to this SQS queue (optional)"`
	AWSRegion      string `long:"aws-region" env:"AWS_REGION" description:"AWS region for notifications"`
	AWSAccessKeyID string `long:"aws-access-key-id" env:"AWS_ACCESS_KEY_ID" description:"Static AWS access key (optional, default credential chain otherwise)"`
	AWSSecretKey   string `long:"aws-secret-access-key" env:"AWS_SECRET_ACCESS_KEY" description:"Static AWS secret key"`
	AWSEndpointURL string `long:"aws-endpoint-url" env:"AWS_ENDPOINT_URL" description:"Override the AWS endpoint, e.g. for LocalStack"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"RSS Monitor/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Moscow)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads an optional .env file, then flags and environment. It returns
// nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	if err := loadEnvFile(cmp.Or(os.Getenv("ENV_FILE"), ".env")); err != nil {
		return nil, err
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validate(&raw); err != nil {
		return nil, err
	}

	cfg := &Cfg{
		DBPath:       raw.DBPath,
		SeedFile:     raw.SeedFile,
		Port:         raw.Port,
		APIAccessKey: raw.APIAccessKey,
		PollInterval: time.Duration(raw.PollInterval) * time.Second,
		FetchTimeout: time.Duration(raw.FetchTimeout) * time.Second,
		FetchRetries: raw.FetchRetries,
		UserAgent:    raw.UserAgent,
		Notify: NotifyCfg{
			SNSTopicARN:    raw.SNSTopicARN,
			SQSQueueURL:    raw.SQSQueueURL,
			AWSRegion:      raw.AWSRegion,
			AWSAccessKeyID: raw.AWSAccessKeyID,
			AWSSecretKey:   raw.AWSSecretKey,
			AWSEndpointURL: raw.AWSEndpointURL,
		},
		Timezone: raw.Timezone,
		Debug:    raw.Debug,
		Version:  GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func validate(raw *rawCfg) error {
	if raw.DBPath == "" {
		return fmt.Errorf("database path is required")
	}

	positiveFields := map[string]int{
		"poll interval": raw.PollInterval,
		"fetch timeout": raw.FetchTimeout,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if raw.FetchRetries < 0 {
		return fmt.Errorf("fetch retries must be non-negative")
	}

	if raw.AWSAccessKeyID != "" && raw.AWSSecretKey == "" {
		return fmt.Errorf("AWS secret access key is required with an access key id")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}
