package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Match describes a newly recorded article and the keywords it matched.
type Match struct {
	ArticleID int64     `json:"article_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Source    string    `json:"source"`
	Keywords  []string  `json:"keywords"`
	FoundAt   time.Time `json:"found_at"`
}

type Notifier interface {
	Notify(ctx context.Context, m Match) error
}

// Config selects the optional AWS destinations. The log record is always emitted.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	TopicARN        string
	QueueURL        string
}

func (c Config) awsEnabled() bool {
	return c.TopicARN != "" || c.QueueURL != ""
}

// Notifiers fans a match out to every member and joins their errors.
type Notifiers []Notifier

var _ Notifier = Notifiers(nil)

func (n Notifiers) Notify(ctx context.Context, m Match) error {
	var errs []error
	for _, notifier := range n {
		if err := notifier.Notify(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds the log notifier plus any AWS senders enabled in cfg.
func New(ctx context.Context, cfg Config) (Notifier, error) {
	notifiers := Notifiers{NewLogNotifier(slog.Default())}

	if !cfg.awsEnabled() {
		return notifiers, nil
	}

	awsConfig, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.TopicARN != "" {
		notifiers = append(notifiers, NewSNSNotifier(cfg.TopicARN, newSNSClient(awsConfig, cfg.Endpoint)))
		slog.Info("SNS notifications enabled", "topic_arn", cfg.TopicARN)
	}
	if cfg.QueueURL != "" {
		notifiers = append(notifiers, NewSQSNotifier(cfg.QueueURL, newSQSClient(awsConfig, cfg.Endpoint)))
		slog.Info("SQS notifications enabled", "queue_url", cfg.QueueURL)
	}

	return notifiers, nil
}

func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*awscfg.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awscfg.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		opts = append(opts, awscfg.WithCredentialsProvider(creds))
	}

	awsConfig, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return awsConfig, nil
}

func endpointOverride(endpoint string) *string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}
	return aws.String(endpoint)
}
