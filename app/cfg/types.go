package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath   string
	SeedFile string

	// HTTP API
	Port         string
	APIAccessKey string

	// Polling
	PollInterval time.Duration
	FetchTimeout time.Duration
	FetchRetries int
	UserAgent    string

	// Notifications
	Notify NotifyCfg

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

type NotifyCfg struct {
	SNSTopicARN    string
	SQSQueueURL    string
	AWSRegion      string
	AWSAccessKeyID string
	AWSSecretKey   string
	AWSEndpointURL string
}
