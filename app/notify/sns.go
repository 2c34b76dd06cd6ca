package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsClient is the subset of the SNS client used by SNSNotifier.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSNotifier struct {
	topicARN string
	client   snsClient
}

var _ Notifier = (*SNSNotifier)(nil)

func NewSNSNotifier(topicARN string, client snsClient) *SNSNotifier {
	return &SNSNotifier{topicARN: topicARN, client: client}
}

func newSNSClient(cfg aws.Config, endpoint string) *sns.Client {
	return sns.NewFromConfig(cfg, func(o *sns.Options) {
		if ep := endpointOverride(endpoint); ep != nil {
			o.BaseEndpoint = ep
		}
	})
}

func (n *SNSNotifier) Notify(ctx context.Context, m Match) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject(m)),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"source": {
				DataType:    aws.String("String"),
				StringValue: aws.String(attributeValue(m.Source)),
			},
			"keywords": {
				DataType:    aws.String("String"),
				StringValue: aws.String(attributeValue(strings.Join(m.Keywords, ","))),
			},
		},
	}

	resp, err := n.client.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to publish to sns: %w", err)
	}

	slog.Debug("Match published to SNS", "article_id", m.ArticleID, "message_id", aws.ToString(resp.MessageId))
	return nil
}

// SNS subjects are limited to 100 characters.
func subject(m Match) string {
	s := "Keyword match: " + m.Title
	if r := []rune(s); len(r) > 100 {
		s = string(r[:97]) + "..."
	}
	return s
}

// Message attributes may not be empty strings.
func attributeValue(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
