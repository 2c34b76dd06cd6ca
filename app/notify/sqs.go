package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsClient is the subset of the SQS client used by SQSNotifier.
type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type SQSNotifier struct {
	queueURL string
	client   sqsClient
}

var _ Notifier = (*SQSNotifier)(nil)

func NewSQSNotifier(queueURL string, client sqsClient) *SQSNotifier {
	return &SQSNotifier{queueURL: queueURL, client: client}
}

func newSQSClient(cfg aws.Config, endpoint string) *sqs.Client {
	return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if ep := endpointOverride(endpoint); ep != nil {
			o.BaseEndpoint = ep
		}
	})
}

func (n *SQSNotifier) Notify(ctx context.Context, m Match) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"article_id": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.FormatInt(m.ArticleID, 10)),
			},
			"keywords": {
				DataType:    aws.String("String"),
				StringValue: aws.String(attributeValue(strings.Join(m.Keywords, ","))),
			},
		},
	}

	resp, err := n.client.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send message to sqs: %w", err)
	}

	slog.Debug("Match sent to SQS", "article_id", m.ArticleID, "message_id", aws.ToString(resp.MessageId))
	return nil
}
