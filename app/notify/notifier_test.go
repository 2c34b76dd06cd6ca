package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("sqs-1")}, nil
}

type failingNotifier struct{ err error }

func (f failingNotifier) Notify(ctx context.Context, m Match) error { return f.err }

func testMatch() Match {
	return Match{
		ArticleID: 7,
		Title:     "Inflation rises",
		URL:       "https://example.com/a",
		Source:    "Example",
		Keywords:  []string{"inflation", "Fed"},
		FoundAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := n.Notify(context.Background(), testMatch()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	out := buf.String()
	for _, want := range []string{"New article matched", `title="Inflation rises"`, "url=https://example.com/a", "source=Example", "inflation", "2024-03-01T12:00:00Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log output to contain %q, got %s", want, out)
		}
	}
}

func TestSNSNotifier(t *testing.T) {
	client := &fakeSNS{}
	n := NewSNSNotifier("arn:aws:sns:us-east-1:000000000000:matches", client)

	if err := n.Notify(context.Background(), testMatch()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(client.inputs) != 1 {
		t.Fatalf("Expected 1 publish, got %d", len(client.inputs))
	}
	input := client.inputs[0]
	if aws.ToString(input.TopicArn) != "arn:aws:sns:us-east-1:000000000000:matches" {
		t.Errorf("Expected topic ARN, got %s", aws.ToString(input.TopicArn))
	}

	var decoded Match
	if err := json.Unmarshal([]byte(aws.ToString(input.Message)), &decoded); err != nil {
		t.Fatalf("Expected JSON message, got %v", err)
	}
	if decoded.URL != "https://example.com/a" || len(decoded.Keywords) != 2 {
		t.Errorf("Expected match payload, got %+v", decoded)
	}
	if got := aws.ToString(input.MessageAttributes["keywords"].StringValue); got != "inflation,Fed" {
		t.Errorf("Expected keywords attribute 'inflation,Fed', got '%s'", got)
	}
}

func TestSNSNotifier_Error(t *testing.T) {
	n := NewSNSNotifier("arn", &fakeSNS{err: errors.New("throttled")})

	err := n.Notify(context.Background(), testMatch())
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Errorf("Expected wrapped publish error, got %v", err)
	}
}

func TestSubjectTruncated(t *testing.T) {
	m := testMatch()
	m.Title = strings.Repeat("ж", 200)

	s := subject(m)
	if n := len([]rune(s)); n != 100 {
		t.Errorf("Expected 100 characters, got %d", n)
	}
	if !strings.HasSuffix(s, "...") {
		t.Errorf("Expected ellipsis, got %s", s)
	}
}

func TestSQSNotifier(t *testing.T) {
	client := &fakeSQS{}
	n := NewSQSNotifier("https://sqs.us-east-1.amazonaws.com/000000000000/matches", client)

	m := testMatch()
	m.Source = ""
	if err := n.Notify(context.Background(), m); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(client.inputs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(client.inputs))
	}
	input := client.inputs[0]
	if got := aws.ToString(input.MessageAttributes["article_id"].StringValue); got != "7" {
		t.Errorf("Expected article_id attribute '7', got '%s'", got)
	}
	if !strings.Contains(aws.ToString(input.MessageBody), `"source":""`) {
		t.Errorf("Expected empty source in body, got %s", aws.ToString(input.MessageBody))
	}
}

func TestNotifiers_JoinsErrors(t *testing.T) {
	sqsClient := &fakeSQS{}
	n := Notifiers{
		failingNotifier{err: errors.New("first")},
		NewSQSNotifier("queue", sqsClient),
		failingNotifier{err: errors.New("second")},
	}

	err := n.Notify(context.Background(), testMatch())
	if err == nil {
		t.Fatal("Expected joined error")
	}
	if !strings.Contains(err.Error(), "first") || !strings.Contains(err.Error(), "second") {
		t.Errorf("Expected both errors, got %v", err)
	}
	if len(sqsClient.inputs) != 1 {
		t.Errorf("Expected remaining notifiers to run, got %d sends", len(sqsClient.inputs))
	}
}

func TestNew(t *testing.T) {
	n, err := New(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := len(n.(Notifiers)); got != 1 {
		t.Errorf("Expected only the log notifier, got %d notifiers", got)
	}

	n, err = New(context.Background(), Config{
		Region:          "us-east-1",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Endpoint:        "http://localhost:4566",
		TopicARN:        "arn:aws:sns:us-east-1:000000000000:matches",
		QueueURL:        "http://localhost:4566/000000000000/matches",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := len(n.(Notifiers)); got != 3 {
		t.Errorf("Expected log, SNS and SQS notifiers, got %d", got)
	}
}
