// internal/common/aws/sns.go
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher sends messages to a single topic.
type Publisher struct {
	api      SNSAPI
	topicARN string
}

func NewPublisher(cfg awssdk.Config, topicARN string) *Publisher {
	return NewPublisherWithAPI(sns.NewFromConfig(cfg), topicARN)
}

func NewPublisherWithAPI(api SNSAPI, topicARN string) *Publisher {
	return &Publisher{api: api, topicARN: topicARN}
}

// Publish sends message with string attributes subscribers can filter on.
func (p *Publisher) Publish(ctx context.Context, subject, message string, attributes map[string]string) (string, error) {
	attrs := make(map[string]types.MessageAttributeValue, len(attributes))
	for k, v := range attributes {
		attrs[k] = types.MessageAttributeValue{
			DataType:    awssdk.String("String"),
			StringValue: awssdk.String(v),
		}
	}

	input := &sns.PublishInput{
		TopicArn:          awssdk.String(p.topicARN),
		Message:           awssdk.String(message),
		MessageAttributes: attrs,
	}
	if subject != "" {
		input.Subject = awssdk.String(subject)
	}

	out, err := p.api.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("sns publish to %s: %w", p.topicARN, err)
	}
	return awssdk.ToString(out.MessageId), nil
}
