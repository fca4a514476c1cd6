package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/taskpulse-api/internal/config"
	"github.com/taskpulse-api/internal/domain"
	"github.com/taskpulse-api/internal/infrastructure/awscfg"
)

// EventPublisher delivers report events to subscribers.
type EventPublisher interface {
	PublishReportEvent(ctx context.Context, e domain.ReportEvent) error
}

type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type publisher struct {
	client   snsAPI
	topicARN string
}

// NewPublisher returns a topic publisher, or a no-op one when no topic is configured.
func NewPublisher(ctx context.Context, cfg *config.Config) (EventPublisher, error) {
	if cfg.SNSTopicARN == "" {
		return NopPublisher{}, nil
	}
	awsCfg, err := awscfg.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
	})
	return &publisher{client: client, topicARN: cfg.SNSTopicARN}, nil
}

func (p *publisher) PublishReportEvent(ctx context.Context, e domain.ReportEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(e.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish %s: %w", e.Type, err)
	}
	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishReportEvent(context.Context, domain.ReportEvent) error { return nil }
