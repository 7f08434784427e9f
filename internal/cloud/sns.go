package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/weather-monitor/internal/weather"
)

type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes alert events to an SNS topic.
type SNSNotifier struct {
	svc      snsPublisher
	topicArn string
}

// NewSNSNotifier loads the default AWS config for region.
func NewSNSNotifier(ctx context.Context, region, topicArn string) (*SNSNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &SNSNotifier{svc: sns.NewFromConfig(cfg), topicArn: topicArn}, nil
}

func newSNSNotifier(svc snsPublisher, topicArn string) *SNSNotifier {
	return &SNSNotifier{svc: svc, topicArn: topicArn}
}

// Notify sends one message per alert event.
func (n *SNSNotifier) Notify(ctx context.Context, a weather.AlertEvent) error {
	subject := fmt.Sprintf("Weather Alert: %s in %s", a.Metric, a.City)
	message := fmt.Sprintf(
		"Threshold Alert\n\n"+
			"City: %s\n"+
			"Metric: %s\n"+
			"Observed at: %s\n\n"+
			"%s",
		a.City,
		a.Metric,
		a.Timestamp.Format("2006-01-02 15:04:05 MST"),
		a.Reason,
	)

	out, err := n.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}

	log.Debug().Str("message_id", aws.ToString(out.MessageId)).Msg("sns alert sent")
	return nil
}
