// Package metrics publishes per-invocation CloudWatch metrics.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	v1credentials "github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/shirou/gopsutil/host"
	log "github.com/sirupsen/logrus"

	"github.com/localstack/lambda-native-bridge/internal/credentials"
)

const (
	MetricResponseLength = "LambdaResponseLength"
	MetricDuration       = "Duration"
	MetricUptime         = "Uptime"
)

// Sample is what a single invocation contributes.
type Sample struct {
	HandlerName    string
	ResponseLength int
	Duration       time.Duration
}

// ClientFactory builds a CloudWatch client signed with the credentials of the invocation.
type ClientFactory func(creds credentials.Credentials, region string) (cloudwatchiface.CloudWatchAPI, error)

type Publisher struct {
	Namespace    string
	FunctionName string
	Region       string

	newClient ClientFactory
	uptime    func() (uint64, error)
}

// NewPublisher returns nil when namespace is empty, which disables publishing.
func NewPublisher(namespace, functionName, region string) *Publisher {
	if namespace == "" {
		return nil
	}
	return &Publisher{
		Namespace:    namespace,
		FunctionName: functionName,
		Region:       region,
		newClient:    NewCloudWatchClient,
		uptime:       host.Uptime,
	}
}

// WithClientFactory replaces how clients are built.
func (p *Publisher) WithClientFactory(f ClientFactory) *Publisher {
	p.newClient = f
	return p
}

func NewCloudWatchClient(creds credentials.Credentials, region string) (cloudwatchiface.CloudWatchAPI, error) {
	cfg := aws.NewConfig().WithCredentials(
		v1credentials.NewStaticCredentials(creds.AccessKey, creds.SecretKey, creds.SessionToken))
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return cloudwatch.New(sess), nil
}

// Publish sends the sample. A nil publisher does nothing. Errors are logged, never returned,
// so that metrics never change the outcome of an invocation.
func (p *Publisher) Publish(ctx context.Context, creds credentials.Credentials, s Sample) {
	if p == nil {
		return
	}
	client, err := p.newClient(creds, p.Region)
	if err != nil {
		log.WithError(err).Warn("Failed to create CloudWatch client")
		return
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(p.Namespace),
		MetricData: p.metricData(s),
	}
	if _, err := client.PutMetricDataWithContext(ctx, input); err != nil {
		log.WithError(err).WithField("namespace", p.Namespace).Warn("Failed to publish metrics")
		return
	}
	log.WithField("namespace", p.Namespace).Debug("Published invocation metrics")
}

func (p *Publisher) metricData(s Sample) []*cloudwatch.MetricDatum {
	dimensions := []*cloudwatch.Dimension{
		{Name: aws.String("Path"), Value: aws.String(s.HandlerName)},
		{Name: aws.String("Name"), Value: aws.String(p.FunctionName)},
	}

	data := []*cloudwatch.MetricDatum{
		{
			MetricName: aws.String(MetricResponseLength),
			Dimensions: dimensions,
			Unit:       aws.String(cloudwatch.StandardUnitBytes),
			Value:      aws.Float64(float64(s.ResponseLength)),
		},
		{
			MetricName: aws.String(MetricDuration),
			Dimensions: dimensions,
			Unit:       aws.String(cloudwatch.StandardUnitMilliseconds),
			Value:      aws.Float64(float64(s.Duration) / float64(time.Millisecond)),
		},
	}
	if uptime, err := p.uptime(); err == nil {
		data = append(data, &cloudwatch.MetricDatum{
			MetricName: aws.String(MetricUptime),
			Dimensions: dimensions,
			Unit:       aws.String(cloudwatch.StandardUnitSeconds),
			Value:      aws.Float64(float64(uptime)),
		})
	} else {
		log.WithError(err).Debug("Host uptime unavailable")
	}
	return data
}
