package infra

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/eazycard/eazycard/internal/config"
)

// AWSClients bundles the service clients built from one shared aws.Config.
type AWSClients struct {
	DynamoDB       *dynamodb.Client
	SES            *sesv2.Client
	SecretsManager *secretsmanager.Client
}

// NewAWSConfig resolves credentials through the default chain. A non-empty
// endpoint points every client at a local emulator.
func NewAWSConfig(ctx context.Context, cfg config.AWS) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// NewAWSClients builds the DynamoDB, SES and Secrets Manager clients.
func NewAWSClients(awsCfg aws.Config) AWSClients {
	return AWSClients{
		DynamoDB:       dynamodb.NewFromConfig(awsCfg),
		SES:            sesv2.NewFromConfig(awsCfg),
		SecretsManager: secretsmanager.NewFromConfig(awsCfg),
	}
}
