package awsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const CredentialGuidance = `AWS credentials not found. Configure them using one of:

  aws sso login                        If you use AWS IAM Identity Center (SSO)
  aws configure                        Interactive setup for ~/.aws/credentials
  export AWS_ACCESS_KEY_ID=...         Set credentials via environment variables
  export AWS_SECRET_ACCESS_KEY=...
  export AWS_PROFILE=my-profile        Use a named profile from ~/.aws/config

  or pass --client-id / --client-secret with an access key pair.`

type ConfigOptions struct {
	Region string
	// AccessKeyID and SecretAccessKey replace the default credential chain when both are set.
	AccessKeyID     string
	SecretAccessKey string
	// BaseEndpoint points every client at an alternate endpoint, e.g. LocalStack.
	BaseEndpoint string
}

func NewConfig(ctx context.Context, opts ConfigOptions) (aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	if opts.BaseEndpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(opts.BaseEndpoint))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// VerifyCredentials asks STS who we are, which fails fast on missing or expired credentials.
func VerifyCredentials(ctx context.Context, cfg aws.Config) (string, error) {
	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("verifying AWS credentials: %w", err)
	}
	return aws.ToString(out.Arn), nil
}
