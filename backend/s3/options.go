package s3

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options holds s3-specific client options.
type Options struct {
	AccessKeyID     string `json:"accessKeyId,omitempty"`
	SecretAccessKey string `json:"secretAccessKey,omitempty"`
	SessionToken    string `json:"sessionToken,omitempty"`
	Region          string `json:"region,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
	ForcePathStyle  bool   `json:"forcePathStyle,omitempty"`
}

// NewOptions reads gateway options from the environment. The standard AWS
// credential chain still applies when no static keys are set; the endpoint
// and path-style knobs exist for MinIO and LocalStack.
func NewOptions() *Options {
	return &Options{
		AccessKeyID:     os.Getenv("DRIVEGATE_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("DRIVEGATE_S3_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("DRIVEGATE_S3_SESSION_TOKEN"),
		Region:          os.Getenv("DRIVEGATE_S3_REGION"),
		Endpoint:        os.Getenv("DRIVEGATE_S3_ENDPOINT"),
		ForcePathStyle:  os.Getenv("DRIVEGATE_S3_ENDPOINT") != "",
	}
}

// getClient sets up the S3 client
func getClient(ctx context.Context, opt *Options) (Client, error) {
	// setup default config
	awsConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	// return client instance
	return s3.NewFromConfig(awsConfig, func(opts *s3.Options) {
		if opt.Region != "" {
			opts.Region = opt.Region
		}

		// set path style for minio users
		opts.UsePathStyle = opt.ForcePathStyle

		// use specific endpoint, otherwise, will use aws "default endpoint resolver" based on region
		if opt.Endpoint != "" {
			opts.BaseEndpoint = aws.String(opt.Endpoint)
		}

		if opt.AccessKeyID != "" && opt.SecretAccessKey != "" {
			opts.Credentials = credentials.NewStaticCredentialsProvider(
				opt.AccessKeyID,
				opt.SecretAccessKey,
				opt.SessionToken,
			)
		}
	}), nil
}
