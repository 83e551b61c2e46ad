// Package mainconfig centralizes AWS SDK initialization for binaries that
// talk to Bedrock.
package mainconfig

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	appconfig "github.com/clinicasanmiguel/riley/internal/config"
)

// LoadAWSConfig builds the AWS config used for the Bedrock runtime client.
// Static credentials from the environment win over the default chain so local
// runs do not need a shared credentials file.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	return config.LoadDefaultConfig(ctx, loaders...)
}
