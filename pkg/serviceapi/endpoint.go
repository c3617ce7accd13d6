package serviceapi

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/sirupsen/logrus"
)

// API Gateway identifiers for the attribution service.
const (
	// DefaultAPIID is the attribution REST API in the standard AWS
	// partition.
	DefaultAPIID = "xbzx78kvbk"

	// ChinaAPIID is the attribution REST API in the China partition.
	// Empty until the China deployment is provisioned.
	ChinaAPIID = ""

	// APIStage is the deployed API Gateway stage.
	APIStage = "prod"

	// DefaultRegion hosts the standard-partition API.
	DefaultRegion = "us-west-2"

	// ChinaRegion hosts the China-partition API.
	ChinaRegion = "cn-north-1"
)

// RequestConfig carries the resolved submission target.
type RequestConfig struct {
	// Region the API is addressed in.
	Region string

	// Endpoint is the full invoke URL for the API stage.
	Endpoint string
}

// FormatRESTAPIURL builds an API Gateway invoke URL from its parts.
func FormatRESTAPIURL(apiID, region, stage string) string {
	return fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com/%s", apiID, region, stage)
}

// isChinaRegion reports whether region belongs to the China partition.
func isChinaRegion(region string) bool {
	return region == "cn-north-1" || region == "cn-northwest-1"
}

// ResolveRequestConfig picks the API endpoint and region for this host.
//
// The region comes from the default AWS config chain of the given
// profile, so AWS_REGION, AWS_PROFILE and the shared config files all
// apply; an empty profile means the chain's active profile. Hosts
// configured for a China partition region are routed to the China API
// when one is provisioned; everything else, including hosts whose region
// cannot be resolved, goes to the standard-partition API.
func ResolveRequestConfig(ctx context.Context, profile string, log *logrus.Logger) RequestConfig {
	if log == nil {
		log = logrus.New()
	}

	apiID := DefaultAPIID
	region := DefaultRegion

	var opts []func(*awsconfig.LoadOptions) error
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.WithError(err).Warn("Failed to load AWS config, using default attribution endpoint")
	} else if isChinaRegion(cfg.Region) && ChinaAPIID != "" {
		apiID = ChinaAPIID
		region = ChinaRegion
	}

	return RequestConfig{
		Region:   region,
		Endpoint: FormatRESTAPIURL(apiID, region, APIStage),
	}
}
