// Package serviceapi addresses and calls the AWS attribution REST API.
//
// # Overview
//
// The attribution service is an API Gateway deployment, one per
// partition. ResolveRequestConfig picks the partition from the host's
// default AWS profile region and produces the invoke URL; Client posts
// metric payloads to it as JSON. Submissions are traced with
// OpenTelemetry spans carrying the endpoint, region and response status.
//
// # Usage Example
//
//	cfg := serviceapi.ResolveRequestConfig(ctx, "", logger)
//	client := serviceapi.NewClient(cfg, logger)
//	if err := client.Submit(ctx, metric); err != nil {
//	    logger.WithError(err).Warn("metric submission failed")
//	}
//
// # Related Packages
//
//   - pkg/attribution: builds the metrics this client submits
package serviceapi
