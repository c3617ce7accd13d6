package serviceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var clientTracer = otel.Tracer("attribution/serviceapi")

// Client submits attribution metrics to the REST API.
type Client struct {
	config RequestConfig
	client *http.Client
	log    *logrus.Logger
}

// NewClient creates a client for the given submission target. A nil
// logger falls back to the logrus standard logger.
func NewClient(config RequestConfig, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
	}

	return &Client{
		config: config,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(nil),
		},
		log: log,
	}
}

// Endpoint returns the invoke URL this client submits to.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// Submit posts one metric payload to the API. The payload is marshaled
// to JSON; any non-2xx response counts as a failure.
func (c *Client) Submit(ctx context.Context, payload any) error {
	ctx, span := clientTracer.Start(ctx, "ServiceAPI.Submit",
		trace.WithAttributes(
			attribute.String("api.endpoint", c.config.Endpoint),
			attribute.String("api.region", c.config.Region),
		),
	)
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal metric")
		return fmt.Errorf("failed to marshal metric: %w", err)
	}
	span.SetAttributes(attribute.Int("payload.size", len(body)))

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send metric")
		return fmt.Errorf("failed to send metric: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("metric submission returned non-2xx status: %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission rejected")
		return err
	}

	span.SetStatus(codes.Ok, "metric submitted")
	return nil
}
