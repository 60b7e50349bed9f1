package oms

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/popcon/internal/common/poperrors"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryDelay = 500 * time.Millisecond
	maxResponseSize   = 64 << 20
)

// Executor runs OMS queries.
type Executor interface {
	Execute(ctx context.Context, query *Query) (*Result, error)
}

type ClientConfig struct {
	BaseUrl string
	// Timeout of a single HTTP request.
	Timeout time.Duration
	// Attempts is the number of times a query is tried before giving up. Zero means one attempt.
	Attempts uint
	// RetryDelay is the base delay between attempts; it grows exponentially.
	RetryDelay time.Duration
}

// Client executes queries against the OMS REST API over HTTP.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if config.Attempts == 0 {
		config.Attempts = 1
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaultRetryDelay
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Execute runs the query and parses the response. A failed request or a response with a non-2xx status is
// reported as an *poperrors.ErrQueryFailed once all attempts are exhausted. Client errors (4xx) are not retried.
func (c *Client) Execute(ctx context.Context, query *Query) (*Result, error) {
	url := query.URL(c.config.BaseUrl)
	var result *Result
	err := retry.Do(
		func() error {
			r, err := c.execute(ctx, query.Resource(), url)
			if err != nil {
				return err
			}
			result = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.config.Attempts),
		retry.Delay(c.config.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Warnf("OMS query %s failed, attempt %d of %d", query, n+1, c.config.Attempts)
		}),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) execute(ctx context.Context, resource string, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/vnd.api+json, application/json")

	log.Debugf("OMS query %s", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithStack(&poperrors.ErrQueryFailed{Service: "oms", Resource: resource, Message: err.Error()})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.WithStack(&poperrors.ErrQueryFailed{Service: "oms", Resource: resource, Message: err.Error()})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.WithStack(&poperrors.ErrQueryFailed{
			Service:  "oms",
			Resource: resource,
			Status:   resp.StatusCode,
			Message:  truncate(string(body), 256),
		})
	}
	result, err := ParseResult(body)
	if err != nil {
		return nil, errors.WithStack(&poperrors.ErrQueryFailed{Service: "oms", Resource: resource, Message: err.Error()})
	}
	return result, nil
}

func isRetryable(err error) bool {
	var queryFailed *poperrors.ErrQueryFailed
	if errors.As(err, &queryFailed) {
		return queryFailed.Status == 0 || queryFailed.Status >= 500
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
