package searchdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/meghashyamc/lodapi/config"
	"github.com/meghashyamc/lodapi/logger"
	"github.com/meghashyamc/lodapi/metrics"
	"github.com/meghashyamc/lodapi/query"
	"github.com/sony/gobreaker"
)

const (
	operationSearch = "search"
	operationGet    = "get"
	operationPing   = "ping"
)

type ElasticDB struct {
	client  *elasticsearch.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  logger.Logger
}

type Option func(*elasticsearch.Config)

// WithTransport replaces the HTTP transport used to reach the cluster.
func WithTransport(transport http.RoundTripper) Option {
	return func(esConfig *elasticsearch.Config) {
		esConfig.Transport = transport
	}
}

func New(logger logger.Logger, cfg *config.Config, opts ...Option) (*ElasticDB, error) {
	esConfig := elasticsearch.Config{
		Addresses:    cfg.GetElasticsearchAddresses(),
		Username:     cfg.GetElasticsearchUsername(),
		Password:     cfg.GetElasticsearchPassword(),
		DisableRetry: true,
	}
	for _, opt := range opts {
		opt(&esConfig)
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		logger.Error("could not create elasticsearch client", "err", err.Error())
		return nil, fmt.Errorf("could not create elasticsearch client: %w", err)
	}

	return &ElasticDB{
		client:  client,
		breaker: newBreaker(logger, cfg.GetBreakerMaxFailures(), cfg.GetBreakerOpenTimeout()),
		timeout: cfg.GetElasticsearchTimeout(),
		logger:  logger,
	}, nil
}

func newBreaker(logger logger.Logger, maxFailures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker {
	if maxFailures == 0 {
		maxFailures = 1
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "elasticsearch",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Rejected queries and cancelled requests say nothing about the
		// health of the cluster.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var backendErr *BackendError
			return errors.As(err, &backendErr) && backendErr.StatusCode < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker changed state", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

func (e *ElasticDB) Search(ctx context.Context, index string, body query.Document) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		e.logger.Error("could not encode search body", "index", index, "err", err.Error())
		return nil, fmt.Errorf("could not encode search body: %w", err)
	}

	return e.do(ctx, operationSearch, func(ctx context.Context) (*esapi.Response, error) {
		return e.client.Search(
			e.client.Search.WithContext(ctx),
			e.client.Search.WithIndex(index),
			e.client.Search.WithBody(&buf),
		)
	})
}

// Get returns the _source of a single document.
func (e *ElasticDB) Get(ctx context.Context, index string, id string) (json.RawMessage, error) {
	body, err := e.do(ctx, operationGet, func(ctx context.Context) (*esapi.Response, error) {
		return e.client.Get(index, url.PathEscape(id), e.client.Get.WithContext(ctx))
	})
	if err != nil {
		var backendErr *BackendError
		if errors.As(err, &backendErr) && backendErr.StatusCode == http.StatusNotFound {
			return nil, &NotFoundError{Index: index, ID: id}
		}
		return nil, err
	}

	var document struct {
		Found  bool            `json:"found"`
		Source json.RawMessage `json:"_source"`
	}
	if err := json.Unmarshal(body, &document); err != nil {
		e.logger.Error("could not decode document", "index", index, "id", id, "err", err.Error())
		return nil, fmt.Errorf("could not decode document: %w", err)
	}
	if !document.Found {
		return nil, &NotFoundError{Index: index, ID: id}
	}

	return document.Source, nil
}

func (e *ElasticDB) Ping(ctx context.Context) error {
	_, err := e.do(ctx, operationPing, func(ctx context.Context) (*esapi.Response, error) {
		return e.client.Info(e.client.Info.WithContext(ctx))
	})
	return err
}

func (e *ElasticDB) Close() error {
	return nil
}

func (e *ElasticDB) do(ctx context.Context, operation string, call func(context.Context) (*esapi.Response, error)) (json.RawMessage, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		start := time.Now()
		res, err := call(ctx)
		if err != nil {
			metrics.ObserveBackendRequest(operation, "error", time.Since(start))
			e.logger.Error("search backend request failed", "operation", operation, "err", err.Error())
			return nil, fmt.Errorf("%s request failed: %w", operation, err)
		}
		defer res.Body.Close()
		metrics.ObserveBackendRequest(operation, strconv.Itoa(res.StatusCode), time.Since(start))

		body, err := io.ReadAll(res.Body)
		if err != nil {
			e.logger.Error("could not read search backend response", "operation", operation, "err", err.Error())
			return nil, fmt.Errorf("could not read %s response: %w", operation, err)
		}

		if res.IsError() {
			e.logger.Warn("search backend returned an error", "operation", operation, "status", res.StatusCode)
			return nil, &BackendError{StatusCode: res.StatusCode, Body: body}
		}

		return json.RawMessage(body), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
		}
		return nil, err
	}

	return result.(json.RawMessage), nil
}
