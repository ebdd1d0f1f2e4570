// Package privatepub publishes messages to a Faye server over HTTP and authorizes
// Faye subscriptions and publications with HMAC-SHA1 signatures derived from a shared secret.
package privatepub

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option instances allow to configure the library.
type Option func(o *opt) error

// WithDebug enables the debug mode.
func WithDebug() Option {
	return func(o *opt) error {
		o.debug = true

		return nil
	}
}

// WithLogger sets the logger to use.
func WithLogger(logger Logger) Option {
	return func(o *opt) error {
		o.logger = logger

		return nil
	}
}

// WithMetrics enables collection of Prometheus metrics.
func WithMetrics(m Metrics) Option {
	return func(o *opt) error {
		o.metrics = m

		return nil
	}
}

// WithClock sets the function used to read the current time, defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *opt) error {
		o.now = now

		return nil
	}
}

// WithHTTPClient sets the HTTP client used to reach the Faye server, defaults to http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(o *opt) error {
		o.httpClient = c

		return nil
	}
}

// WithChannelSelectorStore sets the ChannelSelectorStore instance to use.
func WithChannelSelectorStore(css *ChannelSelectorStore) Option {
	return func(o *opt) error {
		o.channelSelectorStore = css

		return nil
	}
}

// WithCORSOrigins sets the allowed CORS origins of the HTTP hook.
func WithCORSOrigins(origins []string) Option {
	return func(o *opt) error {
		if err := validateOrigins(origins); err != nil {
			return err
		}

		o.corsOrigins = origins

		return nil
	}
}

// WithAllowedHosts sets the hosts allowed to reach the HTTP hook.
func WithAllowedHosts(hosts []string) Option {
	return func(o *opt) error {
		o.allowedHosts = hosts

		return nil
	}
}

// opt contains the available options.
type opt struct {
	debug                bool
	logger               Logger
	metrics              Metrics
	now                  func() time.Time
	httpClient           *http.Client
	channelSelectorStore *ChannelSelectorStore
	corsOrigins          []string
	allowedHosts         []string
}

func newOpt(options []Option) (*opt, error) {
	o := &opt{}
	for _, option := range options {
		if err := option(o); err != nil {
			return nil, err
		}
	}

	if o.logger == nil {
		var (
			l   Logger
			err error
		)
		if o.debug {
			l, err = zap.NewDevelopment()
		} else {
			l, err = zap.NewProduction()
		}

		if err != nil {
			return nil, fmt.Errorf("error when creating logger: %w", err)
		}

		o.logger = l
	}

	if o.metrics == nil {
		o.metrics = NopMetrics{}
	}

	if o.now == nil {
		o.now = time.Now
	}

	if o.httpClient == nil {
		o.httpClient = http.DefaultClient
	}

	if o.channelSelectorStore == nil {
		css, err := NewChannelSelectorStoreLRU(DefaultChannelSelectorStoreLRUMaxEntriesPerShard, DefaultChannelSelectorStoreLRUShardCount)
		if err != nil {
			return nil, fmt.Errorf("error when creating channel selector store: %w", err)
		}

		o.channelSelectorStore = css
	}

	return o, nil
}
