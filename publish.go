package privatepub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Publisher sends messages to the Faye server.
type Publisher struct {
	*opt
	config Config
}

// NewPublisher creates a Publisher for the given configuration.
func NewPublisher(c Config, options ...Option) (*Publisher, error) {
	o, err := newOpt(options)
	if err != nil {
		return nil, err
	}

	return &Publisher{opt: o, config: c}, nil
}

// Message builds the envelope publishing payload on channel.
func (p *Publisher) Message(channel string, payload Payload) *Message {
	return NewMessage(p.config, channel, payload)
}

// Publish sends payload to the subscribers of channel.
//
// The caller must close the body of the returned response.
func (p *Publisher) Publish(ctx context.Context, channel string, payload Payload) (*http.Response, error) {
	if p.config.SecretToken == "" {
		return nil, ErrNoSecretToken
	}

	return p.PublishMessage(ctx, p.Message(channel, payload))
}

// PublishMessage posts message, encoded as JSON in the "message" form field, to the Faye server.
// The request uses TLS if and only if the server URL has the https scheme.
//
// The caller must close the body of the returned response.
func (p *Publisher) PublishMessage(ctx context.Context, message interface{}) (*http.Response, error) {
	endpoint, err := p.endpoint()
	if err != nil {
		return nil, err
	}

	m, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("unable to encode message: %w", err)
	}

	form := url.Values{"message": {string(m)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if c := p.logger.Check(zap.DebugLevel, "Unable to reach the Faye server"); c != nil {
			c.Write(zap.String("endpoint", endpoint), zap.Error(err))
		}

		return nil, err //nolint:wrapcheck
	}

	if msg, ok := message.(*Message); ok {
		p.metrics.MessagePublished(msg)
	}

	if c := p.logger.Check(zap.DebugLevel, "Message published"); c != nil {
		fields := []LogField{zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode)}
		if msg, ok := message.(*Message); ok {
			fields = append(fields, zap.Object("message", msg))
		}

		c.Write(fields...)
	}

	return resp, nil
}

// endpoint keeps only the scheme, the host and the path of the configured server URL.
func (p *Publisher) endpoint() (string, error) {
	if p.config.Server == "" {
		return "", ErrNoServer
	}

	u, err := url.Parse(p.config.Server)
	if err != nil {
		return "", fmt.Errorf("%w: invalid server URL: %w", ErrInvalidConfig, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: server URL %q has no host", ErrInvalidConfig, p.config.Server)
	}

	scheme := "http"
	if u.Scheme == "https" {
		scheme = "https"
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return (&url.URL{Scheme: scheme, Host: u.Host, Path: path}).String(), nil
}
