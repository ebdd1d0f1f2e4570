package privatepub

import (
	"crypto/hmac"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrRejected is wrapped by every authorization failure.
	ErrRejected = errors.New("rejected")
	// ErrIncorrectSignature is returned when the provided signature doesn't match the expected one.
	ErrIncorrectSignature = fmt.Errorf("%w: incorrect signature", ErrRejected)
	// ErrSignatureExpired is returned when the signature is older than the configured expiration.
	ErrSignatureExpired = fmt.Errorf("%w: signature has expired", ErrRejected)
	// ErrIncorrectToken is returned when a server-side publication carries the wrong secret token.
	ErrIncorrectToken = fmt.Errorf("%w: incorrect token", ErrRejected)
)

// Authorizer decides whether a subscription or a publication on a channel is allowed.
type Authorizer struct {
	*opt
	config Config
	signer *Signer
}

// NewAuthorizer creates an Authorizer for the given configuration.
func NewAuthorizer(c Config, options ...Option) (*Authorizer, error) {
	o, err := newOpt(options)
	if err != nil {
		return nil, err
	}

	return &Authorizer{opt: o, config: c, signer: &Signer{opt: o, config: c}}, nil
}

// Protected reports whether channel requires a signature.
//
// Patterns such as "/private/**" are always protected: subscribing to them delivers the messages
// of every channel they cover.
func (a *Authorizer) Protected(channel string) bool {
	if len(a.config.ProtectedChannels) == 0 || isChannelPattern(channel) {
		return true
	}

	return a.channelSelectorStore.matchAny(channel, a.config.ProtectedChannels)
}

// Authorize checks the signature provided for action on channel.
//
// It returns nil when the request is accepted, an error wrapping ErrRejected when it is not,
// and an error wrapping ErrInvalidConfig when no secret token is configured.
func (a *Authorizer) Authorize(channel string, timestamp int64, signature string, action Action) error {
	if !a.Protected(channel) {
		return nil
	}

	expected, err := a.signer.GenerateSignature(channel, timestamp, action)
	if err != nil {
		return err
	}

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return a.reject(channel, action, ErrIncorrectSignature)
	}

	if a.signer.SignatureExpired(timestamp) {
		return a.reject(channel, action, ErrSignatureExpired)
	}

	a.metrics.Authorized(channel, action)

	return nil
}

// AuthorizeToken checks the secret token carried by a publication emitted by the Publisher.
func (a *Authorizer) AuthorizeToken(channel, token string) error {
	if a.config.SecretToken == "" {
		return ErrNoSecretToken
	}

	if !hmac.Equal([]byte(token), []byte(a.config.SecretToken)) {
		return a.reject(channel, ActionPublish, ErrIncorrectToken)
	}

	a.metrics.Authorized(channel, ActionPublish)

	return nil
}

func (a *Authorizer) reject(channel string, action Action, reason error) error {
	a.metrics.Rejected(channel, action, reason)
	if c := a.logger.Check(zap.DebugLevel, "Authorization rejected"); c != nil {
		c.Write(zap.String("channel", channel), zap.String("action", string(action)), zap.Error(reason))
	}

	return reason
}
