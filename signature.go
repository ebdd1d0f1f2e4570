package privatepub

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"strconv"
	"time"
)

// Action is the Faye operation a signature grants.
type Action string

const (
	ActionSubscribe Action = "subscribe"
	ActionPublish   Action = "publish"
)

// JSTimestamp converts t to milliseconds since the Unix epoch, rounded to the nearest millisecond.
// This is the value returned by Date.now() in JavaScript.
func JSTimestamp(t time.Time) int64 {
	ms := t.UnixMilli()
	if t.Nanosecond()%int(time.Millisecond) >= int(time.Millisecond/2) {
		ms++
	}

	return ms
}

// Subscription contains what client-side code needs to subscribe to, or publish on, a protected channel.
type Subscription struct {
	Server    string `json:"server"`
	Timestamp int64  `json:"timestamp"`
	Channel   string `json:"channel"`
	Action    Action `json:"action"`
	Signature string `json:"signature"`
}

// Signer generates and checks the HMAC signatures shared with the Faye server extension.
type Signer struct {
	*opt
	config Config
}

// NewSigner creates a Signer for the given configuration.
func NewSigner(c Config, options ...Option) (*Signer, error) {
	o, err := newOpt(options)
	if err != nil {
		return nil, err
	}

	return &Signer{opt: o, config: c}, nil
}

// Now returns the current time as a JavaScript timestamp.
func (s *Signer) Now() int64 {
	return JSTimestamp(s.now())
}

// GenerateSignature computes the lowercase hex HMAC-SHA1 of channel, timestamp and action concatenated
// without separator, keyed by the secret token.
func (s *Signer) GenerateSignature(channel string, timestamp int64, action Action) (string, error) {
	if s.config.SecretToken == "" {
		return "", ErrNoSecretToken
	}

	mac := hmac.New(sha1.New, []byte(s.config.SecretToken))
	mac.Write([]byte(channel))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(action))

	return hex.EncodeToString(mac.Sum(nil)), nil
}

// SignatureExpired reports whether a signature issued at timestamp is older than the configured expiration.
// Signatures never expire when no expiration is configured.
func (s *Signer) SignatureExpired(timestamp int64) bool {
	if s.config.SignatureExpiration <= 0 {
		return false
	}

	return timestamp < s.Now()-s.config.SignatureExpiration.Milliseconds()
}

// Subscription signs channel for action at the current time.
func (s *Signer) Subscription(channel string, action Action) (*Subscription, error) {
	timestamp := s.Now()

	signature, err := s.GenerateSignature(channel, timestamp, action)
	if err != nil {
		return nil, err
	}

	return &Subscription{
		Server:    s.config.Server,
		Timestamp: timestamp,
		Channel:   channel,
		Action:    action,
		Signature: signature,
	}, nil
}
