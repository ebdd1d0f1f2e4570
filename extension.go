package privatepub

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	metaPrefix           = "/meta/"
	metaSubscribeChannel = "/meta/subscribe"
)

// Timestamp is a JavaScript timestamp that can be encoded as a JSON number or string.
type Timestamp int64

// UnmarshalJSON accepts 1500000000000, 1500000000000.0 and "1500000000000".
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*t = 0

		return nil
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*t = Timestamp(i)

		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	*t = Timestamp(f)

	return nil
}

// BayeuxExt holds the extension fields read by the Extension.
//
// Other extension fields are kept and encoded back unchanged.
type BayeuxExt struct {
	Signature string    `json:"private_pub_signature,omitempty"`
	Timestamp Timestamp `json:"private_pub_timestamp,omitempty"`
	Token     string    `json:"private_pub_token,omitempty"`

	fields map[string]json.RawMessage
}

func (e *BayeuxExt) UnmarshalJSON(b []byte) error {
	type bayeuxExt BayeuxExt

	var decoded bayeuxExt
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err //nolint:wrapcheck
	}
	if err := json.Unmarshal(b, &decoded.fields); err != nil {
		return err //nolint:wrapcheck
	}

	*e = BayeuxExt(decoded)

	return nil
}

func (e BayeuxExt) MarshalJSON() ([]byte, error) {
	fields := copyFields(e.fields)
	if err := putField(fields, "private_pub_signature", e.Signature, true); err != nil {
		return nil, err
	}
	if err := putField(fields, "private_pub_timestamp", e.Timestamp, true); err != nil {
		return nil, err
	}
	if err := putField(fields, "private_pub_token", e.Token, true); err != nil {
		return nil, err
	}

	return json.Marshal(fields) //nolint:wrapcheck
}

// BayeuxMessage is a frame received by the Faye server.
//
// Only the fields needed to authorize it are decoded. The other fields, such as version or advice,
// are kept and encoded back unchanged.
type BayeuxMessage struct {
	Channel      string          `json:"channel"`
	ClientID     string          `json:"clientId,omitempty"`
	ID           string          `json:"id,omitempty"`
	Subscription string          `json:"subscription,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Ext          *BayeuxExt      `json:"ext,omitempty"`
	Error        string          `json:"error,omitempty"`

	fields map[string]json.RawMessage
}

func (m *BayeuxMessage) UnmarshalJSON(b []byte) error {
	type bayeuxMessage BayeuxMessage

	var decoded bayeuxMessage
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err //nolint:wrapcheck
	}
	if err := json.Unmarshal(b, &decoded.fields); err != nil {
		return err //nolint:wrapcheck
	}

	*m = BayeuxMessage(decoded)

	return nil
}

func (m BayeuxMessage) MarshalJSON() ([]byte, error) {
	fields := copyFields(m.fields)
	for _, f := range []struct {
		key   string
		value string
		omit  bool
	}{
		{"channel", m.Channel, false},
		{"clientId", m.ClientID, true},
		{"id", m.ID, true},
		{"subscription", m.Subscription, true},
		{"error", m.Error, true},
	} {
		if err := putField(fields, f.key, f.value, f.omit); err != nil {
			return nil, err
		}
	}

	if len(m.Data) > 0 {
		fields["data"] = m.Data
	} else {
		delete(fields, "data")
	}

	if m.Ext != nil {
		ext, err := json.Marshal(m.Ext)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
		fields["ext"] = ext
	} else if raw, ok := fields["ext"]; !ok || string(raw) != "null" {
		delete(fields, "ext")
	}

	return json.Marshal(fields) //nolint:wrapcheck
}

func copyFields(fields map[string]json.RawMessage) map[string]json.RawMessage {
	c := make(map[string]json.RawMessage, len(fields)+1)
	for k, v := range fields {
		c[k] = v
	}

	return c
}

// putField stores value under key. The received encoding is kept when it still decodes to value,
// so that a timestamp sent as a string isn't turned into a number.
func putField[T comparable](fields map[string]json.RawMessage, key string, value T, omitEmpty bool) error {
	if raw, ok := fields[key]; ok {
		var previous T
		if json.Unmarshal(raw, &previous) == nil && previous == value {
			return nil
		}
	}

	var zero T
	if omitEmpty && value == zero {
		delete(fields, key)

		return nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return err //nolint:wrapcheck
	}
	fields[key] = b

	return nil
}

// Extension authorizes the frames received by a Faye server.
type Extension struct {
	*opt
	authorizer *Authorizer
}

// NewExtension creates an Extension for the given configuration.
func NewExtension(c Config, options ...Option) (*Extension, error) {
	a, err := NewAuthorizer(c, options...)
	if err != nil {
		return nil, err
	}

	return &Extension{opt: a.opt, authorizer: a}, nil
}

// Incoming checks msg before the Faye server processes it.
//
// Subscriptions must be signed for the subscribe action. Publications must either carry the secret token,
// which is then removed, or be signed for the publish action. Other meta frames are left untouched.
// When the frame is refused, its Error field is set and nil is returned: the Faye server then answers the client.
// An error is only returned when the configuration doesn't allow checking the frame.
func (e *Extension) Incoming(msg *BayeuxMessage) error {
	var err error
	switch {
	case msg.Channel == metaSubscribeChannel:
		err = e.authorize(msg.Subscription, msg.Ext, ActionSubscribe)
	case strings.HasPrefix(msg.Channel, metaPrefix):
		return nil
	case msg.Ext != nil && msg.Ext.Token != "":
		err = e.authorizeToken(msg)
	default:
		err = e.authorize(msg.Channel, msg.Ext, ActionPublish)
	}

	if errors.Is(err, ErrRejected) {
		msg.Error = rejectionReason(err)

		return nil
	}

	if err != nil {
		if c := e.logger.Check(zap.ErrorLevel, "Unable to authorize message"); c != nil {
			c.Write(zap.Object("message", msg), zap.Error(err))
		}

		return err
	}

	if c := e.logger.Check(zap.DebugLevel, "Message authorized"); c != nil {
		c.Write(zap.Object("message", msg))
	}

	return nil
}

func (e *Extension) authorize(channel string, ext *BayeuxExt, action Action) error {
	if ext == nil {
		ext = &BayeuxExt{}
	}

	return e.authorizer.Authorize(channel, int64(ext.Timestamp), ext.Signature, action)
}

func (e *Extension) authorizeToken(msg *BayeuxMessage) error {
	token := msg.Ext.Token
	// The token must never reach subscribers
	msg.Ext.Token = ""

	if !e.authorizer.Protected(msg.Channel) {
		return nil
	}

	return e.authorizer.AuthorizeToken(msg.Channel, token)
}

// rejectionReason turns "rejected: incorrect signature" into "Incorrect signature."
func rejectionReason(err error) string {
	reason := strings.TrimPrefix(err.Error(), ErrRejected.Error()+": ")
	if reason == "" {
		return reason
	}

	return strings.ToUpper(reason[:1]) + reason[1:] + "."
}
