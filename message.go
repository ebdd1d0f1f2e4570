package privatepub

import "encoding/json"

// Payload is the content of a published message: either JavaScript evaluated by subscribers or arbitrary data.
type Payload struct {
	eval   bool
	script string
	data   interface{}
}

// Eval creates a payload holding JavaScript to evaluate in the subscribers' browsers.
func Eval(script string) Payload {
	return Payload{eval: true, script: script}
}

// Data creates a payload holding a value serialized as JSON and passed verbatim to subscribers.
func Data(v interface{}) Payload {
	return Payload{data: v}
}

// Message is the envelope posted to the Faye server.
type Message struct {
	Channel string      `json:"channel"`
	Data    MessageData `json:"data"`
	Ext     MessageExt  `json:"ext"`
}

// MessageData is the part of the Message delivered to subscribers.
type MessageData struct {
	Channel string
	Payload Payload
}

// MessageExt carries the token proving the message comes from the application.
type MessageExt struct {
	PrivatePubToken string `json:"private_pub_token"`
}

// MarshalJSON emits the channel and exactly one of the "eval" or "data" keys.
func (d MessageData) MarshalJSON() ([]byte, error) {
	if d.Payload.eval {
		return json.Marshal(struct {
			Channel string `json:"channel"`
			Eval    string `json:"eval"`
		}{d.Channel, d.Payload.script})
	}

	return json.Marshal(struct {
		Channel string      `json:"channel"`
		Data    interface{} `json:"data"`
	}{d.Channel, d.Payload.data})
}

// NewMessage builds the envelope publishing payload on channel.
func NewMessage(c Config, channel string, payload Payload) *Message {
	return &Message{
		Channel: channel,
		Data:    MessageData{Channel: channel, Payload: payload},
		Ext:     MessageExt{PrivatePubToken: c.SecretToken},
	}
}
