package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrMissingType  = errors.New("missing message type")
	ErrEmptyPayload = errors.New("empty payload")
)

func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, ErrMissingType
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", t, err)
		}
		raw = b
	}
	return json.Marshal(Envelope{Type: t, Payload: raw})
}

func Decode(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return Envelope{}, ErrEmptyMessage
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, ErrMissingType
	}
	return env, nil
}

// DecodePayload unmarshals the envelope payload into T.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return out, fmt.Errorf("%s: %w", env.Type, ErrEmptyPayload)
	}
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return out, nil
}
