package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dragonfox-roomsync-server/media"
)

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", ErrEmptyMessage},
		{"missing type", `{"payload":{}}`, ErrMissingType},
		{"blank type", `{"type":"","payload":{}}`, ErrMissingType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}

func TestDecodePayload(t *testing.T) {
	env, err := Decode([]byte(`{"type":"player-event","payload":{"roomId":"r1","type":"seek","data":{"time":42}}}`))
	require.NoError(t, err)

	p, err := DecodePayload[PlayerEvent](env)
	require.NoError(t, err)
	assert.Equal(t, "r1", p.RoomID)
	assert.Equal(t, media.ActionSeek, p.Type)
	require.NotNil(t, p.Data.Time)
	assert.Equal(t, 42.0, *p.Data.Time)
	assert.Nil(t, p.Data.URL)
}

func TestDecodePayload_Missing(t *testing.T) {
	for _, input := range []string{`{"type":"join-room"}`, `{"type":"join-room","payload":null}`} {
		env, err := Decode([]byte(input))
		require.NoError(t, err)
		_, err = DecodePayload[JoinRoom](env)
		assert.ErrorIs(t, err, ErrEmptyPayload, input)
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(TypeGameClosed, GameClosed{RoomID: "r1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"game-closed","payload":{"roomId":"r1"}}`, string(data))

	data, err = Encode(TypePong, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(data))

	_, err = Encode("", nil)
	assert.ErrorIs(t, err, ErrMissingType)
}
