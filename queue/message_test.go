package queue

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/threadkit/errors"
)

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(TypeCommand, []byte("stop"))
	require.NoError(t, err)
	assert.Equal(t, TypeCommand, msg.Type)
	assert.Equal(t, 4, msg.Size())
	assert.Equal(t, "stop", string(msg.Content()))
	assert.NotZero(t, msg.ID)
}

func TestNewMessageRejectsOversize(t *testing.T) {
	_, err := NewMessage(TypeData, bytes.Repeat([]byte{0xff}, MaxContentSize+1))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestNewMessageMaxSize(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, MaxContentSize)
	msg, err := NewMessage(TypeData, payload)
	require.NoError(t, err)
	assert.Equal(t, MaxContentSize, msg.Size())
	assert.Equal(t, payload, msg.Content())
}

func TestMessageIDsUnique(t *testing.T) {
	a, _ := NewMessage(TypeControl, nil)
	b, _ := NewMessage(TypeControl, nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Greater(t, b.ID, a.ID)
}

func TestMessageValueSemantics(t *testing.T) {
	payload := []byte("original")
	msg, err := NewMessage(TypeData, payload)
	require.NoError(t, err)

	// Mutating the producer's slice must not change the envelope
	payload[0] = 'X'
	assert.Equal(t, "original", string(msg.Content()))
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "command", TypeCommand.String())
	assert.Equal(t, "data", TypeData.String())
	assert.Equal(t, "relay", TypeRelay.String())
	assert.Equal(t, "control", TypeControl.String())
	assert.Equal(t, "unknown", Type(42).String())
}
