package domain

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uint64Ptr(v uint64) *uint64 { return &v }

func TestEncodeDecodeMessage(t *testing.T) {
	orderID := uuid.New()
	message := &Message{
		Version:   MessageVersion,
		ID:        &orderID,
		RequestID: uint64Ptr(77),
		Action:    ActionNewOrder,
		Payload: &Payload{
			Order: &Order{
				Kind:          OrderKindSell,
				Status:        StatusPending,
				FiatCode:      "VES",
				FiatAmount:    100,
				PaymentMethod: "face to face",
			},
		},
	}

	encoded, err := EncodeMessage(message)
	require.NoError(t, err)
	assert.Contains(t, encoded, `"order":{`)
	assert.Contains(t, encoded, `"action":"new-order"`)

	decoded, err := DecodeMessage(encoded)
	require.NoError(t, err)
	assert.Equal(t, message, decoded)
}

func TestMessageCategoryWrapper(t *testing.T) {
	reason := CantDoOutOfRangeFiatAmount
	tests := []struct {
		name    string
		message *Message
		field   string
	}{
		{
			name:    "order category",
			message: &Message{Version: MessageVersion, Action: ActionFiatSent},
			field:   "order",
		},
		{
			name:    "dispute category",
			message: &Message{Version: MessageVersion, Action: ActionDispute},
			field:   "dispute",
		},
		{
			name: "cant-do category",
			message: &Message{
				Version: MessageVersion,
				Action:  ActionCantDo,
				Payload: &Payload{CantDo: &reason},
			},
			field: "cant-do",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeMessage(tt.message)
			require.NoError(t, err)

			raw := map[string]json.RawMessage{}
			require.NoError(t, json.Unmarshal([]byte(encoded), &raw))
			assert.Contains(t, raw, tt.field)
			assert.Len(t, raw, 1)
		})
	}
}

func TestDecodeMessageUnknownCategory(t *testing.T) {
	_, err := DecodeMessage(`{"something-else":{"action":"new-order"}}`)
	assert.ErrorIs(t, err, ErrSerialization)

	_, err = DecodeMessage(`not json at all`)
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestSignedMessageTupleRoundTrip(t *testing.T) {
	privateKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	message := &Message{Version: MessageVersion, Action: ActionFiatSent}
	signature, err := SignMessage(message, privateKey)
	require.NoError(t, err)

	tuple := SignedMessage{Message: message, Signature: signature}
	data, err := json.Marshal(tuple)
	require.NoError(t, err)

	decoded := SignedMessage{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, message, decoded.Message)
	assert.Equal(t, signature, decoded.Signature)
}

func TestSignedMessageNullSignature(t *testing.T) {
	tuple := SignedMessage{
		Message: &Message{Version: MessageVersion, Action: ActionCancel},
	}
	data, err := json.Marshal(tuple)
	require.NoError(t, err)
	assert.Contains(t, string(data), "null")

	decoded := SignedMessage{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Empty(t, decoded.Signature)
	assert.Equal(t, ActionCancel, decoded.Message.Action)
}

func TestVerifyMessageSignature(t *testing.T) {
	privateKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pubKeyHex := hex.EncodeToString(privateKey.PubKey().SerializeCompressed()[1:])

	message := &Message{Version: MessageVersion, Action: ActionRelease}
	signature, err := SignMessage(message, privateKey)
	require.NoError(t, err)

	assert.True(t, VerifyMessageSignature(message, signature, pubKeyHex))

	tampered := &Message{Version: MessageVersion, Action: ActionCancel}
	assert.False(t, VerifyMessageSignature(tampered, signature, pubKeyHex))
}
