// Copyright 2024 Shift Crypto AG
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package messages_test

import (
	"testing"

	"github.com/BitBoxSwiss/paymentrequest-go/messages"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestPaymentRequestRoundTrip(t *testing.T) {
	request := &messages.PaymentRequest{
		RecipientName: "Test Merchant",
		Memos: []*messages.Memo{
			{TextMemo: &messages.TextMemo{Note: "Invoice #87654321."}},
			{CoinPurchaseMemo: &messages.CoinPurchaseMemo{
				Amount:      1596360000,
				CoinName:    "Dash",
				Slip44:      5,
				AddressPath: []uint32{0x8000002c, 0x80000005, 0x80000000, 1, 0},
				MAC:         []byte{0xde, 0xad, 0xbe, 0xef},
			}},
		},
		Nonce:     make([]byte, 32),
		Amount:    7000000,
		Signature: make([]byte, 64),
	}
	decoded := &messages.PaymentRequest{}
	require.NoError(t, decoded.Unmarshal(request.Marshal()))
	require.Equal(t, request, decoded)
}

// TestPaymentRequestNoncePresence checks that a request without a nonce
// survives the round trip as nonce-less, not as a zero-length nonce.
func TestPaymentRequestNoncePresence(t *testing.T) {
	request := &messages.PaymentRequest{
		RecipientName: "Test Merchant",
		Amount:        5000000,
		Signature:     make([]byte, 64),
	}
	decoded := &messages.PaymentRequest{}
	require.NoError(t, decoded.Unmarshal(request.Marshal()))
	require.Nil(t, decoded.Nonce)

	request.Nonce = []byte{1, 2, 3}
	decoded = &messages.PaymentRequest{}
	require.NoError(t, decoded.Unmarshal(request.Marshal()))
	require.Equal(t, []byte{1, 2, 3}, decoded.Nonce)
}

func TestTxOutputRoundTrip(t *testing.T) {
	index := uint32(2)
	for _, output := range []*messages.TxOutput{
		{
			Address:         "tb1q694ccp5qcc0udmfwgp692u2s2hjpq5h407urtu",
			Amount:          2000000,
			ScriptType:      messages.OutputScriptTypePayToAddress,
			PaymentReqIndex: &index,
		},
		{
			OwnedPath:  []uint32{0x80000054, 0x80000001, 0x80000000, 1, 0},
			Amount:     5289000,
			ScriptType: messages.OutputScriptTypePayToWitness,
		},
	} {
		decoded := &messages.TxOutput{}
		require.NoError(t, decoded.Unmarshal(output.Marshal()))
		require.Equal(t, output, decoded)
	}

	// Index zero is a valid index and must not decode as absent.
	zero := uint32(0)
	output := &messages.TxOutput{Address: "addr", Amount: 1, PaymentReqIndex: &zero}
	decoded := &messages.TxOutput{}
	require.NoError(t, decoded.Unmarshal(output.Marshal()))
	require.NotNil(t, decoded.PaymentReqIndex)
	require.Zero(t, *decoded.PaymentReqIndex)
}

func TestRequestEnvelope(t *testing.T) {
	index := uint32(0)
	for _, request := range []*messages.Request{
		{GetNonce: &messages.GetNonceRequest{}},
		{GetAddress: &messages.GetAddressRequest{
			Slip44: 5,
			Path:   []uint32{0x8000002c, 0x80000005, 0x80000000, 1, 0},
			Amount: 1596360000,
		}},
		{Sign: &messages.SignRequest{
			Slip44: 1,
			Outputs: []*messages.TxOutput{
				{Address: "addr0", Amount: 5000000, PaymentReqIndex: &index},
			},
			PaymentRequests: []*messages.PaymentRequest{
				{RecipientName: "Test Merchant", Amount: 5000000, Signature: make([]byte, 64)},
			},
		}},
	} {
		decoded := &messages.Request{}
		require.NoError(t, decoded.Unmarshal(request.Marshal()))
		require.Equal(t, request, decoded)
	}
}

func TestResponseEnvelope(t *testing.T) {
	for _, response := range []*messages.Response{
		{Error: &messages.ErrorResponse{Code: 2, Message: "Invalid nonce in payment request"}},
		{Nonce: &messages.NonceResponse{Nonce: make([]byte, 32)}},
		{Address: &messages.AddressResponse{
			Address: "XeNTG4aUX8FPZQXZfjpwvpa5pdTDeKkKhM",
			MAC:     []byte{1, 2, 3, 4},
		}},
		{Sign: &messages.SignResponse{SerializedTx: []byte{0x02, 0x00, 0x00, 0x00}}},
	} {
		decoded := &messages.Response{}
		require.NoError(t, decoded.Unmarshal(response.Marshal()))
		require.Equal(t, response, decoded)
	}
}

// TestUnknownFieldsSkipped checks forward compatibility: fields added by a
// newer peer are ignored rather than failing the decode.
func TestUnknownFieldsSkipped(t *testing.T) {
	request := &messages.PaymentRequest{
		RecipientName: "Test Merchant",
		Amount:        5000000,
	}
	encoded := request.Marshal()
	encoded = protowire.AppendTag(encoded, 100, protowire.BytesType)
	encoded = protowire.AppendBytes(encoded, []byte("future"))
	encoded = protowire.AppendTag(encoded, 101, protowire.VarintType)
	encoded = protowire.AppendVarint(encoded, 42)

	decoded := &messages.PaymentRequest{}
	require.NoError(t, decoded.Unmarshal(encoded))
	require.Equal(t, request, decoded)
}

func TestTruncatedInput(t *testing.T) {
	request := &messages.PaymentRequest{
		RecipientName: "Test Merchant",
		Nonce:         make([]byte, 32),
		Amount:        5000000,
	}
	encoded := request.Marshal()
	require.Error(t, (&messages.PaymentRequest{}).Unmarshal(encoded[:len(encoded)-1]))
}
