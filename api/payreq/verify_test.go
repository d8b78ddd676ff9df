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

package payreq_test

import (
	"testing"

	"github.com/BitBoxSwiss/paymentrequest-go/api/payreq"
	"github.com/BitBoxSwiss/paymentrequest-go/messages"
	"github.com/stretchr/testify/require"
)

var (
	dashPath1 = []uint32{44 + hardened, 5 + hardened, 0 + hardened, 1, 0}
	grsPath   = []uint32{44 + hardened, 17 + hardened, 0 + hardened, 0, 3}
)

// TestVariants walks the accepted request shapes: single and multiple
// outputs per request, coin purchase and text memos, and a session mixing a
// request without a nonce with one carrying one. Each variant must verify,
// and resubmitting the identical session must fail on nonce freshness.
func TestVariants(t *testing.T) {
	type requestParams struct {
		outputs []int
		memos   string
		nonce   bool
	}
	for _, test := range []struct {
		name     string
		requests []requestParams
	}{
		{"out0", []requestParams{{[]int{0}, "dash", true}}},
		{"out1", []requestParams{{[]int{1}, "dash+grs", true}}},
		{"out2", []requestParams{{[]int{2}, "", true}}},
		{"out0+out1", []requestParams{
			{[]int{0}, "", false},
			{[]int{1}, "", true},
		}},
		{"out01", []requestParams{{[]int{0, 1}, "text", true}}},
		{"out012", []requestParams{{[]int{0, 1, 2}, "", true}}},
		{"out12", []requestParams{{[]int{1, 2}, "", true}}},
	} {
		test := test
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv(t)
			var requests []*messages.PaymentRequest
			for i, params := range test.requests {
				var memos []*messages.Memo
				switch params.memos {
				case "dash":
					memos = []*messages.Memo{
						env.coinPurchaseMemo(t, payreq.Slip44Dash, "Dash", 1596360000, dashPath1),
					}
				case "dash+grs":
					memos = []*messages.Memo{
						env.coinPurchaseMemo(t, payreq.Slip44Dash, "Dash", 318960000, dashPath1),
						env.coinPurchaseMemo(t, payreq.Slip44Groestlcoin, "Groestlcoin", 83157080200, grsPath),
					}
				case "text":
					memos = []*messages.Memo{
						{TextMemo: &messages.TextMemo{Note: "Invoice #87654321."}},
					}
				}
				requests = append(requests,
					env.makeRequest(t, uint32(i), memos, params.nonce, params.outputs...))
			}
			require.NoError(t, env.verify(requests...))

			// The nonce was invalidated; the identical session must not
			// verify a second time.
			require.ErrorIs(t, env.verify(requests...), payreq.ErrInvalidNonce)
		})
	}
}

// TestWrongAmount covers a declared total one unit below the true sum of
// the bound outputs.
func TestWrongAmount(t *testing.T) {
	env := newTestEnv(t)
	request := env.makeRequest(t, 0, nil, true, 0, 1)
	request.Amount--
	require.ErrorIs(t, env.verify(request), payreq.ErrInvalidAmount)
}

// TestWrongMAC covers a corrupted memo MAC. The MAC is not part of the
// signed payload, so the (unmodified) signature would still verify; the MAC
// check must fail on its own.
func TestWrongMAC(t *testing.T) {
	env := newTestEnv(t)
	memo := env.coinPurchaseMemo(t, payreq.Slip44Dash, "Dash", 2234904000, dashPath1)
	request := env.makeRequest(t, 0, []*messages.Memo{memo}, true, 0, 1)
	request.Memos[0].CoinPurchaseMemo.MAC[0] ^= 1
	require.ErrorIs(t, env.verify(request), payreq.ErrInvalidAddressMac)
}

// TestWrongOutput covers an output address substituted after signing, with
// amount and request index unchanged: the amount check still passes and the
// failure is attributed to the signature.
func TestWrongOutput(t *testing.T) {
	env := newTestEnv(t)
	request := env.makeRequest(t, 0, nil, true, 0, 1)
	env.outputs[1] = &messages.TxOutput{
		Address:         "tb1qnspxpr2xj9s2jt6qlhuvdnxw6q55jvygcf89r2",
		Amount:          env.outputs[1].Amount,
		ScriptType:      env.outputs[1].ScriptType,
		PaymentReqIndex: env.outputs[1].PaymentReqIndex,
	}
	require.ErrorIs(t, env.verify(request), payreq.ErrInvalidSignature)
}

// TestStrippedNonce covers a man in the middle removing the nonce from a
// signed request: freshness checking would be skipped, but the signature no
// longer covers the request.
func TestStrippedNonce(t *testing.T) {
	env := newTestEnv(t)
	request := env.makeRequest(t, 0, nil, true, 0)
	request.Nonce = nil
	require.ErrorIs(t, env.verify(request), payreq.ErrInvalidSignature)
}

// TestCheckOrder pins the failure precedence: nonce before amount before
// memo MACs before signature. Hosts rely on the most specific diagnosis.
func TestCheckOrder(t *testing.T) {
	t.Run("nonce-before-amount", func(t *testing.T) {
		env := newTestEnv(t)
		request := env.makeRequest(t, 0, nil, true, 0, 1)
		// A newer nonce invalidates the one in the request.
		_, err := env.nonces.Issue()
		require.NoError(t, err)
		request.Amount--
		require.ErrorIs(t, env.verify(request), payreq.ErrInvalidNonce)
	})

	t.Run("amount-before-mac", func(t *testing.T) {
		env := newTestEnv(t)
		memo := env.coinPurchaseMemo(t, payreq.Slip44Dash, "Dash", 2234904000, dashPath1)
		request := env.makeRequest(t, 0, []*messages.Memo{memo}, true, 0, 1)
		request.Amount--
		request.Memos[0].CoinPurchaseMemo.MAC[0] ^= 1
		require.ErrorIs(t, env.verify(request), payreq.ErrInvalidAmount)
	})

	t.Run("mac-before-signature", func(t *testing.T) {
		env := newTestEnv(t)
		memo := env.coinPurchaseMemo(t, payreq.Slip44Dash, "Dash", 2234904000, dashPath1)
		request := env.makeRequest(t, 0, []*messages.Memo{memo}, true, 0, 1)
		request.Memos[0].CoinPurchaseMemo.MAC[0] ^= 1
		request.RecipientName = "Someone Else"
		require.ErrorIs(t, env.verify(request), payreq.ErrInvalidAddressMac)
	})
}

// TestNonceConsumedOnFailure checks that a failed session still consumes
// the nonce: retrying the identical request fails on freshness, not on the
// original failure.
func TestNonceConsumedOnFailure(t *testing.T) {
	env := newTestEnv(t)
	request := env.makeRequest(t, 0, nil, true, 0, 1)
	request.Amount--
	require.ErrorIs(t, env.verify(request), payreq.ErrInvalidAmount)
	require.ErrorIs(t, env.verify(request), payreq.ErrInvalidNonce)
}

// TestUnknownRecipient covers a request signed under a name the firmware
// does not trust.
func TestUnknownRecipient(t *testing.T) {
	env := newTestEnv(t)
	request := env.makeRequest(t, 0, nil, true, 0)
	request.RecipientName = "Unknown Merchant"
	require.ErrorIs(t, env.verify(request), payreq.ErrInvalidSignature)
}

func TestSessionPreconditions(t *testing.T) {
	t.Run("index-out-of-range", func(t *testing.T) {
		env := newTestEnv(t)
		request := env.makeRequest(t, 0, nil, true, 0)
		badIndex := uint32(5)
		env.outputs[1].PaymentReqIndex = &badIndex
		err := env.verify(request)
		var protocolErr *payreq.Error
		require.ErrorAs(t, err, &protocolErr)
		require.Equal(t, payreq.CodeInvalidRequest, protocolErr.Code)
	})

	t.Run("request-binds-no-output", func(t *testing.T) {
		env := newTestEnv(t)
		request := env.makeRequest(t, 0, nil, true, 0)
		env.outputs[0].PaymentReqIndex = nil
		err := env.verify(request)
		var protocolErr *payreq.Error
		require.ErrorAs(t, err, &protocolErr)
		require.Equal(t, payreq.CodeInvalidRequest, protocolErr.Code)
	})
}
