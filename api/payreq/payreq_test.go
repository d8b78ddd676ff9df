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
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/BitBoxSwiss/paymentrequest-go/api/issuer"
	"github.com/BitBoxSwiss/paymentrequest-go/api/payreq"
	"github.com/BitBoxSwiss/paymentrequest-go/messages"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

const hardened = 0x80000000

const merchantName = "Test Merchant"

// Arbitrary values, they do not have any special meaning.
const (
	testSeedHex      = "9b1a4d293a6eef1960d8afab5e58dd581b135152ec3399bde9268fa23051321b"
	issuerPrivKeyHex = "15608dfed8e876bed1cf2599574ce853f7a2a017d19ba0aabd4bcba033a70880"
)

func unhex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// testOutputs is the output side of the transaction being signed: two
// external recipients and one change output owned by the device.
func testOutputs() []*messages.TxOutput {
	return []*messages.TxOutput{
		{
			Address:    "2N4Q5FhU2497BryFfUgbqkAJE87aKHUhXMp",
			Amount:     5000000,
			ScriptType: messages.OutputScriptTypePayToAddress,
		},
		{
			Address:    "tb1q694ccp5qcc0udmfwgp692u2s2hjpq5h407urtu",
			Amount:     2000000,
			ScriptType: messages.OutputScriptTypePayToAddress,
		},
		{
			OwnedPath:  []uint32{84 + hardened, 1 + hardened, 0 + hardened, 0, 0},
			Amount:     5289000,
			ScriptType: messages.OutputScriptTypePayToWitness,
		},
	}
}

type testEnv struct {
	keystore *payreq.Keystore
	nonces   *payreq.NonceStore
	verifier *payreq.Verifier
	issuer   *issuer.Issuer
	outputs  []*messages.TxOutput
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	keystore, err := payreq.NewKeystore(unhex(testSeedHex))
	require.NoError(t, err)
	privKey, _ := btcec.PrivKeyFromBytes(unhex(issuerPrivKeyHex))
	iss := issuer.New(merchantName, privKey)
	nonces := payreq.NewNonceStore(rand.Reader)
	verifier := payreq.NewVerifier(nonces, keystore, map[string]*btcec.PublicKey{
		merchantName: iss.PubKey(),
	})
	return &testEnv{
		keystore: keystore,
		nonces:   nonces,
		verifier: verifier,
		issuer:   iss,
		outputs:  testOutputs(),
	}
}

// bind assigns the payment request index to the chosen outputs and returns
// them in transaction order, together with the change addresses the issuer
// needs for outputs it cannot resolve itself.
func (env *testEnv) bind(
	t *testing.T, index uint32, outputIndices ...int) ([]*messages.TxOutput, []string) {
	t.Helper()
	var bound []*messages.TxOutput
	var change []string
	for _, i := range outputIndices {
		output := env.outputs[i]
		requestIndex := index
		output.PaymentReqIndex = &requestIndex
		bound = append(bound, output)
		if len(output.OwnedPath) > 0 {
			address, err := env.keystore.SegwitAddress(payreq.Slip44Testnet, output.OwnedPath)
			require.NoError(t, err)
			change = append(change, address)
		}
	}
	return bound, change
}

// makeRequest binds the chosen outputs to request index and has the issuer
// sign the resulting request.
func (env *testEnv) makeRequest(
	t *testing.T,
	index uint32,
	memos []*messages.Memo,
	withNonce bool,
	outputIndices ...int,
) *messages.PaymentRequest {
	t.Helper()
	bound, change := env.bind(t, index, outputIndices...)
	var nonce []byte
	if withNonce {
		var err error
		nonce, err = env.nonces.Issue()
		require.NoError(t, err)
	}
	request, err := env.issuer.MakeRequest(payreq.Slip44Testnet, bound, memos, nonce, change)
	require.NoError(t, err)
	return request
}

// coinPurchaseMemo builds a memo with the MAC the device would hand out for
// the claim.
func (env *testEnv) coinPurchaseMemo(
	t *testing.T, slip44 uint32, coinName string, amount uint64, path []uint32) *messages.Memo {
	t.Helper()
	mac, err := env.keystore.AddressMAC(slip44, path, coinName, amount)
	require.NoError(t, err)
	return &messages.Memo{CoinPurchaseMemo: &messages.CoinPurchaseMemo{
		Amount:      amount,
		CoinName:    coinName,
		Slip44:      slip44,
		AddressPath: path,
		MAC:         mac,
	}}
}

func (env *testEnv) verify(requests ...*messages.PaymentRequest) error {
	return env.verifier.VerifySession(payreq.Slip44Testnet, env.outputs, requests)
}
