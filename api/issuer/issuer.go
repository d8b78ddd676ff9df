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

// Package issuer implements the payment processor side of the payment
// request protocol: it assembles a request covering a subset of transaction
// outputs and signs its canonical digest. Production issuers run this on
// their backend; here it also serves the integration tests and demos.
package issuer

import (
	"github.com/BitBoxSwiss/paymentrequest-go/api/payreq"
	"github.com/BitBoxSwiss/paymentrequest-go/messages"
	"github.com/BitBoxSwiss/paymentrequest-go/util/errp"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Issuer signs payment requests under a recipient name. A device accepts
// the requests only if it trusts the issuer's public key under that name.
type Issuer struct {
	name    string
	privKey *btcec.PrivateKey
}

// New creates an issuer signing as the given recipient name.
func New(name string, privKey *btcec.PrivateKey) *Issuer {
	return &Issuer{name: name, privKey: privKey}
}

// Name returns the recipient name the issuer signs as.
func (issuer *Issuer) Name() string {
	return issuer.name
}

// PubKey returns the public key a device must trust under the issuer's name.
func (issuer *Issuer) PubKey() *btcec.PublicKey {
	return issuer.privKey.PubKey()
}

// MakeRequest assembles and signs a payment request covering bound, the
// covered outputs in the order they appear in the transaction, with their
// request index already assigned. changeAddresses supplies, in output
// order, the addresses of bound outputs owned by the device, which the
// issuer cannot derive itself. The declared amount is the sum of the bound
// outputs; memos may be nil; a nil nonce produces a request without replay
// protection.
func (issuer *Issuer) MakeRequest(
	slip44 uint32,
	bound []*messages.TxOutput,
	memos []*messages.Memo,
	nonce []byte,
	changeAddresses []string,
) (*messages.PaymentRequest, error) {
	var amount uint64
	for _, output := range bound {
		amount += output.Amount
	}
	request := &messages.PaymentRequest{
		RecipientName: issuer.name,
		Memos:         memos,
		Nonce:         nonce,
		Amount:        amount,
	}
	change := changeAddresses
	digest, err := payreq.Digest(slip44, request, bound,
		func(output *messages.TxOutput) (string, error) {
			if output.Address != "" {
				return output.Address, nil
			}
			if len(change) == 0 {
				return "", errp.New("no change address supplied for owned output")
			}
			address := change[0]
			change = change[1:]
			return address, nil
		})
	if err != nil {
		return nil, err
	}
	signature, err := ecdsa.SignCompact(issuer.privKey, digest, true)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	// Strip the recovery byte; the device verifies against a fixed key.
	request.Signature = signature[1:]
	return request, nil
}
