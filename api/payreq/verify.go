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

// Package payreq implements the device side of the payment request
// verification and binding protocol: an issuer-signed request commits,
// out-of-band, to recipient identity and amount for a subset of a
// transaction's outputs, and the device proves to the operator that the
// outputs pay who the operator thinks they pay without trusting the host.
package payreq

import (
	"github.com/BitBoxSwiss/paymentrequest-go/messages"
	"github.com/btcsuite/btcd/btcec/v2"
)

// Verifier sequences the payment request checks of a signing session and
// maps each failure to its reportable error.
type Verifier struct {
	nonces     *NonceStore
	memos      *MemoValidator
	signatures *SignatureVerifier
}

// NewVerifier creates a verifier. The nonce store is the device's single
// process-wide slot; identities are the firmware-trusted issuer keys by
// recipient name.
func NewVerifier(
	nonces *NonceStore,
	keystore *Keystore,
	identities map[string]*btcec.PublicKey,
) *Verifier {
	return &Verifier{
		nonces:     nonces,
		memos:      NewMemoValidator(keystore),
		signatures: NewSignatureVerifier(keystore, identities),
	}
}

// validateSession enforces the structural preconditions before any
// cryptographic check runs: every declared request index references an
// attached payment request, and every attached request binds at least one
// output. Violations are host programming errors, not protocol rejections.
func validateSession(outputs []*messages.TxOutput, numRequests int) error {
	bound := make([]bool, numRequests)
	for _, output := range outputs {
		if output.PaymentReqIndex == nil {
			continue
		}
		index := *output.PaymentReqIndex
		if index >= uint32(numRequests) {
			return NewInvalidRequestError("Invalid payment request index")
		}
		bound[index] = true
	}
	for _, isBound := range bound {
		if !isBound {
			return NewInvalidRequestError("Payment request not bound to any output")
		}
	}
	return nil
}

// VerifySession checks every payment request attached to one signing
// session, in attachment order. The session is accepted only if every
// request is; the first failure aborts the whole session with no partial
// acceptance. Retrying after a failure requires a freshly issued nonce and a
// newly signed request from the issuer.
func (verifier *Verifier) VerifySession(
	slip44 uint32,
	outputs []*messages.TxOutput,
	requests []*messages.PaymentRequest,
) error {
	if err := validateSession(outputs, len(requests)); err != nil {
		return err
	}
	binder := NewBinder(outputs)
	for i, request := range requests {
		if err := verifier.verifyRequest(slip44, binder, uint32(i), request); err != nil {
			return err
		}
	}
	return nil
}

// verifyRequest runs the checks of one request in their fixed order: nonce
// freshness, amount binding, memo MACs, signature. The order is a
// compatibility contract, hosts rely on the most specific diagnosis, and it
// runs the cheap local checks before the public key operation.
//
// The nonce is consumed first and stays consumed whatever happens later,
// including a user abort at the confirmation prompt after all checks passed.
func (verifier *Verifier) verifyRequest(
	slip44 uint32,
	binder *Binder,
	index uint32,
	request *messages.PaymentRequest,
) error {
	// 1. Nonce freshness. A request without a nonce is not replay protected
	// and skips this check.
	if request.Nonce != nil {
		if !verifier.nonces.Consume(request.Nonce) {
			return ErrInvalidNonce
		}
	}

	bound := binder.Bind(index)

	// 2. Amount binding.
	if err := binder.CheckAmount(request, bound); err != nil {
		return err
	}

	// 3. Memo MACs.
	for _, memo := range request.Memos {
		if err := verifier.memos.Validate(memo); err != nil {
			return err
		}
	}

	// 4. Issuer signature over the request as bound.
	return verifier.signatures.Verify(slip44, request, bound)
}
