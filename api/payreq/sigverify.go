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

package payreq

import (
	"github.com/BitBoxSwiss/paymentrequest-go/messages"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// SignatureLength is the length of an issuer signature: a compact secp256k1
// ECDSA signature, r followed by s.
const SignatureLength = 64

// SignatureVerifier authenticates payment requests against the trusted
// issuer identities baked into the firmware.
type SignatureVerifier struct {
	keystore   *Keystore
	identities map[string]*btcec.PublicKey
}

// NewSignatureVerifier creates a verifier trusting the given identities,
// keyed by recipient name. The keystore resolves the addresses of bound
// outputs owned by the device.
func NewSignatureVerifier(
	keystore *Keystore, identities map[string]*btcec.PublicKey) *SignatureVerifier {
	return &SignatureVerifier{keystore: keystore, identities: identities}
}

// Verify checks the issuer signature over the canonical digest of the
// request as actually bound to the transaction. An unknown recipient, a
// malformed signature or any mismatch between signed and bound content is
// ErrInvalidSignature.
func (verifier *SignatureVerifier) Verify(
	slip44 uint32, request *messages.PaymentRequest, bound []*messages.TxOutput) error {
	pubKey, ok := verifier.identities[request.RecipientName]
	if !ok {
		return ErrInvalidSignature
	}
	if len(request.Signature) != SignatureLength {
		return ErrInvalidSignature
	}
	digest, err := Digest(slip44, request, bound, func(output *messages.TxOutput) (string, error) {
		return verifier.keystore.OutputAddress(slip44, output)
	})
	if err != nil {
		return err
	}
	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(request.Signature[:32]); overflow {
		return ErrInvalidSignature
	}
	if overflow := s.SetByteSlice(request.Signature[32:]); overflow {
		return ErrInvalidSignature
	}
	if !ecdsa.NewSignature(&r, &s).Verify(digest, pubKey) {
		return ErrInvalidSignature
	}
	return nil
}
