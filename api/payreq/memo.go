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
	"crypto/hmac"

	"github.com/BitBoxSwiss/paymentrequest-go/messages"
)

// MemoValidator verifies the address ownership MACs of coin purchase memos.
// The check is independent of the payment request signature: the MAC is
// keyed by the device's own per-coin secret, which the issuer's signing key
// domain does not cover.
type MemoValidator struct {
	keystore *Keystore
}

// NewMemoValidator creates a validator deriving MAC secrets from keystore.
func NewMemoValidator(keystore *Keystore) *MemoValidator {
	return &MemoValidator{keystore: keystore}
}

// Validate checks the cryptographic claim of one memo. Text memos carry no
// claim and always pass. A coin purchase memo passes only if its MAC equals
// the MAC the device computes over the claim; there is no unauthenticated
// fallback.
func (validator *MemoValidator) Validate(memo *messages.Memo) error {
	if memo.CoinPurchaseMemo == nil {
		return nil
	}
	purchase := memo.CoinPurchaseMemo
	expected, err := validator.keystore.AddressMAC(
		purchase.Slip44, purchase.AddressPath, purchase.CoinName, purchase.Amount)
	if err != nil {
		return err
	}
	if !hmac.Equal(expected, purchase.MAC) {
		return ErrInvalidAddressMac
	}
	return nil
}
