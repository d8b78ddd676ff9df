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
	"crypto/subtle"
	"io"

	"github.com/BitBoxSwiss/paymentrequest-go/util/errp"
)

// NonceSize is the size of a freshness nonce in bytes.
const NonceSize = 32

// NonceStore holds the device's single nonce slot. At most one nonce is live
// at any time; issuing a new one silently replaces an unconsumed predecessor.
// The slot lives for the device process lifetime, across signing sessions.
//
// Callers get only Issue and Consume; the slot itself is never exposed, so
// the one-shot contract cannot be bypassed.
type NonceStore struct {
	rand   io.Reader
	active [NonceSize]byte
	live   bool
}

// NewNonceStore creates a nonce store drawing randomness from rand.
func NewNonceStore(rand io.Reader) *NonceStore {
	return &NonceStore{rand: rand}
}

// Issue generates a fresh random nonce, makes it the sole active nonce and
// returns a copy. A previously issued, unconsumed nonce becomes unusable.
func (store *NonceStore) Issue() ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(store.rand, nonce[:]); err != nil {
		return nil, errp.WithMessage(errp.WithStack(err), "failed to generate nonce")
	}
	store.active = nonce
	store.live = true
	result := make([]byte, NonceSize)
	copy(result, nonce[:])
	return result, nil
}

// Consume invalidates the active nonce and returns true if candidate equals
// it. Any other candidate, including a previously consumed nonce or one
// issued before the latest Issue, returns false without side effects. A
// consumed and an unknown nonce are indistinguishable to the caller.
func (store *NonceStore) Consume(candidate []byte) bool {
	if !store.live {
		return false
	}
	if subtle.ConstantTimeCompare(candidate, store.active[:]) != 1 {
		return false
	}
	store.live = false
	store.active = [NonceSize]byte{}
	return true
}
