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
	"testing"

	"github.com/BitBoxSwiss/paymentrequest-go/api/payreq"
	"github.com/stretchr/testify/require"
)

func TestNonceStore(t *testing.T) {
	store := payreq.NewNonceStore(rand.Reader)

	// Nothing issued yet.
	require.False(t, store.Consume(make([]byte, payreq.NonceSize)))

	nonce, err := store.Issue()
	require.NoError(t, err)
	require.Len(t, nonce, payreq.NonceSize)

	// A wrong candidate has no side effects.
	wrong := append([]byte(nil), nonce...)
	wrong[0] ^= 1
	require.False(t, store.Consume(wrong))
	require.False(t, store.Consume(nonce[:16]))

	// Consumption is one-shot.
	require.True(t, store.Consume(nonce))
	require.False(t, store.Consume(nonce))
}

func TestNonceStoreReplaces(t *testing.T) {
	store := payreq.NewNonceStore(rand.Reader)

	first, err := store.Issue()
	require.NoError(t, err)
	second, err := store.Issue()
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// Issuing replaced the first nonce; only the latest is live.
	require.False(t, store.Consume(first))
	require.True(t, store.Consume(second))
}
