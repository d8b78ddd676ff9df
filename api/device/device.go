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

// Package device implements the signer device: it owns the root seed, the
// single nonce slot and the trusted issuer identities, and runs the payment
// request verification protocol as part of signing. Run serves the device
// over a framed, noise-encrypted channel.
package device

import (
	"crypto/rand"

	"github.com/BitBoxSwiss/paymentrequest-go/api/payreq"
	"github.com/BitBoxSwiss/paymentrequest-go/messages"
	"github.com/BitBoxSwiss/paymentrequest-go/util/errp"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/flynn/noise"
)

// Logger lets the caller provide a logging implementation.
type Logger interface {
	// Error logs an error.
	Error(msg string, err error)
	// Info logs some info.
	Info(msg string)
	// Debug logs debug info.
	Debug(msg string)
}

// Config lets the device persist its noise static keypair and the static
// pubkeys of hosts it has paired with.
type Config interface {
	// ContainsHostStaticPubkey returns true if the host pubkey has been
	// paired before.
	ContainsHostStaticPubkey(pubkey []byte) bool
	// AddHostStaticPubkey records a paired host pubkey.
	AddHostStaticPubkey(pubkey []byte) error
	// GetDeviceNoiseStaticKeypair returns the persisted keypair, or nil.
	GetDeviceNoiseStaticKeypair() *noise.DHKey
	// SetDeviceNoiseStaticKeypair persists the keypair.
	SetDeviceNoiseStaticKeypair(key *noise.DHKey) error
}

// Device is one signer device instance. The nonce slot lives as long as the
// device; it survives across signing sessions and is lost only with the
// device itself.
type Device struct {
	keystore *payreq.Keystore
	nonces   *payreq.NonceStore
	verifier *payreq.Verifier
	config   Config
	log      Logger
}

// NewDevice creates a device from its root seed and the issuer identities
// trusted by this firmware, keyed by recipient name.
func NewDevice(
	seed []byte,
	identities map[string]*btcec.PublicKey,
	config Config,
	log Logger,
) (*Device, error) {
	keystore, err := payreq.NewKeystore(seed)
	if err != nil {
		return nil, err
	}
	nonces := payreq.NewNonceStore(rand.Reader)
	return &Device{
		keystore: keystore,
		nonces:   nonces,
		verifier: payreq.NewVerifier(nonces, keystore, identities),
		config:   config,
		log:      log,
	}, nil
}

// Nonce issues a fresh payment request nonce. Any previously issued,
// unconsumed nonce becomes unusable.
func (device *Device) Nonce() ([]byte, error) {
	device.log.Debug("issuing payment request nonce")
	return device.nonces.Issue()
}

// AuthenticatedAddress derives the address at path under slip44 together
// with the MAC authenticating that the address belongs to this device and
// can receive amount. An issuer embeds the MAC in a coin purchase memo.
func (device *Device) AuthenticatedAddress(
	slip44 uint32, path []uint32, amount uint64) (string, []byte, error) {
	coinName, ok := payreq.CoinName(slip44)
	if !ok {
		return "", nil, errp.Newf("unknown coin type %d", slip44)
	}
	address, err := device.keystore.LegacyAddress(slip44, path)
	if err != nil {
		return "", nil, err
	}
	mac, err := device.keystore.AddressMAC(slip44, path, coinName, amount)
	if err != nil {
		return "", nil, err
	}
	return address, mac, nil
}

// Sign verifies every payment request attached to the signing request and,
// only if all of them are accepted, hands the outputs to the transaction
// serializer. Any verification failure aborts the session with no output.
func (device *Device) Sign(request *messages.SignRequest) ([]byte, error) {
	if err := device.verifier.VerifySession(
		request.Slip44, request.Outputs, request.PaymentRequests); err != nil {
		device.log.Error("payment request verification failed", err)
		return nil, err
	}
	if len(request.PaymentRequests) > 0 {
		device.log.Info("payment requests accepted")
	}
	return device.serializeTx(request.Slip44, request.Outputs)
}
