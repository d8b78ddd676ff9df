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
	"crypto/sha256"
	"io"

	"github.com/BitBoxSwiss/paymentrequest-go/messages"
	"github.com/BitBoxSwiss/paymentrequest-go/util/errp"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/crypto/hkdf"
)

// macKeySalt separates the address MAC key derivation from any other use of
// the root seed.
var macKeySalt = []byte("payment-request-address-mac")

// Keystore derives addresses and per-coin MAC secrets from the device root
// seed. The seed never leaves the keystore.
type Keystore struct {
	master *hdkeychain.ExtendedKey
	seed   []byte
}

// NewKeystore creates a keystore from the device root seed (16 to 64 bytes,
// as accepted by BIP32 master key generation).
func NewKeystore(seed []byte) (*Keystore, error) {
	// The net params only select the extended key version bytes, which never
	// appear in addresses or MACs.
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, errp.WithMessage(errp.WithStack(err), "failed to derive master key")
	}
	return &Keystore{
		master: master,
		seed:   append([]byte(nil), seed...),
	}, nil
}

func (keystore *Keystore) derivePubKey(path []uint32) (*btcec.PublicKey, error) {
	key := keystore.master
	for _, element := range path {
		var err error
		key, err = key.Derive(element)
		if err != nil {
			return nil, errp.WithStack(err)
		}
	}
	pubKey, err := key.ECPubKey()
	if err != nil {
		return nil, errp.WithStack(err)
	}
	return pubKey, nil
}

func (keystore *Keystore) pubKeyHash(path []uint32) ([]byte, error) {
	pubKey, err := keystore.derivePubKey(path)
	if err != nil {
		return nil, err
	}
	return btcutil.Hash160(pubKey.SerializeCompressed()), nil
}

// LegacyAddress renders the base58 P2PKH address at path under the given
// coin. This is the address format coin purchase memos are verified against.
func (keystore *Keystore) LegacyAddress(slip44 uint32, path []uint32) (string, error) {
	info, ok := coins[slip44]
	if !ok {
		return "", errp.Newf("unknown coin type %d", slip44)
	}
	hash, err := keystore.pubKeyHash(path)
	if err != nil {
		return "", err
	}
	address, err := btcutil.NewAddressPubKeyHash(
		hash, &chaincfg.Params{PubKeyHashAddrID: info.pubKeyHashAddrID})
	if err != nil {
		return "", errp.WithStack(err)
	}
	return address.EncodeAddress(), nil
}

// SegwitAddress renders the native segwit address at path under a coin the
// device can sign for.
func (keystore *Keystore) SegwitAddress(slip44 uint32, path []uint32) (string, error) {
	params, ok := ChainParams(slip44)
	if !ok {
		return "", errp.Newf("coin type %d has no segwit addresses", slip44)
	}
	hash, err := keystore.pubKeyHash(path)
	if err != nil {
		return "", err
	}
	address, err := btcutil.NewAddressWitnessPubKeyHash(hash, params)
	if err != nil {
		return "", errp.WithStack(err)
	}
	return address.EncodeAddress(), nil
}

// OutputAddress renders the address of one transaction output under the coin
// being signed for: external outputs carry their address, owned outputs are
// derived from the keystore.
func (keystore *Keystore) OutputAddress(slip44 uint32, output *messages.TxOutput) (string, error) {
	if output.Address != "" {
		return output.Address, nil
	}
	if len(output.OwnedPath) == 0 {
		return "", errp.New("output has neither address nor keypath")
	}
	return keystore.SegwitAddress(slip44, output.OwnedPath)
}

// macKey derives the per-coin secret keying address ownership MACs. The
// secret is bound to the coin type, so a MAC for one coin never verifies
// under another.
func (keystore *Keystore) macKey(slip44 uint32) ([]byte, error) {
	reader := hkdf.New(sha256.New, keystore.seed, macKeySalt, uint32LE(slip44))
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, errp.WithStack(err)
	}
	return key, nil
}

// AddressMAC computes the MAC authenticating that the address derived from
// path under slip44 belongs to this device and can receive amount. coinName
// is bound as supplied so a renamed coin claim fails verification.
func (keystore *Keystore) AddressMAC(
	slip44 uint32, path []uint32, coinName string, amount uint64) ([]byte, error) {
	address, err := keystore.LegacyAddress(slip44, path)
	if err != nil {
		return nil, err
	}
	key, err := keystore.macKey(slip44)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	hashBytesPrefixed(mac, []byte(coinName))
	mac.Write(uint32LE(slip44))
	hashBytesPrefixed(mac, []byte(address))
	mac.Write(uint64LE(amount))
	return mac.Sum(nil), nil
}
