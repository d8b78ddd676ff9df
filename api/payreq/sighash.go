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
	"crypto/sha256"
	"encoding/binary"
	"io"

	"github.com/BitBoxSwiss/paymentrequest-go/messages"
	"github.com/BitBoxSwiss/paymentrequest-go/util/errp"
)

// sighashMagic starts the canonical encoding of every payment request
// digest, separating it from any other signature domain.
var sighashMagic = []byte("SL\x00\x24")

// Memo type tags in the canonical encoding.
const (
	memoTypeText         byte = 0x01
	memoTypeCoinPurchase byte = 0x02
)

func uint32LE(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func uint64LE(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// hashBytesPrefixed writes b preceded by its varint length, so that
// adjacent variable-length fields cannot be shifted into each other.
func hashBytesPrefixed(w io.Writer, b []byte) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(b)))
	_, _ = w.Write(lenBuf[:n])
	_, _ = w.Write(b)
}

func hashUvarint(w io.Writer, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, _ = w.Write(buf[:n])
}

// AddressResolver renders the address of a transaction output bound to a
// payment request. The device resolves owned outputs from its own keys; the
// issuer side is told the change addresses by the host.
type AddressResolver func(output *messages.TxOutput) (string, error)

// Digest computes the canonical digest the issuer signs: the nonce or its
// absence, the recipient name, the memos' non-MAC fields, the coin type and
// the bound outputs in binding order as (address, amount) pairs. Any
// difference between the request as received and as actually bound changes
// the digest.
//
// The memo MACs are deliberately excluded: they authenticate the issuer's
// claim about a foreign-coin address under the device's own secret, which
// the issuer's signing key does not cover (see MemoValidator).
func Digest(
	slip44 uint32,
	request *messages.PaymentRequest,
	bound []*messages.TxOutput,
	resolve AddressResolver,
) ([]byte, error) {
	h := sha256.New()
	h.Write(sighashMagic)
	// A nil nonce hashes as a zero length marker, so stripping a nonce
	// changes the digest.
	hashBytesPrefixed(h, request.Nonce)
	hashBytesPrefixed(h, []byte(request.RecipientName))
	hashUvarint(h, uint64(len(request.Memos)))
	for _, memo := range request.Memos {
		switch {
		case memo.TextMemo != nil:
			h.Write([]byte{memoTypeText})
			hashBytesPrefixed(h, []byte(memo.TextMemo.Note))
		case memo.CoinPurchaseMemo != nil:
			purchase := memo.CoinPurchaseMemo
			h.Write([]byte{memoTypeCoinPurchase})
			h.Write(uint64LE(purchase.Amount))
			hashBytesPrefixed(h, []byte(purchase.CoinName))
			h.Write(uint32LE(purchase.Slip44))
			hashUvarint(h, uint64(len(purchase.AddressPath)))
			for _, element := range purchase.AddressPath {
				h.Write(uint32LE(element))
			}
		default:
			return nil, errp.New("memo has no variant set")
		}
	}
	h.Write(uint32LE(slip44))
	for _, output := range bound {
		address, err := resolve(output)
		if err != nil {
			return nil, err
		}
		hashBytesPrefixed(h, []byte(address))
		h.Write(uint64LE(output.Amount))
	}
	return h.Sum(nil), nil
}
