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

// Package messages defines the wire messages exchanged between a host and
// the signer device. The messages are encoded in the protobuf wire format
// (see codec.go); the Go structs here are the in-memory representation used
// by both sides.
package messages

// OutputScriptType is the script kind of a transaction output.
type OutputScriptType int32

// Output script types.
const (
	OutputScriptTypeUnknown OutputScriptType = 0
	// OutputScriptTypePayToAddress pays to the address carried in
	// TxOutput.Address.
	OutputScriptTypePayToAddress OutputScriptType = 1
	// OutputScriptTypePayToWitness pays to a witness output owned by the
	// device, derived from TxOutput.OwnedPath.
	OutputScriptTypePayToWitness OutputScriptType = 2
)

// TxOutput is one output of the transaction being signed. Exactly one of
// Address and OwnedPath is set: external outputs carry the recipient address,
// outputs owned by the device (change) carry the keypath it is derived from.
type TxOutput struct {
	Address    string
	OwnedPath  []uint32
	Amount     uint64
	ScriptType OutputScriptType
	// PaymentReqIndex, if set, is the index into the payment request list
	// attached to the signing session that this output belongs to.
	PaymentReqIndex *uint32
}

// TextMemo is a display-only note attached to a payment request. It carries
// no cryptographic claim of its own; it is covered by the payment request
// signature.
type TextMemo struct {
	Note string
}

// CoinPurchaseMemo asserts that the address derived from AddressPath under
// the coin identified by Slip44 can receive Amount of that coin. MAC
// authenticates the assertion independently of the payment request
// signature; it is keyed by device-internal per-coin secret material.
type CoinPurchaseMemo struct {
	Amount      uint64
	CoinName    string
	Slip44      uint32
	AddressPath []uint32
	MAC         []byte
}

// Memo is a tagged union over the memo variants. Exactly one field is set.
type Memo struct {
	TextMemo         *TextMemo
	CoinPurchaseMemo *CoinPurchaseMemo
}

// PaymentRequest is an issuer-signed assertion binding a recipient name, a
// total amount and optional memos to a subset of the transaction's outputs.
type PaymentRequest struct {
	RecipientName string
	Memos         []*Memo
	// Nonce is the freshness token previously issued by the device, or nil
	// for a request without replay protection.
	Nonce  []byte
	Amount uint64
	// Signature is the issuer's 64-byte compact secp256k1 signature over the
	// canonical request digest.
	Signature []byte
}

// GetNonceRequest asks the device to issue a fresh nonce.
type GetNonceRequest struct{}

// NonceResponse carries the issued 32-byte nonce.
type NonceResponse struct {
	Nonce []byte
}

// GetAddressRequest asks the device for an address under the given coin
// together with a MAC over the ownership claim, for use in a
// CoinPurchaseMemo.
type GetAddressRequest struct {
	Slip44 uint32
	Path   []uint32
	Amount uint64
}

// AddressResponse carries the derived address and its ownership MAC.
type AddressResponse struct {
	Address string
	MAC     []byte
}

// SignRequest asks the device to verify the attached payment requests
// against the outputs and, if all of them are accepted, sign.
type SignRequest struct {
	Slip44          uint32
	Outputs         []*TxOutput
	PaymentRequests []*PaymentRequest
}

// SignResponse carries the serialized transaction after successful signing.
type SignResponse struct {
	SerializedTx []byte
}

// ErrorResponse reports a failed operation. Code identifies the failure for
// programmatic handling, Message is the stable human-facing string.
type ErrorResponse struct {
	Code    uint32
	Message string
}

// Request is the envelope for host-to-device queries. Exactly one field is
// set.
type Request struct {
	GetNonce   *GetNonceRequest
	GetAddress *GetAddressRequest
	Sign       *SignRequest
}

// Response is the envelope for device-to-host replies. Exactly one field is
// set.
type Response struct {
	Error   *ErrorResponse
	Nonce   *NonceResponse
	Address *AddressResponse
	Sign    *SignResponse
}
