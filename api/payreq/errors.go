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

// Code identifies a payment request verification failure. The codes are part
// of the device's wire protocol and must not be renumbered.
type Code uint32

// Verification failure codes.
const (
	// CodeInvalidRequest reports a malformed signing session: an output
	// referencing a payment request that was not attached, or a payment
	// request binding no outputs. These are host programming errors, not
	// protocol rejections.
	CodeInvalidRequest Code = 1
	// CodeInvalidNonce reports a nonce that is not the currently issued one.
	CodeInvalidNonce Code = 2
	// CodeInvalidAmount reports a declared amount that does not match the
	// sum of the bound outputs.
	CodeInvalidAmount Code = 3
	// CodeInvalidAddressMac reports a coin purchase memo whose address
	// ownership MAC does not verify.
	CodeInvalidAddressMac Code = 4
	// CodeInvalidSignature reports an issuer signature that does not verify
	// over the request as actually bound.
	CodeInvalidSignature Code = 5
)

// Error is a verification failure. Message is the stable human-facing string
// surfaced verbatim to the host; every failure is fatal to the signing
// session.
type Error struct {
	Code    Code
	Message string
}

// Error implements error.
func (e *Error) Error() string {
	return e.Message
}

// Is matches two Errors by code, so that errors.Is works across the wire
// boundary where the host reconstructs the error from its code.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Code == e.Code
}

// The verification failure taxonomy. Each error maps 1:1 to one violated
// invariant; none is ever downgraded or recovered locally.
var (
	ErrInvalidNonce      = &Error{Code: CodeInvalidNonce, Message: "Invalid nonce in payment request"}
	ErrInvalidAmount     = &Error{Code: CodeInvalidAmount, Message: "Invalid amount in payment request"}
	ErrInvalidAddressMac = &Error{Code: CodeInvalidAddressMac, Message: "Invalid address MAC"}
	ErrInvalidSignature  = &Error{Code: CodeInvalidSignature, Message: "Invalid signature in payment request"}
)

// NewInvalidRequestError reports a malformed signing session.
func NewInvalidRequestError(message string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: message}
}

// ErrorFromCode reconstructs the sentinel error for a wire error code. For
// codes outside the taxonomy (including CodeInvalidRequest, whose message is
// not fixed), the supplied message is preserved.
func ErrorFromCode(code Code, message string) *Error {
	switch code {
	case CodeInvalidNonce:
		return ErrInvalidNonce
	case CodeInvalidAmount:
		return ErrInvalidAmount
	case CodeInvalidAddressMac:
		return ErrInvalidAddressMac
	case CodeInvalidSignature:
		return ErrInvalidSignature
	}
	return &Error{Code: code, Message: message}
}
