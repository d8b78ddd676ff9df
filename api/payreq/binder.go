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
)

// Binder resolves which transaction outputs each payment request covers.
// With the request index living on the output, an output cannot be claimed
// by two requests by construction.
type Binder struct {
	outputs []*messages.TxOutput
}

// NewBinder creates a binder over the full output list of the transaction
// being signed.
func NewBinder(outputs []*messages.TxOutput) *Binder {
	return &Binder{outputs: outputs}
}

// Bind returns the outputs declaring the payment request at index, in the
// order the outputs appear in the transaction. That order, not any order
// within the request, is the binding order the signature covers.
func (binder *Binder) Bind(index uint32) []*messages.TxOutput {
	var bound []*messages.TxOutput
	for _, output := range binder.outputs {
		if output.PaymentReqIndex != nil && *output.PaymentReqIndex == index {
			bound = append(bound, output)
		}
	}
	return bound
}

// CheckAmount compares the amount the issuer declared against the sum of
// the bound outputs. A mismatch, or a sum overflowing uint64, is
// ErrInvalidAmount.
func (binder *Binder) CheckAmount(request *messages.PaymentRequest, bound []*messages.TxOutput) error {
	var sum uint64
	for _, output := range bound {
		next := sum + output.Amount
		if next < sum {
			return ErrInvalidAmount
		}
		sum = next
	}
	if sum != request.Amount {
		return ErrInvalidAmount
	}
	return nil
}
