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

package messages

import (
	"github.com/BitBoxSwiss/paymentrequest-go/util/errp"
	"google.golang.org/protobuf/encoding/protowire"
)

// The messages are encoded in the protobuf wire format, hand-rolled on top
// of protowire. Unknown fields are skipped on decode so that older firmware
// tolerates newer hosts.

func appendUvarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// appendPackedField encodes a repeated uint32 field in packed form.
func appendPackedField(b []byte, num protowire.Number, vs []uint32) []byte {
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	return appendBytesField(b, num, packed)
}

func consumePacked(b []byte, typ protowire.Type, dst *[]uint32) (int, error) {
	// Unpacked encoding of a repeated varint field is also valid.
	if typ == protowire.VarintType {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, errp.WithStack(protowire.ParseError(n))
		}
		*dst = append(*dst, uint32(v))
		return n, nil
	}
	packed, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, errp.WithStack(protowire.ParseError(n))
	}
	for len(packed) > 0 {
		v, m := protowire.ConsumeVarint(packed)
		if m < 0 {
			return 0, errp.WithStack(protowire.ParseError(m))
		}
		*dst = append(*dst, uint32(v))
		packed = packed[m:]
	}
	return n, nil
}

// fieldFunc handles one field of a message, returning the number of bytes
// consumed from b.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// unmarshalFields drives the field loop of one message, skipping fields the
// handler does not know.
func unmarshalFields(b []byte, handle fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errp.WithStack(protowire.ParseError(n))
		}
		b = b[n:]
		consumed, err := handle(num, typ, b)
		if err != nil {
			return err
		}
		if consumed == 0 {
			consumed = protowire.ConsumeFieldValue(num, typ, b)
			if consumed < 0 {
				return errp.WithStack(protowire.ParseError(consumed))
			}
		}
		b = b[consumed:]
	}
	return nil
}

func consumeUvarint(b []byte, dst *uint64) (int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, errp.WithStack(protowire.ParseError(n))
	}
	*dst = v
	return n, nil
}

func consumeBytes(b []byte, dst *[]byte) (int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, errp.WithStack(protowire.ParseError(n))
	}
	*dst = append([]byte(nil), v...)
	return n, nil
}

func consumeString(b []byte, dst *string) (int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, errp.WithStack(protowire.ParseError(n))
	}
	*dst = v
	return n, nil
}

// Marshal encodes the output.
func (o *TxOutput) Marshal() []byte {
	var b []byte
	if o.Address != "" {
		b = appendStringField(b, 1, o.Address)
	}
	if len(o.OwnedPath) > 0 {
		b = appendPackedField(b, 2, o.OwnedPath)
	}
	b = appendUvarintField(b, 3, o.Amount)
	b = appendUvarintField(b, 4, uint64(o.ScriptType))
	if o.PaymentReqIndex != nil {
		b = appendUvarintField(b, 5, uint64(*o.PaymentReqIndex))
	}
	return b
}

// Unmarshal decodes the output.
func (o *TxOutput) Unmarshal(b []byte) error {
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(b, &o.Address)
		case 2:
			return consumePacked(b, typ, &o.OwnedPath)
		case 3:
			return consumeUvarint(b, &o.Amount)
		case 4:
			var v uint64
			n, err := consumeUvarint(b, &v)
			o.ScriptType = OutputScriptType(v)
			return n, err
		case 5:
			var v uint64
			n, err := consumeUvarint(b, &v)
			index := uint32(v)
			o.PaymentReqIndex = &index
			return n, err
		}
		return 0, nil
	})
}

func (m *TextMemo) marshal() []byte {
	var b []byte
	if m.Note != "" {
		b = appendStringField(b, 1, m.Note)
	}
	return b
}

func (m *TextMemo) unmarshal(b []byte) error {
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeString(b, &m.Note)
		}
		return 0, nil
	})
}

func (m *CoinPurchaseMemo) marshal() []byte {
	var b []byte
	b = appendUvarintField(b, 1, m.Amount)
	if m.CoinName != "" {
		b = appendStringField(b, 2, m.CoinName)
	}
	b = appendUvarintField(b, 3, uint64(m.Slip44))
	if len(m.AddressPath) > 0 {
		b = appendPackedField(b, 4, m.AddressPath)
	}
	if m.MAC != nil {
		b = appendBytesField(b, 5, m.MAC)
	}
	return b
}

func (m *CoinPurchaseMemo) unmarshal(b []byte) error {
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeUvarint(b, &m.Amount)
		case 2:
			return consumeString(b, &m.CoinName)
		case 3:
			var v uint64
			n, err := consumeUvarint(b, &v)
			m.Slip44 = uint32(v)
			return n, err
		case 4:
			return consumePacked(b, typ, &m.AddressPath)
		case 5:
			return consumeBytes(b, &m.MAC)
		}
		return 0, nil
	})
}

// Marshal encodes the memo.
func (m *Memo) Marshal() []byte {
	var b []byte
	switch {
	case m.TextMemo != nil:
		b = appendBytesField(b, 1, m.TextMemo.marshal())
	case m.CoinPurchaseMemo != nil:
		b = appendBytesField(b, 2, m.CoinPurchaseMemo.marshal())
	}
	return b
}

// Unmarshal decodes the memo.
func (m *Memo) Unmarshal(b []byte) error {
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var sub []byte
		n, err := consumeBytes(b, &sub)
		if err != nil {
			return 0, err
		}
		switch num {
		case 1:
			m.TextMemo = &TextMemo{}
			return n, m.TextMemo.unmarshal(sub)
		case 2:
			m.CoinPurchaseMemo = &CoinPurchaseMemo{}
			return n, m.CoinPurchaseMemo.unmarshal(sub)
		}
		return 0, nil
	})
}

// Marshal encodes the payment request.
func (r *PaymentRequest) Marshal() []byte {
	var b []byte
	if r.RecipientName != "" {
		b = appendStringField(b, 1, r.RecipientName)
	}
	for _, memo := range r.Memos {
		b = appendBytesField(b, 2, memo.Marshal())
	}
	if r.Nonce != nil {
		b = appendBytesField(b, 3, r.Nonce)
	}
	b = appendUvarintField(b, 4, r.Amount)
	if r.Signature != nil {
		b = appendBytesField(b, 5, r.Signature)
	}
	return b
}

// Unmarshal decodes the payment request. A missing nonce field decodes as a
// nil nonce, distinguishing a request without replay protection from one
// carrying an (invalid) empty nonce.
func (r *PaymentRequest) Unmarshal(b []byte) error {
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(b, &r.RecipientName)
		case 2:
			var sub []byte
			n, err := consumeBytes(b, &sub)
			if err != nil {
				return 0, err
			}
			memo := &Memo{}
			if err := memo.Unmarshal(sub); err != nil {
				return 0, err
			}
			r.Memos = append(r.Memos, memo)
			return n, nil
		case 3:
			return consumeBytes(b, &r.Nonce)
		case 4:
			return consumeUvarint(b, &r.Amount)
		case 5:
			return consumeBytes(b, &r.Signature)
		}
		return 0, nil
	})
}

func (r *GetAddressRequest) marshal() []byte {
	var b []byte
	b = appendUvarintField(b, 1, uint64(r.Slip44))
	if len(r.Path) > 0 {
		b = appendPackedField(b, 2, r.Path)
	}
	b = appendUvarintField(b, 3, r.Amount)
	return b
}

func (r *GetAddressRequest) unmarshal(b []byte) error {
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			var v uint64
			n, err := consumeUvarint(b, &v)
			r.Slip44 = uint32(v)
			return n, err
		case 2:
			return consumePacked(b, typ, &r.Path)
		case 3:
			return consumeUvarint(b, &r.Amount)
		}
		return 0, nil
	})
}

func (r *SignRequest) marshal() []byte {
	var b []byte
	b = appendUvarintField(b, 1, uint64(r.Slip44))
	for _, output := range r.Outputs {
		b = appendBytesField(b, 2, output.Marshal())
	}
	for _, request := range r.PaymentRequests {
		b = appendBytesField(b, 3, request.Marshal())
	}
	return b
}

func (r *SignRequest) unmarshal(b []byte) error {
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			var v uint64
			n, err := consumeUvarint(b, &v)
			r.Slip44 = uint32(v)
			return n, err
		case 2:
			var sub []byte
			n, err := consumeBytes(b, &sub)
			if err != nil {
				return 0, err
			}
			output := &TxOutput{}
			if err := output.Unmarshal(sub); err != nil {
				return 0, err
			}
			r.Outputs = append(r.Outputs, output)
			return n, nil
		case 3:
			var sub []byte
			n, err := consumeBytes(b, &sub)
			if err != nil {
				return 0, err
			}
			request := &PaymentRequest{}
			if err := request.Unmarshal(sub); err != nil {
				return 0, err
			}
			r.PaymentRequests = append(r.PaymentRequests, request)
			return n, nil
		}
		return 0, nil
	})
}

// Marshal encodes the request envelope.
func (r *Request) Marshal() []byte {
	var b []byte
	switch {
	case r.GetNonce != nil:
		b = appendBytesField(b, 1, nil)
	case r.GetAddress != nil:
		b = appendBytesField(b, 2, r.GetAddress.marshal())
	case r.Sign != nil:
		b = appendBytesField(b, 3, r.Sign.marshal())
	}
	return b
}

// Unmarshal decodes the request envelope.
func (r *Request) Unmarshal(b []byte) error {
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var sub []byte
		n, err := consumeBytes(b, &sub)
		if err != nil {
			return 0, err
		}
		switch num {
		case 1:
			r.GetNonce = &GetNonceRequest{}
			return n, nil
		case 2:
			r.GetAddress = &GetAddressRequest{}
			return n, r.GetAddress.unmarshal(sub)
		case 3:
			r.Sign = &SignRequest{}
			return n, r.Sign.unmarshal(sub)
		}
		return 0, nil
	})
}

func (r *ErrorResponse) marshal() []byte {
	var b []byte
	b = appendUvarintField(b, 1, uint64(r.Code))
	if r.Message != "" {
		b = appendStringField(b, 2, r.Message)
	}
	return b
}

func (r *ErrorResponse) unmarshal(b []byte) error {
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			var v uint64
			n, err := consumeUvarint(b, &v)
			r.Code = uint32(v)
			return n, err
		case 2:
			return consumeString(b, &r.Message)
		}
		return 0, nil
	})
}

// Marshal encodes the response envelope.
func (r *Response) Marshal() []byte {
	var b []byte
	switch {
	case r.Error != nil:
		b = appendBytesField(b, 1, r.Error.marshal())
	case r.Nonce != nil:
		var sub []byte
		if r.Nonce.Nonce != nil {
			sub = appendBytesField(sub, 1, r.Nonce.Nonce)
		}
		b = appendBytesField(b, 2, sub)
	case r.Address != nil:
		var sub []byte
		if r.Address.Address != "" {
			sub = appendStringField(sub, 1, r.Address.Address)
		}
		if r.Address.MAC != nil {
			sub = appendBytesField(sub, 2, r.Address.MAC)
		}
		b = appendBytesField(b, 3, sub)
	case r.Sign != nil:
		var sub []byte
		if r.Sign.SerializedTx != nil {
			sub = appendBytesField(sub, 1, r.Sign.SerializedTx)
		}
		b = appendBytesField(b, 4, sub)
	}
	return b
}

// Unmarshal decodes the response envelope.
func (r *Response) Unmarshal(b []byte) error {
	return unmarshalFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var sub []byte
		n, err := consumeBytes(b, &sub)
		if err != nil {
			return 0, err
		}
		switch num {
		case 1:
			r.Error = &ErrorResponse{}
			return n, r.Error.unmarshal(sub)
		case 2:
			r.Nonce = &NonceResponse{}
			return n, unmarshalFields(sub, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num == 1 {
					return consumeBytes(b, &r.Nonce.Nonce)
				}
				return 0, nil
			})
		case 3:
			r.Address = &AddressResponse{}
			return n, unmarshalFields(sub, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case 1:
					return consumeString(b, &r.Address.Address)
				case 2:
					return consumeBytes(b, &r.Address.MAC)
				}
				return 0, nil
			})
		case 4:
			r.Sign = &SignResponse{}
			return n, unmarshalFields(sub, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num == 1 {
					return consumeBytes(b, &r.Sign.SerializedTx)
				}
				return 0, nil
			})
		}
		return 0, nil
	})
}
