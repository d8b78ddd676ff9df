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

package device

import (
	"bytes"

	"github.com/BitBoxSwiss/paymentrequest-go/api/payreq"
	"github.com/BitBoxSwiss/paymentrequest-go/util/errp"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/BitBoxSwiss/paymentrequest-go/messages"
)

// serializeTx assembles the output side of the transaction for the accepted
// outputs. The full signing engine (inputs, witnesses, confirmation UI)
// sits behind this seam; it runs only after every payment request was
// accepted.
func (device *Device) serializeTx(slip44 uint32, outputs []*messages.TxOutput) ([]byte, error) {
	params, ok := payreq.ChainParams(slip44)
	if !ok {
		return nil, errp.Newf("cannot sign for coin type %d", slip44)
	}
	tx := wire.NewMsgTx(2)
	for _, output := range outputs {
		address, err := device.keystore.OutputAddress(slip44, output)
		if err != nil {
			return nil, err
		}
		decoded, err := btcutil.DecodeAddress(address, params)
		if err != nil {
			return nil, errp.WithStack(err)
		}
		script, err := txscript.PayToAddrScript(decoded)
		if err != nil {
			return nil, errp.WithStack(err)
		}
		tx.AddTxOut(wire.NewTxOut(int64(output.Amount), script))
	}
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, errp.WithStack(err)
	}
	return buf.Bytes(), nil
}
