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
	"github.com/btcsuite/btcd/chaincfg"
)

// SLIP-44 coin types known to the device.
const (
	Slip44Bitcoin     uint32 = 0
	Slip44Testnet     uint32 = 1
	Slip44Dash        uint32 = 5
	Slip44Groestlcoin uint32 = 17
)

// coin describes what the device needs to render addresses for a SLIP-44
// coin type. Coins without chain params can appear in coin purchase memos
// but cannot be signed for.
type coin struct {
	name string
	// pubKeyHashAddrID is the base58 version byte of P2PKH addresses.
	pubKeyHashAddrID byte
	params           *chaincfg.Params
}

var coins = map[uint32]*coin{
	Slip44Bitcoin:     {name: "Bitcoin", pubKeyHashAddrID: 0x00, params: &chaincfg.MainNetParams},
	Slip44Testnet:     {name: "Testnet", pubKeyHashAddrID: 0x6f, params: &chaincfg.TestNet3Params},
	Slip44Dash:        {name: "Dash", pubKeyHashAddrID: 0x4c},
	Slip44Groestlcoin: {name: "Groestlcoin", pubKeyHashAddrID: 0x24},
}

// CoinName returns the display name of a SLIP-44 coin type known to the
// device, and whether it is known.
func CoinName(slip44 uint32) (string, bool) {
	info, ok := coins[slip44]
	if !ok {
		return "", false
	}
	return info.name, true
}

// ChainParams returns the chain parameters of a coin the device can sign
// for, and whether it can.
func ChainParams(slip44 uint32) (*chaincfg.Params, bool) {
	info, ok := coins[slip44]
	if !ok || info.params == nil {
		return nil, false
	}
	return info.params, true
}
