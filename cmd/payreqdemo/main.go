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

// Package main walks a full payment request purchase against an in-process
// device: pair over the encrypted channel, fetch an authenticated address
// and a nonce, have the merchant issue a signed payment request, sign the
// transaction and show that replaying the session is rejected.
package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"net"

	"github.com/BitBoxSwiss/paymentrequest-go/api/device"
	"github.com/BitBoxSwiss/paymentrequest-go/api/device/mocks"
	"github.com/BitBoxSwiss/paymentrequest-go/api/host"
	"github.com/BitBoxSwiss/paymentrequest-go/api/issuer"
	"github.com/BitBoxSwiss/paymentrequest-go/api/payreq"
	"github.com/BitBoxSwiss/paymentrequest-go/communication/usart"
	"github.com/BitBoxSwiss/paymentrequest-go/messages"
	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	channelCmd = 0xc3

	HARDENED = 0x80000000
)

// Demo values, they do not have any special meaning.
const (
	seedHex          = "9b1a4d293a6eef1960d8afab5e58dd581b135152ec3399bde9268fa23051321b"
	issuerPrivKeyHex = "15608dfed8e876bed1cf2599574ce853f7a2a017d19ba0aabd4bcba033a70880"
)

func unhex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func errpanic(err error) {
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func main() {
	privKey, _ := btcec.PrivKeyFromBytes(unhex(issuerPrivKeyHex))
	merchant := issuer.New("Test Merchant", privKey)

	signer, err := device.NewDevice(
		unhex(seedHex),
		map[string]*btcec.PublicKey{merchant.Name(): merchant.PubKey()},
		&mocks.Config{},
		&mocks.Logger{},
	)
	errpanic(err)

	deviceConn, hostConn := net.Pipe()
	go func() {
		errpanic(signer.Run(deviceConn, channelCmd))
	}()

	client, err := host.Connect(usart.NewCommunication(hostConn, channelCmd))
	errpanic(err)
	defer client.Close()
	fmt.Println("channel established")

	// The merchant sells Dash for testnet coins. The device hands out the
	// receiving address together with the MAC proving it owns the address.
	dashPath := []uint32{44 + HARDENED, 5 + HARDENED, 0 + HARDENED, 1, 0}
	dashAmount := uint64(1596360000)
	dashAddress, dashMAC, err := client.AuthenticatedAddress(
		payreq.Slip44Dash, dashPath, dashAmount)
	errpanic(err)
	fmt.Printf("buying 15.9636 DASH to %s\n", dashAddress)

	nonce, err := client.Nonce()
	errpanic(err)
	fmt.Printf("nonce: %x\n", nonce)

	paymentRequestIndex := uint32(0)
	outputs := []*messages.TxOutput{
		{
			Address:         "tb1q694ccp5qcc0udmfwgp692u2s2hjpq5h407urtu",
			Amount:          2000000,
			ScriptType:      messages.OutputScriptTypePayToAddress,
			PaymentReqIndex: &paymentRequestIndex,
		},
	}
	memos := []*messages.Memo{{CoinPurchaseMemo: &messages.CoinPurchaseMemo{
		Amount:      dashAmount,
		CoinName:    "Dash",
		Slip44:      payreq.Slip44Dash,
		AddressPath: dashPath,
		MAC:         dashMAC,
	}}}
	paymentRequest, err := merchant.MakeRequest(
		payreq.Slip44Testnet, outputs, memos, nonce, nil)
	errpanic(err)

	serializedTx, err := client.Sign(
		payreq.Slip44Testnet, outputs, []*messages.PaymentRequest{paymentRequest})
	errpanic(err)
	fmt.Printf("signed tx: %x\n", serializedTx)

	_, err = client.Sign(
		payreq.Slip44Testnet, outputs, []*messages.PaymentRequest{paymentRequest})
	fmt.Printf("replay rejected: %v\n", err)
}
