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

// Package host implements the host side of the device channel: it pairs
// with a device over a framed transport and issues the protocol queries.
// Verification failures reported by the device are surfaced as the payreq
// sentinel errors.
package host

import (
	"crypto/rand"

	"github.com/BitBoxSwiss/paymentrequest-go/api/payreq"
	"github.com/BitBoxSwiss/paymentrequest-go/messages"
	"github.com/BitBoxSwiss/paymentrequest-go/util/errp"
	"github.com/flynn/noise"
)

// Channel opcodes, mirrored by the device.
const (
	opHandshakeInit = byte('h')
	opNoiseMsg      = byte('n')

	statusSuccess = byte(0x00)
)

var noisePrologue = []byte("Noise_XX_25519_ChaChaPoly_SHA256")

// Communication is the transport the client queries the device over.
type Communication interface {
	Query([]byte) ([]byte, error)
	Close()
}

// Client is a paired host connection to a device.
type Client struct {
	communication Communication
	sendCipher    *noise.CipherState
	receiveCipher *noise.CipherState
}

// Connect performs the noise handshake with the device (host as initiator)
// and returns a client ready to query.
func Connect(communication Communication) (*Client, error) {
	cipherSuite := noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)
	keypair, err := cipherSuite.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	handshake, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXX,
		StaticKeypair: keypair,
		Prologue:      noisePrologue,
		Initiator:     true,
	})
	if err != nil {
		return nil, errp.WithStack(err)
	}
	status, err := communication.Query([]byte{opHandshakeInit})
	if err != nil {
		return nil, err
	}
	if len(status) != 1 || status[0] != statusSuccess {
		return nil, errp.New("device rejected the handshake")
	}
	msg, _, _, err := handshake.WriteMessage(nil, nil)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	reply, err := communication.Query(msg)
	if err != nil {
		return nil, err
	}
	if _, _, _, err := handshake.ReadMessage(nil, reply); err != nil {
		return nil, errp.WithStack(err)
	}
	msg, sendCipher, receiveCipher, err := handshake.WriteMessage(nil, nil)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	status, err = communication.Query(msg)
	if err != nil {
		return nil, err
	}
	if len(status) != 1 || status[0] != statusSuccess {
		return nil, errp.New("device requires pairing verification")
	}
	return &Client{
		communication: communication,
		sendCipher:    sendCipher,
		receiveCipher: receiveCipher,
	}, nil
}

// query sends one encrypted request and decodes the response. A device
// error response is returned as the matching payreq error.
func (client *Client) query(request *messages.Request) (*messages.Response, error) {
	encrypted, err := client.sendCipher.Encrypt(nil, nil, request.Marshal())
	if err != nil {
		return nil, errp.WithStack(err)
	}
	reply, err := client.communication.Query(append([]byte{opNoiseMsg}, encrypted...))
	if err != nil {
		return nil, err
	}
	decrypted, err := client.receiveCipher.Decrypt(nil, nil, reply)
	if err != nil {
		return nil, errp.WithStack(err)
	}
	response := &messages.Response{}
	if err := response.Unmarshal(decrypted); err != nil {
		return nil, err
	}
	if response.Error != nil {
		// Returned unwrapped so callers can match the payreq sentinels
		// with errors.Is.
		return nil, payreq.ErrorFromCode(
			payreq.Code(response.Error.Code), response.Error.Message)
	}
	return response, nil
}

// Nonce asks the device to issue a fresh payment request nonce.
func (client *Client) Nonce() ([]byte, error) {
	response, err := client.query(&messages.Request{GetNonce: &messages.GetNonceRequest{}})
	if err != nil {
		return nil, err
	}
	if response.Nonce == nil {
		return nil, errp.New("unexpected response")
	}
	return response.Nonce.Nonce, nil
}

// AuthenticatedAddress asks the device for the address at path under slip44
// and the MAC authenticating that it can receive amount.
func (client *Client) AuthenticatedAddress(
	slip44 uint32, path []uint32, amount uint64) (string, []byte, error) {
	response, err := client.query(&messages.Request{GetAddress: &messages.GetAddressRequest{
		Slip44: slip44,
		Path:   path,
		Amount: amount,
	}})
	if err != nil {
		return "", nil, err
	}
	if response.Address == nil {
		return "", nil, errp.New("unexpected response")
	}
	return response.Address.Address, response.Address.MAC, nil
}

// Sign submits a signing session: the transaction outputs and the payment
// requests bound to them. On success it returns the serialized transaction;
// a rejected payment request is reported as the matching payreq error.
func (client *Client) Sign(
	slip44 uint32,
	outputs []*messages.TxOutput,
	paymentRequests []*messages.PaymentRequest,
) ([]byte, error) {
	response, err := client.query(&messages.Request{Sign: &messages.SignRequest{
		Slip44:          slip44,
		Outputs:         outputs,
		PaymentRequests: paymentRequests,
	}})
	if err != nil {
		return nil, err
	}
	if response.Sign == nil {
		return nil, errp.New("unexpected response")
	}
	return response.Sign.SerializedTx, nil
}

// Close closes the underlying transport.
func (client *Client) Close() {
	client.communication.Close()
}
