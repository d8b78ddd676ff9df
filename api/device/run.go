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
	"crypto/rand"
	"io"

	"github.com/BitBoxSwiss/paymentrequest-go/api/payreq"
	"github.com/BitBoxSwiss/paymentrequest-go/communication/usart"
	"github.com/BitBoxSwiss/paymentrequest-go/messages"
	"github.com/BitBoxSwiss/paymentrequest-go/util/errp"
	"github.com/flynn/noise"
)

// Channel opcodes, the first byte of a frame outside of a running
// handshake.
const (
	opHandshakeInit = byte('h')
	opNoiseMsg      = byte('n')

	statusSuccess = byte(0x00)
	statusFailure = byte(0x01)
)

var noisePrologue = []byte("Noise_XX_25519_ChaChaPoly_SHA256")

// noiseKeypair returns the device's persisted noise static keypair,
// generating and persisting one on first use.
func (device *Device) noiseKeypair(cipherSuite noise.CipherSuite) (noise.DHKey, error) {
	if keypair := device.config.GetDeviceNoiseStaticKeypair(); keypair != nil {
		return *keypair, nil
	}
	keypair, err := cipherSuite.GenerateKeypair(rand.Reader)
	if err != nil {
		return noise.DHKey{}, errp.WithStack(err)
	}
	if err := device.config.SetDeviceNoiseStaticKeypair(&keypair); err != nil {
		device.log.Error("failed to persist noise static keypair", err)
	}
	return keypair, nil
}

// Run serves the device protocol on conn until it is closed: usart framed
// messages, a Noise XX handshake with the device as responder, then
// encrypted protobuf queries. cmd is the frame command byte both sides
// agree on. Returns nil when the host closes the connection.
func (device *Device) Run(conn io.ReadWriteCloser, cmd byte) error {
	comm := usart.NewCommunication(conn, cmd)
	var (
		handshake                 *noise.HandshakeState
		sendCipher, receiveCipher *noise.CipherState
	)
	for {
		frame, err := comm.ReadFrame()
		if err != nil {
			if errp.Cause(err) == io.EOF || errp.Cause(err) == io.ErrClosedPipe {
				return nil
			}
			return err
		}
		switch {
		case handshake != nil:
			// Mid-handshake frames are raw noise messages.
			_, receiveCipher, sendCipher, err = handshake.ReadMessage(nil, frame)
			if err != nil {
				device.log.Error("noise handshake failed", err)
				handshake = nil
				if err := comm.SendFrame([]byte{statusFailure}); err != nil {
					return err
				}
				continue
			}
			if sendCipher != nil { // handshake done
				hostPubkey := handshake.PeerStatic()
				if !device.config.ContainsHostStaticPubkey(hostPubkey) {
					if err := device.config.AddHostStaticPubkey(hostPubkey); err != nil {
						device.log.Error("failed to persist host pubkey", err)
					}
				}
				handshake = nil
				device.log.Info("host channel established")
				// 0 = no pairing verification required.
				if err := comm.SendFrame([]byte{statusSuccess}); err != nil {
					return err
				}
				continue
			}
			reply, _, _, err := handshake.WriteMessage(nil, nil)
			if err != nil {
				return errp.WithStack(err)
			}
			if err := comm.SendFrame(reply); err != nil {
				return err
			}
		case len(frame) == 1 && frame[0] == opHandshakeInit:
			cipherSuite := noise.NewCipherSuite(
				noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)
			keypair, err := device.noiseKeypair(cipherSuite)
			if err != nil {
				return err
			}
			handshake, err = noise.NewHandshakeState(noise.Config{
				CipherSuite:   cipherSuite,
				Random:        rand.Reader,
				Pattern:       noise.HandshakeXX,
				StaticKeypair: keypair,
				Prologue:      noisePrologue,
				Initiator:     false,
			})
			if err != nil {
				return errp.WithStack(err)
			}
			sendCipher, receiveCipher = nil, nil
			if err := comm.SendFrame([]byte{statusSuccess}); err != nil {
				return err
			}
		case len(frame) > 1 && frame[0] == opNoiseMsg && receiveCipher != nil:
			decrypted, err := receiveCipher.Decrypt(nil, nil, frame[1:])
			if err != nil {
				device.log.Error("failed to decrypt query", err)
				if err := comm.SendFrame([]byte{statusFailure}); err != nil {
					return err
				}
				continue
			}
			request := &messages.Request{}
			var response *messages.Response
			if err := request.Unmarshal(decrypted); err != nil {
				response = errorResponse(err)
			} else {
				response = device.handleRequest(request)
			}
			encrypted, err := sendCipher.Encrypt(nil, nil, response.Marshal())
			if err != nil {
				return errp.WithStack(err)
			}
			if err := comm.SendFrame(encrypted); err != nil {
				return err
			}
		default:
			if err := comm.SendFrame([]byte{statusFailure}); err != nil {
				return err
			}
		}
	}
}

// errorResponse maps an error to its wire representation. Protocol errors
// keep their code so the host can reconstruct the exact failure; everything
// else travels as code 0 with the message only.
func errorResponse(err error) *messages.Response {
	code := uint32(0)
	if protocolErr, ok := errp.Cause(err).(*payreq.Error); ok {
		code = uint32(protocolErr.Code)
	}
	return &messages.Response{Error: &messages.ErrorResponse{
		Code:    code,
		Message: err.Error(),
	}}
}

func (device *Device) handleRequest(request *messages.Request) *messages.Response {
	switch {
	case request.GetNonce != nil:
		nonce, err := device.Nonce()
		if err != nil {
			return errorResponse(err)
		}
		return &messages.Response{Nonce: &messages.NonceResponse{Nonce: nonce}}
	case request.GetAddress != nil:
		address, mac, err := device.AuthenticatedAddress(
			request.GetAddress.Slip44, request.GetAddress.Path, request.GetAddress.Amount)
		if err != nil {
			return errorResponse(err)
		}
		return &messages.Response{Address: &messages.AddressResponse{
			Address: address,
			MAC:     mac,
		}}
	case request.Sign != nil:
		serializedTx, err := device.Sign(request.Sign)
		if err != nil {
			return errorResponse(err)
		}
		return &messages.Response{Sign: &messages.SignResponse{SerializedTx: serializedTx}}
	}
	return errorResponse(errp.New("unknown request"))
}
