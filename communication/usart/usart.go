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

// Package usart implements the framing of the device channel over serial
// style transports: 0x7e delimited frames with 0x7d escaping, a version
// byte, a command byte and a 16 bit checksum over the unescaped frame.
package usart

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"

	"github.com/BitBoxSwiss/paymentrequest-go/util/errp"
)

const (
	version byte = 0x01

	frameMarker  byte = 0x7e
	escapeMarker byte = 0x7d
	escapeXOR    byte = 0x20

	// maxFrameSize bounds the unescaped frame; the device buffers whole
	// frames.
	maxFrameSize = 5000
)

// checksum is the ones' complement sum of the little endian 16 bit words of
// data, an odd trailing byte zero padded.
func checksum(data []byte) []byte {
	var sum uint32
	for i := 0; i < len(data); i += 2 {
		word := uint16(data[i])
		if i+1 < len(data) {
			word |= uint16(data[i+1]) << 8
		}
		sum += uint32(word)
		if sum > 0xFFFF {
			sum -= 0xFFFF
		}
	}
	result := make([]byte, 2)
	binary.LittleEndian.PutUint16(result, uint16(sum))
	return result
}

// escape makes the frame content free of marker bytes, so that a marker
// always delimits a frame.
func escape(msg []byte) []byte {
	escaped := make([]byte, 0, len(msg))
	for _, b := range msg {
		if b == frameMarker || b == escapeMarker {
			escaped = append(escaped, escapeMarker, b^escapeXOR)
			continue
		}
		escaped = append(escaped, b)
	}
	return escaped
}

// Communication frames messages on either end of the channel. A device
// serves ReadFrame/SendFrame pairs; a host uses Query.
type Communication struct {
	conn  io.ReadWriteCloser
	mutex sync.Mutex
	cmd   byte
}

// NewCommunication creates a new Communication. cmd is the command byte
// sent with every frame and expected in every received frame.
func NewCommunication(conn io.ReadWriteCloser, cmd byte) *Communication {
	return &Communication{
		conn: conn,
		cmd:  cmd,
	}
}

func (communication *Communication) sendFrame(msg []byte) error {
	frame := make([]byte, 0, len(msg)+4)
	frame = append(frame, version, communication.cmd)
	frame = append(frame, msg...)
	frame = append(frame, checksum(frame)...)
	if len(frame) > maxFrameSize {
		return errp.Newf("frame size over %d bytes", maxFrameSize)
	}
	encoded := make([]byte, 0, len(frame)+2)
	encoded = append(encoded, frameMarker)
	encoded = append(encoded, escape(frame)...)
	encoded = append(encoded, frameMarker)
	_, err := communication.conn.Write(encoded)
	return errp.WithMessage(errp.WithStack(err), "failed to send frame")
}

// SendFrame sends one message enclosed in a frame.
func (communication *Communication) SendFrame(msg []byte) error {
	communication.mutex.Lock()
	defer communication.mutex.Unlock()
	return communication.sendFrame(msg)
}

// readRaw reads one delimited, unescaped frame, skipping any garbage before
// the opening marker.
func readRaw(reader io.Reader) ([]byte, error) {
	var (
		buf           bytes.Buffer
		one           [1]byte
		foundOpening  bool
		escapePending bool
	)
	for {
		if _, err := io.ReadFull(reader, one[:]); err != nil {
			return nil, errp.WithStack(err)
		}
		b := one[0]
		if !foundOpening {
			foundOpening = b == frameMarker
			continue
		}
		switch {
		case b == escapeMarker:
			escapePending = true
		case b == frameMarker:
			return buf.Bytes(), nil
		case escapePending:
			buf.WriteByte(b ^ escapeXOR)
			escapePending = false
		default:
			buf.WriteByte(b)
		}
	}
}

func (communication *Communication) readFrame() ([]byte, error) {
	frame, err := readRaw(communication.conn)
	if err != nil {
		return nil, err
	}
	// version, cmd and checksum enclose at least an empty message.
	if len(frame) < 4 {
		return nil, errp.Newf("frame too short: %d bytes", len(frame))
	}
	if frame[0] != version {
		return nil, errp.Newf("unexpected frame version %v, expected %v", frame[0], version)
	}
	if frame[1] != communication.cmd {
		return nil, errp.Newf("unexpected frame cmd %v, expected %v", frame[1], communication.cmd)
	}
	frame, expected := frame[:len(frame)-2], frame[len(frame)-2:]
	if !bytes.Equal(checksum(frame), expected) {
		return nil, errp.Newf("frame checksum mismatch, expected %v, got %v", expected, checksum(frame))
	}
	return frame[2:], nil
}

// ReadFrame reads one framed message.
func (communication *Communication) ReadFrame() ([]byte, error) {
	communication.mutex.Lock()
	defer communication.mutex.Unlock()
	return communication.readFrame()
}

// Query sends a request and waits for the response. Blocking.
func (communication *Communication) Query(request []byte) ([]byte, error) {
	communication.mutex.Lock()
	defer communication.mutex.Unlock()
	if err := communication.sendFrame(request); err != nil {
		return nil, err
	}
	return communication.readFrame()
}

// Close closes the underlying connection.
func (communication *Communication) Close() {
	if err := communication.conn.Close(); err != nil {
		panic(err)
	}
}
