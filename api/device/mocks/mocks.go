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

// Package mocks contains the mock implementations to be used in testing.
package mocks

import (
	"github.com/flynn/noise"
)

// Config is a mock implementation of device.Config. Unset funcs behave like
// an empty config.
type Config struct {
	MockContainsHostStaticPubkey    func(pubkey []byte) bool
	MockAddHostStaticPubkey         func(pubkey []byte) error
	MockGetDeviceNoiseStaticKeypair func() *noise.DHKey
	MockSetDeviceNoiseStaticKeypair func(key *noise.DHKey) error
}

// ContainsHostStaticPubkey implements device.Config.
func (config *Config) ContainsHostStaticPubkey(pubkey []byte) bool {
	if config.MockContainsHostStaticPubkey != nil {
		return config.MockContainsHostStaticPubkey(pubkey)
	}
	return false
}

// AddHostStaticPubkey implements device.Config.
func (config *Config) AddHostStaticPubkey(pubkey []byte) error {
	if config.MockAddHostStaticPubkey != nil {
		return config.MockAddHostStaticPubkey(pubkey)
	}
	return nil
}

// GetDeviceNoiseStaticKeypair implements device.Config.
func (config *Config) GetDeviceNoiseStaticKeypair() *noise.DHKey {
	if config.MockGetDeviceNoiseStaticKeypair != nil {
		return config.MockGetDeviceNoiseStaticKeypair()
	}
	return nil
}

// SetDeviceNoiseStaticKeypair implements device.Config.
func (config *Config) SetDeviceNoiseStaticKeypair(key *noise.DHKey) error {
	if config.MockSetDeviceNoiseStaticKeypair != nil {
		return config.MockSetDeviceNoiseStaticKeypair(key)
	}
	return nil
}

// Logger is a no-op mock implementation of device.Logger.
type Logger struct{}

// Error implements device.Logger.
func (logger *Logger) Error(msg string, err error) {
}

// Info implements device.Logger.
func (logger *Logger) Info(msg string) {
}

// Debug implements device.Logger.
func (logger *Logger) Debug(msg string) {
}
