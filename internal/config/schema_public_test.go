// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package config_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"

	"github.com/retr0h/fsmd/internal/config"
)

type ConfigPublicTestSuite struct {
	suite.Suite
}

func (s *ConfigPublicTestSuite) validConfig() config.Config {
	return config.Config{
		Store: config.Store{
			Path:         "data/state.db",
			RealtimeRing: 1000,
		},
		Bus: config.Bus{
			SocketDir: "/tmp",
			Prefix:    "fsmd",
		},
		Broadcaster: config.Broadcaster{
			Port:                3002,
			SendTimeoutSeconds:  2,
			PingIntervalSeconds: 10,
			WatchdogSeconds:     15,
		},
		Diagrams: config.Diagrams{
			Port: 3001,
			Dir:  "diagrams",
		},
	}
}

func (s *ConfigPublicTestSuite) TestValidate() {
	tests := []struct {
		name        string
		mutate      func(*config.Config)
		expectError bool
		errContains string
	}{
		{
			name:        "when valid config",
			mutate:      func(_ *config.Config) {},
			expectError: false,
		},
		{
			name: "when store path missing",
			mutate: func(c *config.Config) {
				c.Store.Path = ""
			},
			expectError: true,
			errContains: "Path",
		},
		{
			name: "when bus prefix malformed",
			mutate: func(c *config.Config) {
				c.Bus.Prefix = "no spaces allowed"
			},
			expectError: true,
			errContains: "machine_name",
		},
		{
			name: "when broadcaster port out of range",
			mutate: func(c *config.Config) {
				c.Broadcaster.Port = 700000
			},
			expectError: true,
			errContains: "Port",
		},
		{
			name: "when realtime ring negative",
			mutate: func(c *config.Config) {
				c.Store.RealtimeRing = -1
			},
			expectError: true,
			errContains: "RealtimeRing",
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			cfg := s.validConfig()
			tt.mutate(&cfg)

			err := config.Validate(&cfg)
			if tt.expectError {
				s.Error(err)
				s.Contains(err.Error(), tt.errContains)
			} else {
				s.NoError(err)
			}
		})
	}
}

func (s *ConfigPublicTestSuite) TestSetDefaults() {
	v := viper.New()
	config.SetDefaults(v)

	var cfg config.Config
	s.NoError(v.Unmarshal(&cfg))

	s.Equal("data/state.db", cfg.Store.Path)
	s.Equal("fsmd", cfg.Bus.Prefix)
	s.Equal(3002, cfg.Broadcaster.Port)
	s.Equal(3001, cfg.Diagrams.Port)
	s.NoError(config.Validate(&cfg))
}

func TestConfigPublicTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigPublicTestSuite))
}
