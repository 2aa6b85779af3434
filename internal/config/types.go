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

// Package config holds the fsmd configuration schema.
package config

// Config represents the root structure of the YAML configuration file.
// This struct is used to unmarshal configuration data from Viper.
type Config struct {
	Store       Store       `mapstructure:"store"`
	Bus         Bus         `mapstructure:"bus"`
	Broadcaster Broadcaster `mapstructure:"broadcaster"`
	Diagrams    Diagrams    `mapstructure:"diagrams"`
	Actions     Actions     `mapstructure:"actions"`
	// Debug enable or disable debug option set from CLI.
	Debug bool `mapstructure:"debug"`
}

// Store configuration for the embedded SQL database.
type Store struct {
	// Path is the location of the single database file.
	Path string `mapstructure:"path"          validate:"required"`
	// RealtimeRing bounds the realtime_events table; older rows are pruned
	// past this count. Zero disables persistence of realtime frames.
	RealtimeRing int `mapstructure:"realtime_ring" validate:"gte=0"`
}

// Bus configuration for the local datagram fabric.
type Bus struct {
	// SocketDir is the directory holding the datagram sockets.
	SocketDir string `mapstructure:"socket_dir" validate:"required"`
	// Prefix namespaces the socket files, e.g. "fsmd" yields
	// fsmd-events.sock and fsmd-<machine>.sock.
	Prefix string `mapstructure:"prefix"     validate:"required,machine_name"`
}

// Broadcaster configuration for the WebSocket fan-out process.
type Broadcaster struct {
	// Port the WebSocket server binds to.
	Port int `mapstructure:"port"                  validate:"required,gte=1,lte=65535"`
	// SendTimeoutSeconds bounds every per-client write.
	SendTimeoutSeconds int `mapstructure:"send_timeout_seconds"  validate:"gte=1"`
	// PingIntervalSeconds between keepalive pings to each client.
	PingIntervalSeconds int `mapstructure:"ping_interval_seconds" validate:"gte=1"`
	// WatchdogSeconds before the stalled event loop dumps goroutine stacks.
	WatchdogSeconds int `mapstructure:"watchdog_seconds"      validate:"gte=1"`
}

// Diagrams configuration for the diagram provider HTTP server.
type Diagrams struct {
	// Port the HTTP server binds to.
	Port int `mapstructure:"port" validate:"required,gte=1,lte=65535"`
	// Dir contains pre-generated diagram artifacts, one subdirectory per
	// config type.
	Dir string `mapstructure:"dir"  validate:"required"`
}

// Actions configuration for user-supplied actions.
type Actions struct {
	// Dir is scanned for executable files; each one is registered as an
	// action type named after the file.
	Dir string `mapstructure:"dir"`
}
