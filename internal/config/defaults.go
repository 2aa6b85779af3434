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

package config

import (
	"github.com/spf13/viper"
)

// SetDefaults registers the default values for every config key so a bare
// config file still yields a runnable configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.path", "data/state.db")
	v.SetDefault("store.realtime_ring", 1000)

	v.SetDefault("bus.socket_dir", "/tmp")
	v.SetDefault("bus.prefix", "fsmd")

	v.SetDefault("broadcaster.port", 3002)
	v.SetDefault("broadcaster.send_timeout_seconds", 2)
	v.SetDefault("broadcaster.ping_interval_seconds", 10)
	v.SetDefault("broadcaster.watchdog_seconds", 15)

	v.SetDefault("diagrams.port", 3001)
	v.SetDefault("diagrams.dir", "diagrams")
}
