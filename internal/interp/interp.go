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

// Package interp substitutes {var} and {a.b.c} placeholders from an
// execution context into action configuration.
package interp

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_.]*)\}`)

// Interpolator resolves placeholders against a context map. Interpolation is
// single-pass: a value that still contains braces after resolution is final.
type Interpolator struct {
	logger *slog.Logger
}

// New creates a new Interpolator instance.
func New(
	logger *slog.Logger,
) *Interpolator {
	return &Interpolator{logger: logger}
}

// Resolve walks ctx by the dot-separated path. The bool reports whether the
// full path resolved.
func Resolve(
	path string,
	ctx map[string]any,
) (any, bool) {
	parts := strings.Split(path, ".")

	var current any = ctx
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// String replaces every placeholder in template with its stringified value
// from ctx. Unknown placeholders survive verbatim with a warning.
func (i *Interpolator) String(
	template string,
	ctx map[string]any,
) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		path := match[1 : len(match)-1]
		value, ok := Resolve(path, ctx)
		if !ok {
			i.logger.Warn(
				"unresolved placeholder",
				slog.String("placeholder", match),
			)
			return match
		}
		return stringify(value)
	})
}

// Value interpolates a single config value. Strings that consist of exactly
// one placeholder resolving to a map or slice are forwarded as that object
// rather than stringified; this is how whole payloads pass through
// {event_data.payload}. All other strings go through String. Maps and slices
// recurse; every other leaf is returned verbatim.
func (i *Interpolator) Value(
	value any,
	ctx map[string]any,
) any {
	switch v := value.(type) {
	case string:
		if path, ok := wholePlaceholder(v); ok {
			if resolved, found := Resolve(path, ctx); found {
				switch resolved.(type) {
				case map[string]any, []any:
					return resolved
				}
			}
		}
		return i.String(v, ctx)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = i.Value(item, ctx)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for idx, item := range v {
			out[idx] = i.Value(item, ctx)
		}
		return out
	default:
		return value
	}
}

// Map interpolates every value of the config map.
func (i *Interpolator) Map(
	config map[string]any,
	ctx map[string]any,
) map[string]any {
	out := make(map[string]any, len(config))
	for key, value := range config {
		out[key] = i.Value(value, ctx)
	}
	return out
}

// wholePlaceholder reports whether s is exactly one placeholder, returning
// its path.
func wholePlaceholder(s string) (string, bool) {
	m := placeholderRe.FindStringSubmatch(s)
	if m != nil && m[0] == s {
		return m[1], true
	}
	return "", false
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
