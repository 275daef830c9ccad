// Copyright (c) 2024 The Open Data Package Checker Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// package checkers implements the validation passes run over catalog
// packages: the link checker probing every URL a package references, and
// the shape checker validating a package's semantic graph against a
// constraint ruleset.
package checkers

import (
	"fmt"

	"github.com/odpch/pkgcheck/core"
)

// creates a checker of the configured kind; the set of kinds is closed
func NewChecker(kind string) (core.Checker, error) {
	switch kind {
	case core.ModeLink:
		return NewLinkChecker(), nil
	case core.ModeShacl:
		return NewShaclChecker(), nil
	default:
		return nil, fmt.Errorf("Unknown checker type for '%s'", kind)
	}
}
