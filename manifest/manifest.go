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

// package manifest describes a run's output directory as a Frictionless
// Data Package, so downstream consumers can discover the result files
// without knowing the directory layout.
package manifest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/frictionlessdata/datapackage-go/datapackage"
	"github.com/frictionlessdata/datapackage-go/validator"

	"github.com/odpch/pkgcheck/core"
)

// writes a datapackage.json descriptor at the root of the given run
// directory, listing every CSV the run produced, and returns its path
func Write(runDir, runName, mode string) (string, error) {
	descriptors := make([]any, 0)
	for _, dir := range []string{core.CsvDir(runDir), core.MailDir(runDir)} {
		matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
		if err != nil {
			return "", err
		}
		sort.Strings(matches)
		for _, match := range matches {
			rel, err := filepath.Rel(runDir, match)
			if err != nil {
				return "", err
			}
			descriptors = append(descriptors, map[string]any{
				"name":      strings.TrimSuffix(filepath.Base(match), ".csv"),
				"path":      filepath.ToSlash(rel),
				"format":    "csv",
				"mediatype": "text/csv",
			})
		}
	}
	if len(descriptors) == 0 {
		return "", fmt.Errorf("No result files found under %s", runDir)
	}

	descriptor := map[string]any{
		"name":      strings.ToLower(runName),
		"profile":   "data-package",
		"created":   time.Now().Format(time.RFC3339),
		"keywords":  []any{"pkgcheck", mode},
		"resources": descriptors,
	}
	pkg, err := datapackage.New(descriptor, runDir, validator.InMemoryLoader())
	if err != nil {
		return "", fmt.Errorf("creating manifest: %s", err.Error())
	}

	path := filepath.Join(runDir, "datapackage.json")
	if err := pkg.SaveDescriptor(path); err != nil {
		return "", fmt.Errorf("creating manifest file: %s", err.Error())
	}
	return path, nil
}
