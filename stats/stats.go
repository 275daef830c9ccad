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

// package stats aggregates a run's emitted rows into the end-of-run summary
// tables: failure counts per check category and per-organization error counts
// with their responsible contacts. Both aggregations are pure functions over
// the row stream and give identical results regardless of row order.
package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// the fields of an emitted row that contact aggregation depends on
type ContactRow struct {
	Organization string
	PkgType      string
	ContactEmail string
}

// one row of the contacts statistics table
type ContactStat struct {
	Organization string
	PkgType      string
	ErrorCount   int
	// deduplicated, sorted, space-joined
	ContactEmails string
}

// groups rows by (organization, pkg_type), counting error rows and
// collecting the distinct contact emails of each group; the result is
// sorted by organization then pkg_type
func AggregateContacts(rows []ContactRow) []ContactStat {
	type group struct {
		count  int
		emails map[string]struct{}
	}
	type key struct {
		organization, pkgType string
	}
	groups := make(map[key]*group)
	for _, row := range rows {
		k := key{row.Organization, row.PkgType}
		g, found := groups[k]
		if !found {
			g = &group{emails: make(map[string]struct{})}
			groups[k] = g
		}
		g.count++
		if row.ContactEmail != "" {
			g.emails[row.ContactEmail] = struct{}{}
		}
	}

	keys := make([]key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].organization != keys[j].organization {
			return keys[i].organization < keys[j].organization
		}
		return keys[i].pkgType < keys[j].pkgType
	})

	result := make([]ContactStat, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		emails := make([]string, 0, len(g.emails))
		for email := range g.emails {
			emails = append(emails, email)
		}
		sort.Strings(emails)
		result = append(result, ContactStat{
			Organization:  k.organization,
			PkgType:       k.pkgType,
			ErrorCount:    g.count,
			ContactEmails: strings.Join(emails, " "),
		})
	}
	return result
}

// writes the contacts statistics table as CSV
func WriteContactStats(path string, stats []ContactStat) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	writer.Write([]string{"organization_name", "pkg_type", "error_count", "contact_emails"})
	for _, stat := range stats {
		writer.Write([]string{
			stat.Organization,
			stat.PkgType,
			fmt.Sprintf("%d", stat.ErrorCount),
			stat.ContactEmails,
		})
	}
	writer.Flush()
	return writer.Error()
}

// Frequency counts failures per check category. Categories registered up
// front appear in the output even when nothing was counted against them;
// categories first seen while counting follow in first-seen order.
type Frequency struct {
	counts map[string]int
	order  []string
}

// creates a frequency table preseeded with zero counts for the given
// categories
func NewFrequency(categories ...string) *Frequency {
	f := &Frequency{counts: make(map[string]int)}
	for _, category := range categories {
		f.counts[category] = 0
		f.order = append(f.order, category)
	}
	return f
}

// records one failure for the given category
func (f *Frequency) Count(category string) {
	if _, found := f.counts[category]; !found {
		f.order = append(f.order, category)
	}
	f.counts[category]++
}

type FrequencyItem struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// returns all categories with their counts, preseeded ones first
func (f *Frequency) Items() []FrequencyItem {
	items := make([]FrequencyItem, 0, len(f.order))
	for _, category := range f.order {
		items = append(items, FrequencyItem{Category: category, Count: f.counts[category]})
	}
	return items
}

// reads a frequency table previously written with WriteCSV
func ReadFrequencyCSV(path string) ([]FrequencyItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	items := make([]FrequencyItem, 0, len(records))
	for i, record := range records {
		if i == 0 { // header
			continue
		}
		count, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("Invalid count for '%s': %s", record[0], record[1])
		}
		items = append(items, FrequencyItem{Category: record[0], Count: count})
	}
	return items, nil
}

// writes the frequency table as CSV
func (f *Frequency) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	writer.Write([]string{"message", "count"})
	for _, item := range f.Items() {
		writer.Write([]string{item.Category, fmt.Sprintf("%d", item.Count)})
	}
	writer.Flush()
	return writer.Error()
}
