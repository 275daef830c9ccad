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

// This package builds the run-global organization -> recipient table. The
// table is built once per run, before any checker sees a package, and is
// read-only afterwards.
package contacts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/odpch/pkgcheck/core"
)

// HierarchySource supplies the catalog's organizational hierarchy: the
// known organizations with their parent groups, each organization's
// administrative user ids, and user email addresses.
type HierarchySource interface {
	OrganizationsWithParents() (map[string][]string, error)
	OrganizationAdminIds(organization string) ([]string, error)
	UserEmail(userId string) (string, error)
}

// BuildTable constructs the contact table: for every organization known
// to the catalog, an explicit (organization, pkg_type) mapping from the
// static contacts file wins; otherwise the organization's administrative
// users are looked up, then the first parent group's, and when all of
// that fails the single global default address applies.
func BuildTable(source HierarchySource, csvfile, defaultEmail string,
	run *core.RunContext) (core.ContactTable, error) {

	table, err := readContactsFile(csvfile)
	if err != nil {
		return nil, err
	}

	organizations, err := source.OrganizationsWithParents()
	if err != nil {
		run.LogAndEchoError(fmt.Sprintf("Couldn't list organizations: %s", err.Error()))
		organizations = nil
	}

	// deterministic build order
	names := make([]string, 0, len(organizations))
	for name := range organizations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := core.ContactKey{Organization: name, PkgType: core.DCAT}
		if _, mapped := table[key]; mapped {
			continue
		}
		adminIds := adminIdsForOrganization(source, name, run)
		if len(adminIds) == 0 && len(organizations[name]) > 0 {
			adminIds = adminIdsForOrganization(source, organizations[name][0], run)
		}
		if len(adminIds) > 0 {
			table[key] = adminEmails(source, adminIds, run)
			continue
		}
		table[key] = []string{defaultEmail}
	}

	for key, emails := range table {
		run.LogAndEcho(fmt.Sprintf("{%s %s} is emailed to: %v",
			key.Organization, key.PkgType, emails))
	}
	return table, nil
}

func adminIdsForOrganization(source HierarchySource, organization string,
	run *core.RunContext) []string {

	adminIds, err := source.OrganizationAdminIds(organization)
	if err != nil {
		run.LogAndEcho(fmt.Sprintf("No admins found for organization: %s (%s)",
			organization, err.Error()))
		return nil
	}
	return adminIds
}

func adminEmails(source HierarchySource, adminIds []string,
	run *core.RunContext) []string {

	emails := make([]string, 0, len(adminIds))
	for _, adminId := range adminIds {
		email, err := source.UserEmail(adminId)
		if err != nil {
			run.LogAndEcho(fmt.Sprintf("No user found for id: %s (%s)", adminId, err.Error()))
			continue
		}
		if email != "" {
			emails = append(emails, email)
		}
	}
	return emails
}

// reads the static contacts file (organization_slug, pkg_type,
// space-separated contact_emails); rows with a missing field are
// skipped. An empty path yields an empty table; a configured path that
// cannot be read is a fatal configuration error.
func readContactsFile(csvfile string) (core.ContactTable, error) {
	table := make(core.ContactTable)
	if csvfile == "" {
		return table, nil
	}

	file, err := os.Open(csvfile)
	if err != nil {
		return nil, fmt.Errorf("contacts file configured, but it couldn't be read: %s", err.Error())
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("contacts file configured, but it has not the correct format")
	}
	column := make(map[string]int)
	for i, name := range header {
		column[name] = i
	}
	for _, name := range []string{"organization_slug", "pkg_type", "contact_emails"} {
		if _, found := column[name]; !found {
			return nil, fmt.Errorf("contacts file configured, but it has not the correct format")
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("contacts file configured, but it has not the correct format")
		}
		organization := row[column["organization_slug"]]
		pkgType := row[column["pkg_type"]]
		emails := row[column["contact_emails"]]
		if organization == "" || pkgType == "" || emails == "" {
			continue
		}
		key := core.ContactKey{Organization: organization, PkgType: pkgType}
		table[key] = append(table[key], strings.Split(emails, " ")...)
	}
	return table, nil
}
