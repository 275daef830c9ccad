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

// package catalog implements a client for the action API of a CKAN open data
// catalog, which serves dataset metadata and the organization hierarchy that
// owns it.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/StalkR/hsts"

	"github.com/odpch/pkgcheck/core"
)

const searchPageSize = 500

// a client that speaks to a CKAN catalog's action API
type Client struct {
	// catalog site URL (e.g. "https://opendata.swiss")
	URL string
	// API key used to authorize requests, if any
	APIKey string
	// HTTP client that caches HTTP Strict Transport Security (HSTS) headers
	Http http.Client
}

// creates a new catalog client for the site at the given URL, authorizing
// its requests with the given API key (which may be empty for anonymous
// access)
func NewClient(siteURL, apiKey string) (*Client, error) {
	if _, err := url.ParseRequestURI(siteURL); err != nil {
		return nil, fmt.Errorf("Invalid catalog URL: %s", siteURL)
	}
	return &Client{
		URL:    siteURL,
		APIKey: apiKey,
		Http:   secureHttpClient(30 * time.Second),
	}, nil
}

// Here's a secure HTTP client used to connect to the catalog. It sets a
// reasonable timeout and enables HTTP Strict Transport Security (HSTS).
func secureHttpClient(timeout time.Duration) http.Client {
	client := http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.URL.Scheme == "http" {
				return &DowngradedRedirectError{
					Endpoint: fmt.Sprintf("%s%s", req.URL.Host, req.URL.Path),
				}
			}
			return nil
		},
	}
	client.Transport = hsts.New(client.Transport) // enable HSTS
	return client
}

// every action API response arrives in this envelope
type apiResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *apiErrorBody   `json:"error"`
}

type apiErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"__type"`
}

// performs a GET request against the named action with the given query
// parameters, returning the raw result payload
func (c *Client) get(action string, values url.Values) (json.RawMessage, error) {
	u, err := url.ParseRequestURI(c.URL)
	if err != nil {
		return nil, err
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/3/action/" + action
	u.RawQuery = values.Encode()
	req, err := http.NewRequest(http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, err
	}
	if c.APIKey != "" {
		req.Header.Add("Authorization", c.APIKey)
	}
	resp, err := c.Http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("Invalid response from %s: %s", action, err.Error())
	}
	if !envelope.Success || resp.StatusCode != http.StatusOK {
		message := resp.Status
		if envelope.Error != nil {
			message = envelope.Error.Message
			if envelope.Error.Type == "Not Found Error" {
				return nil, NotFoundError{Id: values.Get("id")}
			}
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, NotFoundError{Id: values.Get("id")}
		}
		return nil, APIError{Action: action, Message: message}
	}
	return envelope.Result, nil
}

// fetches the full metadata record for the package with the given name or id
func (c *Client) PackageShow(id string) (*core.Package, error) {
	result, err := c.get("package_show", url.Values{"id": []string{id}})
	if err != nil {
		return nil, err
	}
	var pkg core.Package
	if err := json.Unmarshal(result, &pkg); err != nil {
		return nil, fmt.Errorf("Invalid package record for %s: %s", id, err.Error())
	}
	return &pkg, nil
}

// lists the names of all packages in the catalog
func (c *Client) PackageList() ([]string, error) {
	result, err := c.get("package_list", url.Values{})
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(result, &names); err != nil {
		return nil, err
	}
	return names, nil
}

type searchResult struct {
	Count   int               `json:"count"`
	Results []json.RawMessage `json:"results"`
}

// runs a filtered package search, returning the requested field ("id" or
// "name") of every matching record; results are paged through transparently
func (c *Client) PackageSearch(fq, field string) ([]string, error) {
	var matches []string
	for start := 0; ; start += searchPageSize {
		result, err := c.get("package_search", url.Values{
			"fq":    []string{fq},
			"rows":  []string{fmt.Sprintf("%d", searchPageSize)},
			"start": []string{fmt.Sprintf("%d", start)},
		})
		if err != nil {
			return nil, err
		}
		var page searchResult
		if err := json.Unmarshal(result, &page); err != nil {
			return nil, err
		}
		for _, record := range page.Results {
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(record, &fields); err != nil {
				return nil, err
			}
			var value string
			if raw, found := fields[field]; found {
				if err := json.Unmarshal(raw, &value); err != nil {
					return nil, err
				}
			}
			if value != "" {
				matches = append(matches, value)
			}
		}
		if start+searchPageSize >= page.Count || len(page.Results) == 0 {
			break
		}
	}
	return matches, nil
}

// finds the names of all packages imported by a geospatial harvester, which
// carry geodata-profile metadata and are checked against the geodata shapes
func (c *Client) GeocatPackageIds() ([]string, error) {
	sources, err := c.PackageSearch("dataset_type:harvest AND source_type:geocat_harvester", "id")
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, nil
	}
	fq := fmt.Sprintf("harvest_source_id:(%s)", strings.Join(sources, " OR "))
	return c.PackageSearch(fq, "name")
}

type organizationRecord struct {
	Name   string `json:"name"`
	Groups []struct {
		Name string `json:"name"`
	} `json:"groups"`
}

// returns a mapping from each organization name to the names of its parent
// groups (empty for top-level organizations), satisfying
// contacts.HierarchySource
func (c *Client) OrganizationsWithParents() (map[string][]string, error) {
	result, err := c.get("organization_list", url.Values{
		"all_fields":     []string{"true"},
		"include_groups": []string{"true"},
	})
	if err != nil {
		return nil, err
	}
	var records []organizationRecord
	if err := json.Unmarshal(result, &records); err != nil {
		return nil, err
	}
	parents := make(map[string][]string)
	for _, record := range records {
		names := make([]string, 0, len(record.Groups))
		for _, group := range record.Groups {
			names = append(names, group.Name)
		}
		parents[record.Name] = names
	}
	return parents, nil
}

// returns the user ids of the given organization's administrators
func (c *Client) OrganizationAdminIds(organization string) ([]string, error) {
	result, err := c.get("member_list", url.Values{
		"id":          []string{organization},
		"object_type": []string{"user"},
		"capacity":    []string{"admin"},
	})
	if err != nil {
		return nil, err
	}
	// each member arrives as an [id, type, capacity] triple
	var members [][]string
	if err := json.Unmarshal(result, &members); err != nil {
		return nil, err
	}
	var ids []string
	for _, member := range members {
		if len(member) > 0 {
			ids = append(ids, member[0])
		}
	}
	return ids, nil
}

// resolves a user id to that user's email address (empty if none is
// recorded)
func (c *Client) UserEmail(userId string) (string, error) {
	result, err := c.get("user_show", url.Values{"id": []string{userId}})
	if err != nil {
		return "", err
	}
	var user struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(result, &user); err != nil {
		return "", err
	}
	return user.Email, nil
}
