package catalog

// Tests for the catalog client against a stubbed action API.

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// builds a client pointed at a stub catalog serving the given handler
func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client, err := NewClient(server.URL, "test-api-key")
	assert.Nil(t, err)
	return client, server
}

func respond(w http.ResponseWriter, result any) {
	payload, _ := json.Marshal(result)
	fmt.Fprintf(w, `{"success": true, "result": %s}`, payload)
}

func TestNewClient(t *testing.T) {
	assert := assert.New(t)
	client, err := NewClient("https://opendata.example.org", "")
	assert.Nil(err)
	assert.NotNil(client)

	client, err = NewClient("not a url", "")
	assert.NotNil(err)
	assert.Nil(client)
}

func TestPackageShow(t *testing.T) {
	assert := assert.New(t)
	client, server := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/api/3/action/package_show", r.URL.Path)
		assert.Equal("some-dataset", r.URL.Query().Get("id"))
		assert.Equal("test-api-key", r.Header.Get("Authorization"))
		respond(w, map[string]any{
			"id":    "8e2cfe36-52ff-43b1-a8a9-53b80ed57ad9",
			"name":  "some-dataset",
			"title": map[string]string{"de": "Ein Datensatz"},
			"resources": []map[string]any{
				{"id": "res-1", "url": "https://example.org/data.csv"},
			},
			"extras": []map[string]string{
				{"key": "harvest_source_id", "value": "harvest-1"},
			},
		})
	})
	defer server.Close()

	pkg, err := client.PackageShow("some-dataset")
	assert.Nil(err)
	assert.Equal("some-dataset", pkg.Name)
	assert.Equal("Ein Datensatz", pkg.Title.InOneLanguage(""))
	assert.Equal(1, len(pkg.Resources))
	assert.Equal("harvest-1", pkg.HarvestSourceId())
}

func TestPackageShowNotFound(t *testing.T) {
	assert := assert.New(t)
	client, server := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"success": false, "error": {"message": "Not found", "__type": "Not Found Error"}}`)
	})
	defer server.Close()

	pkg, err := client.PackageShow("no-such-dataset")
	assert.Nil(pkg)
	assert.NotNil(err)
	var notFound NotFoundError
	assert.ErrorAs(err, &notFound)
	assert.Equal("no-such-dataset", notFound.Id)
}

func TestPackageShowAPIError(t *testing.T) {
	assert := assert.New(t)
	client, server := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"success": false, "error": {"message": "Access denied", "__type": "Authorization Error"}}`)
	})
	defer server.Close()

	_, err := client.PackageShow("some-dataset")
	var apiErr APIError
	assert.ErrorAs(err, &apiErr)
	assert.Contains(apiErr.Error(), "Access denied")
}

func TestPackageList(t *testing.T) {
	assert := assert.New(t)
	client, server := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/api/3/action/package_list", r.URL.Path)
		respond(w, []string{"first-dataset", "second-dataset"})
	})
	defer server.Close()

	names, err := client.PackageList()
	assert.Nil(err)
	assert.Equal([]string{"first-dataset", "second-dataset"}, names)
}

func TestPackageSearchPaging(t *testing.T) {
	assert := assert.New(t)
	// three matches spread over two pages
	pages := map[string][]map[string]string{
		"0":   {{"name": "one"}, {"name": "two"}},
		"500": {{"name": "three"}},
	}
	client, server := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("dataset_type:dataset", r.URL.Query().Get("fq"))
		results := pages[r.URL.Query().Get("start")]
		respond(w, map[string]any{"count": 501, "results": results})
	})
	defer server.Close()

	names, err := client.PackageSearch("dataset_type:dataset", "name")
	assert.Nil(err)
	assert.Equal([]string{"one", "two", "three"}, names)
}

func TestGeocatPackageIds(t *testing.T) {
	assert := assert.New(t)
	client, server := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fq := r.URL.Query().Get("fq")
		switch fq {
		case "dataset_type:harvest AND source_type:geocat_harvester":
			respond(w, map[string]any{"count": 1, "results": []map[string]string{{"id": "harvest-1"}}})
		case "harvest_source_id:(harvest-1)":
			respond(w, map[string]any{"count": 2, "results": []map[string]string{
				{"name": "geo-dataset-1"}, {"name": "geo-dataset-2"},
			}})
		default:
			t.Fatalf("unexpected search filter: %s", fq)
		}
	})
	defer server.Close()

	names, err := client.GeocatPackageIds()
	assert.Nil(err)
	assert.Equal([]string{"geo-dataset-1", "geo-dataset-2"}, names)
}

func TestGeocatPackageIdsNoHarvesters(t *testing.T) {
	assert := assert.New(t)
	client, server := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]any{"count": 0, "results": []map[string]string{}})
	})
	defer server.Close()

	names, err := client.GeocatPackageIds()
	assert.Nil(err)
	assert.Empty(names)
}

func TestOrganizationsWithParents(t *testing.T) {
	assert := assert.New(t)
	client, server := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/api/3/action/organization_list", r.URL.Path)
		assert.Equal("true", r.URL.Query().Get("all_fields"))
		assert.Equal("true", r.URL.Query().Get("include_groups"))
		respond(w, []map[string]any{
			{"name": "child-office", "groups": []map[string]string{{"name": "parent-department"}}},
			{"name": "parent-department", "groups": []map[string]string{}},
		})
	})
	defer server.Close()

	parents, err := client.OrganizationsWithParents()
	assert.Nil(err)
	assert.Equal([]string{"parent-department"}, parents["child-office"])
	assert.Empty(parents["parent-department"])
}

func TestOrganizationAdminIds(t *testing.T) {
	assert := assert.New(t)
	client, server := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/api/3/action/member_list", r.URL.Path)
		assert.Equal("child-office", r.URL.Query().Get("id"))
		assert.Equal("admin", r.URL.Query().Get("capacity"))
		respond(w, [][]string{
			{"user-1", "user", "Admin"},
			{"user-2", "user", "Admin"},
		})
	})
	defer server.Close()

	ids, err := client.OrganizationAdminIds("child-office")
	assert.Nil(err)
	assert.Equal([]string{"user-1", "user-2"}, ids)
}

func TestUserEmail(t *testing.T) {
	assert := assert.New(t)
	client, server := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/api/3/action/user_show", r.URL.Path)
		respond(w, map[string]string{"name": "admin", "email": "admin@example.org"})
	})
	defer server.Close()

	email, err := client.UserEmail("user-1")
	assert.Nil(err)
	assert.Equal("admin@example.org", email)
}
