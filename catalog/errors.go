package catalog

import (
	"fmt"
)

// This error type is returned when a package is sought but not found.
type NotFoundError struct {
	Id string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("No dataset found for id: %s", e.Id)
}

// indicates that the catalog's action API reported a failure for a call
type APIError struct {
	Action, Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("Catalog API error for %s: %s", e.Action, e.Message)
}

// this error type is returned when a secure connection would be
// downgraded to an insecure one by a redirect
type DowngradedRedirectError struct {
	Endpoint string
}

func (e DowngradedRedirectError) Error() string {
	return fmt.Sprintf("Secure connection to %s redirected to insecure endpoint", e.Endpoint)
}
