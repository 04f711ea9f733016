package report

import "fmt"

// QueryError is a failed analytics backend query. Err holds the backend detail
// and must not be shown to clients.
type QueryError struct {
	Tenant   string
	Query    string
	Category string
	Err      error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("analytics query %s for tenant %s failed (%s): %v", e.Query, e.Tenant, e.Category, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
