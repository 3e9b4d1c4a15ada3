// Package testutil provides test utilities for better-labels components.
//
//   - fakeapi: an in-memory label API served over httptest
//
// # Example
//
//	srv := fakeapi.New(t, labels)
//	srv.SetIssueLabels("/owner/repo/issues/1", label.NumberID(2))
//	client, _ := api.NewClient(srv.URL)
package testutil
