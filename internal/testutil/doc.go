// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing contents, stored runs and PDF fixtures. They
// are not intended for production usage.
package testutil
