// Package testutil contains helpers shared by tests: emitters that record or
// mock state update notifications and a small counter reducer fixture. They
// are not intended for production usage.
package testutil
