// Package reducer implements the handler registry and the state owning
// Reducer. A Builder maps action kinds to handlers (plus an optional default)
// and builds a Reducer that applies actions under a single mutex and returns
// the serialized state after each dispatch.
//
// Unmatched kinds without a default handler are a silent no-op so that stores
// can ignore actions meant for other subsystems. A mistyped kind therefore
// never surfaces as an error; install a default handler returning
// core.NewActionNotFoundError to make unknown kinds fail loudly.
package reducer
