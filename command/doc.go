// Package command exposes a store through named commands with JSON arguments
// and JSON results, the shape a host shell uses to bridge a UI process:
//
//	get_initial_state  {}                         -> state
//	get_state          {"key": "theme.dark"}      -> value or null
//	dispatch           {"action": {"kind": "INCREMENT"}} -> post-dispatch state
//
// Failures are core.Error values; EncodeError renders them as the JSON string
// a UI layer receives.
package command
