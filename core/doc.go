// Package core defines the shared model of statemesh: the dynamic JSON Value,
// the Action request type, the key-path resolver and structural equality used
// for change detection, the Manager and Emitter contracts, and the typed Error
// taxonomy.
//
// Higher level packages (reducer, store, notify, command) depend on core and
// never on each other's internals.
package core
