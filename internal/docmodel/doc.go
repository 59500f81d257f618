// Package docmodel describes the host document the bridge drives: elements,
// their typed parameters, the category catalog and the current selection.
//
// The package only holds types and capabilities. Reader is safe to call
// from any goroutine. Mutation goes through a Tx obtained from
// Document.Begin, and the bridge only opens one on its mutation goroutine.
//
// The built-in parameter vocabulary and category catalog are static tables
// built once at package init; nothing is looked up by reflection.
package docmodel
