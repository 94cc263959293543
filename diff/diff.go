// Package diff computes changesets between a local entity snapshot and its
// remote counterpart. Comparison is plain attribute-by-attribute equality
// over explicit value pairs, so it can be tested without a remote dependency.
package diff

import "reflect"

// Change records one attribute that differs between the local snapshot and
// the remote description.
type Change struct {
	Field  string
	Local  any
	Remote any
}

// Field pairs an attribute name with its local and remote values.
type Field struct {
	Name   string
	Local  any
	Remote any
}

// Compare filters fields down to those whose local and remote values differ,
// preserving the order of the input.
func Compare(fields []Field) []Change {
	var changes []Change

	for _, f := range fields {
		// Tag lists need element-wise comparison, everything else the
		// entities compare is a scalar.
		if reflect.DeepEqual(f.Local, f.Remote) {
			continue
		}

		changes = append(changes, Change{
			Field:  f.Name,
			Local:  f.Local,
			Remote: f.Remote,
		})
	}

	return changes
}
