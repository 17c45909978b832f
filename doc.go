// Package ancestor lets structs inherit unset reference-typed fields from an
// ancestor instance.
//
// A type opts in by embedding Node. Its exported pointer, interface, map and
// slice fields form the inherited schema; scalar fields are always local.
//
//	type Person struct {
//		ancestor.Node
//		FirstName *string
//		LastName  *string
//		Nicknames []string `ancestor:",noinherit"`
//	}
//
//	john := ancestor.MustNew[Person](nil, false)
//	john.LastName = &doe
//	jack, _ := ancestor.DescendantOf[Person](john)
//	ancestor.Get[*string](jack, "lastName") // john's value
//
// A field named like a method of Node (Value, Set, Trace, Schema, ID, Owner
// and so on) hides that method on the outer type; reach it through the
// embedded field instead, as in x.Node.Value("value").
//
// Reads resolve through the chain until a node holds a local value, stops
// inheriting the property, or does not declare it. A type can narrow what it
// passes on by implementing DescendantSchema. StopInheriting and
// ResumeInheriting toggle inheritance per property on one node.
//
// Observers registered with Observe see writes made through Set. Plain field
// assignment stores a value without notifying anyone. A node created with
// inheritsNotifications also re-emits changes of the values it inherits,
// through links that hold it only weakly.
package ancestor
