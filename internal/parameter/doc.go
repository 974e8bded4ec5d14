// Package parameter expands a declarative list of named parameters into the
// full set of concrete parameter combinations of a sweep.
//
// The order of the expanded sets is significant: the index of a set becomes
// the numeric file name of the job it produces, and the cluster scheduler maps
// its array-job process number to that file name.
package parameter
