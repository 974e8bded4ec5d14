// Package config defines the format-agnostic configuration model for the
// application: the parameter sweeps that become jobs and the clusters they
// run on, along with the Loader interface that produces the model.
//
// Concrete implementations of the interface, such as for HCL, are provided
// in separate packages.
package config
