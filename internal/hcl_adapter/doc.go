// Package hcl_adapter loads job and cluster definitions written in HCL and
// translates them into the format-agnostic config model. Parameter values are
// full HCL expressions evaluated against a small function table and the
// user's variables.
package hcl_adapter
