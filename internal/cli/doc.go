// Package cli turns the simbatch command line into an app.Config. Flag
// defaults come from SIMBATCH_* environment variables and an optional .env
// file; usage errors are reported as an ExitError carrying exit code 2.
package cli
