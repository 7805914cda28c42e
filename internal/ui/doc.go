// Package ui holds the plain-terminal output pieces shared by hostwatch's
// one-shot commands: status symbols, a small color palette, a spinner for
// slow steps such as connecting through a tunnel, and table rendering for
// snapshot and host listings.
//
// The full-screen dashboard lives in internal/dashboard and has its own
// styles; this package is for line-oriented output.
//
//	s := ui.NewSpinner("Connecting to hv1")
//	s.Start()
//	// ... do work ...
//	s.Success() // or s.Fail()
//
// Use DisableColors for --no-color or when stdout is not a terminal.
package ui
