//go:build windows

package main

import "os"

// notifyResize is a no-op on Windows: there is no SIGWINCH, and the
// initial window size from OpenShell's pty-req is used for the session.
func notifyResize(c chan<- os.Signal) {}
