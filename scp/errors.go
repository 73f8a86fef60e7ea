package scp

import "github.com/riglite/sshcore/errstring"

// ErrScpProtocol covers a malformed control line, an unexpected control
// byte, or a truncated file payload. It is terminal for the transfer it
// occurred in, but the underlying exec channel and session are otherwise
// unaffected (spec.md §7).
var ErrScpProtocol = errstring.New("scp: protocol error")
