package kex

import "github.com/riglite/sshcore/transport"

// Local aliases for the message numbers this package owns, so the rest of
// the package does not need to import transport purely for constants.
const (
	msgKexInit    = transport.MsgKexInit
	msgNewKeys    = transport.MsgNewKeys
	msgKexDHInit  = transport.MsgKexDHInit
	msgKexDHReply = transport.MsgKexDHReply
)
