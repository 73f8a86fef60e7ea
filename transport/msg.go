package transport

// SSH-2 message numbers (RFC 4250 §4.1). DISCONNECT, IGNORE, UNIMPLEMENTED
// and DEBUG are handled directly by Transport.Run; every other number is
// routed to the Handler registered for it with Transport.Handle.
const (
	MsgDisconnect     = 1
	MsgIgnore         = 2
	MsgUnimplemented  = 3
	MsgDebug          = 4
	MsgServiceRequest = 5
	MsgServiceAccept  = 6

	MsgKexInit = 20
	MsgNewKeys = 21

	// 30-49: KEX-method-specific, owned by the kex package.
	MsgKexDHInit  = 30
	MsgKexDHReply = 31

	// 50+: userauth, owned by the userauth package.
	MsgUserAuthRequest         = 50
	MsgUserAuthFailure         = 51
	MsgUserAuthSuccess         = 52
	MsgUserAuthBanner          = 53
	MsgUserAuthPasswdChangeReq = 60
	MsgUserAuthPKOK            = 60

	// 80+: connection protocol, owned by the channel package.
	MsgGlobalRequest       = 80
	MsgRequestSuccess      = 81
	MsgRequestFailure      = 82
	MsgChannelOpen         = 90
	MsgChannelOpenConfirm  = 91
	MsgChannelOpenFailure  = 92
	MsgChannelWindowAdjust = 93
	MsgChannelData         = 94
	MsgChannelExtendedData = 95
	MsgChannelEOF          = 96
	MsgChannelClose        = 97
	MsgChannelRequest      = 98
	MsgChannelSuccess      = 99
	MsgChannelFailure      = 100
)

// Disconnect reason codes (RFC 4253 §11.1), the subset this library emits
// or recognizes.
const (
	DisconnectProtocolError      = 2
	DisconnectMACError           = 5
	DisconnectCompressionError   = 6
	DisconnectServiceNotAvail    = 7
	DisconnectProtocolVersionNotSupported = 8
	DisconnectHostNotAllowed     = 1
	DisconnectByApplication      = 11
)
