package transport

import (
	"context"

	"github.com/riglite/sshcore/byteslice"
	"github.com/riglite/sshcore/log"
	"github.com/riglite/sshcore/wire"
)

// newDisconnectPayload builds a DISCONNECT message body per RFC 4253 §11.1:
// byte(1) SSH_MSG_DISCONNECT, uint32 reason code, string description,
// string language tag (always empty here).
func newDisconnectPayload(reason uint32, description string) []byte {
	w := wire.NewWriter(16 + len(description))
	w.PutU8(MsgDisconnect).PutU32(reason).PutString(description).PutString("")
	return w.Bytes()
}

// Disconnect sends a DISCONNECT message with reason and description and
// marks the session Broken with cause.
func (t *Transport) Disconnect(reason uint32, description string, cause error) error {
	_ = t.SendPacket(newDisconnectPayload(reason, description))
	return t.fail(cause)
}

// Handle registers h to receive every payload whose first byte is msgNum.
// Only one handler may be registered per message number; a second call
// replaces the first. Handlers registered for DISCONNECT, IGNORE,
// UNIMPLEMENTED and DEBUG (1-4) are never called: Run processes those itself.
func (t *Transport) Handle(msgNum byte, h Handler) {
	t.dispatchMu.Lock()
	defer t.dispatchMu.Unlock()
	t.handlers[msgNum] = h
}

func (t *Transport) handlerFor(msgNum byte) Handler {
	t.dispatchMu.RLock()
	defer t.dispatchMu.RUnlock()
	return t.handlers[msgNum]
}

// Run reads and dispatches packets until the stream fails, a fatal error
// occurs, or a handler returns an error. It handles DISCONNECT/IGNORE/UNIMPLEMENTED/
// DEBUG itself and forwards everything else (KEXINIT, KEX-method packets,
// userauth, connection-protocol messages) to the handler registered via
// Handle. Run does not itself block on application logic: handlers are
// expected to enqueue work, not perform it synchronously.
func (t *Transport) Run() error {
	for {
		payload, err := t.ReceivePacket()
		if err != nil {
			return err
		}
		if len(payload) == 0 {
			continue
		}
		msgNum := payload[0]

		switch msgNum {
		case MsgDisconnect:
			r := wire.NewReader(payload[1:])
			reason, _ := r.GetU32()
			desc, _ := r.GetString()
			t.Log().Info("peer sent disconnect", "reason", reason, "description", desc)
			return t.fail(errDisconnectedByPeer(reason, desc))
		case MsgIgnore:
			log.Trace(context.Background(), "peer sent ignore", "preview", t.redactedPreview(payload[1:]))
			continue
		case MsgUnimplemented:
			t.Log().Debug("peer sent unimplemented")
			continue
		case MsgDebug:
			r := wire.NewReader(payload[1:])
			alwaysDisplay, _ := r.GetBool()
			msg, _ := r.GetString()
			t.Log().Debug("peer debug message", "alwaysDisplay", alwaysDisplay, "message", t.Redact(msg))
			log.Trace(context.Background(), "peer debug message payload", "preview", t.redactedPreview(payload[1:]))
			continue
		}

		if h := t.handlerFor(msgNum); h != nil {
			if err := h(payload); err != nil {
				return err
			}
			continue
		}

		t.Log().Debug("no handler for message, sending UNIMPLEMENTED", "msgNum", msgNum)
		w := wire.NewWriter(8)
		w.PutU8(MsgUnimplemented).PutU32(t.read.seqNum - 1)
		if sendErr := t.SendPacket(w.Bytes()); sendErr != nil {
			return sendErr
		}
	}
}

type disconnectedByPeer struct {
	reason      uint32
	description string
}

func (e *disconnectedByPeer) Error() string {
	return "transport: peer disconnected: " + e.description
}

func errDisconnectedByPeer(reason uint32, description string) error {
	return &disconnectedByPeer{reason: reason, description: description}
}
