package server

import (
	"encoding/binary"
	"io"

	"github.com/signalsfoundry/murmurhf/internal/session"
	"github.com/signalsfoundry/murmurhf/internal/wire"
	"github.com/signalsfoundry/murmurhf/internal/wirecrypto"
)

// sendFrame writes typ/plaintext to w, sealing it under sess's crypto
// state once CryptSetup has run (spec.md §3's per-session transmit-crypto
// nonce) and leaving it in the clear before that, during the handshake
// states that establish the key in the first place.
func sendFrame(w io.Writer, sess *session.Session, typ wire.MessageType, plaintext []byte) error {
	crypto := sess.Crypto()
	if crypto == nil {
		return wire.WriteFrame(w, wire.Frame{Type: typ, Payload: plaintext})
	}

	ciphertext, seq := crypto.Encrypt(plaintext)
	payload := make([]byte, 8+len(ciphertext))
	binary.BigEndian.PutUint64(payload[:8], seq)
	copy(payload[8:], ciphertext)

	return wire.WriteFrame(w, wire.Frame{Type: typ, Payload: payload})
}

// decodeFrame opens f.Payload under sess's crypto state if one has been
// established, mirroring sendFrame's layout.
func decodeFrame(sess *session.Session, f wire.Frame) ([]byte, error) {
	crypto := sess.Crypto()
	if crypto == nil {
		return f.Payload, nil
	}
	if len(f.Payload) < 8 {
		return nil, wirecrypto.ErrDecrypt
	}
	seq := binary.BigEndian.Uint64(f.Payload[:8])
	return crypto.Decrypt(f.Payload[8:], seq)
}
