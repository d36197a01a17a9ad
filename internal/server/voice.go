package server

import (
	"context"
	"encoding/binary"
	"log"
	"net"
	"time"

	"github.com/signalsfoundry/murmurhf/internal/routing"
	"github.com/signalsfoundry/murmurhf/internal/session"
	"github.com/signalsfoundry/murmurhf/internal/wire"
)

// voiceDemux runs the UDP voice-plane loop: every packet carries a
// plaintext 4-byte session id and 8-byte sequence ahead of an AEAD
// ciphertext sealed under that session's crypto state, mirroring
// framing.go's control-frame layout so the two paths share one mental
// model (spec.md §4.1's "per-session transmit/receive crypto nonce").
type voiceDemux struct {
	s  *Server
	pc net.PacketConn
}

func newVoiceDemux(s *Server) *voiceDemux {
	return &voiceDemux{s: s}
}

const voiceHeaderLen = 4 + 8

// serve reads voice packets from pc until ctx is cancelled.
func (v *voiceDemux) serve(ctx context.Context, pc net.PacketConn) {
	v.pc = pc
	go func() {
		<-ctx.Done()
		pc.Close()
	}()

	buf := make([]byte, wire.MaxVoicePacketLength+voiceHeaderLen+16)
	for {
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("server: voice read: %v", err)
				return
			}
		}
		v.handlePacket(pc, addr, append([]byte(nil), buf[:n]...))
	}
}

func (v *voiceDemux) handlePacket(pc net.PacketConn, addr net.Addr, packet []byte) {
	if len(packet) < voiceHeaderLen+1 {
		return
	}

	sessionID := binary.BigEndian.Uint32(packet[0:4])
	seq := binary.BigEndian.Uint64(packet[4:12])
	ciphertext := packet[12:]

	sess, ok := v.s.sess.Get(sessionID)
	if !ok || !sess.Authenticated() {
		return
	}
	crypto := sess.Crypto()
	if crypto == nil {
		return
	}

	plaintext, err := crypto.Decrypt(ciphertext, seq)
	if err != nil {
		return
	}

	sess.BindVoiceAddr(addr)
	v.dispatchVoicePayload(pc, sess.ID(), plaintext)
}

// handleTunnelled runs the same voice-packet logic for a packet that
// arrived over the already-authenticated TCP control channel (spec.md
// §6's UDPTunnel fallback for clients with no usable UDP path). The
// packet is already decrypted by decodeFrame, so no further AEAD step
// runs here.
func (v *voiceDemux) handleTunnelled(sess *session.Session, plaintext []byte) error {
	v.dispatchVoicePayload(v.pc, sess.ID(), plaintext)
	return nil
}

func (v *voiceDemux) dispatchVoicePayload(pc net.PacketConn, speakerID uint32, plaintext []byte) {
	if len(plaintext) < 1 {
		return
	}
	typ, target := wire.DecodeVoiceHeader(plaintext[0])
	if !typ.Recognized() {
		return
	}
	if typ == wire.VoicePing {
		return
	}

	payload := plaintext[1:]
	effects, err := v.s.fabric.RouteVoicePacket(speakerID, target, payload, time.Now())
	if err != nil || len(effects) == 0 {
		return
	}

	delivered := false
	for _, eff := range effects {
		if eff.Dropped {
			v.s.mtr.VoicePacketsDropped.WithLabelValues("fading").Inc()
			continue
		}
		delivered = true
		v.deliver(pc, speakerID, target, eff, payload)
	}
	if delivered {
		v.s.mtr.VoicePacketsRouted.Inc()
	}
}

func (v *voiceDemux) deliver(pc net.PacketConn, speakerID uint32, target uint8, eff routing.Effect, payload []byte) {
	receiver, ok := v.s.sess.Get(eff.ReceiverSessionID)
	if !ok {
		return
	}
	crypto := receiver.Crypto()
	if crypto == nil {
		return
	}

	out := make([]byte, 0, 1+8+len(payload))
	out = append(out, wire.EncodeVoiceHeader(wire.VoiceOpus, target))
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], eff.Sequence)
	out = append(out, seqBuf[:]...)
	out = append(out, payload...)

	ciphertext, txSeq := crypto.Encrypt(out)

	voiceAddr := receiver.VoiceAddr()
	if voiceAddr != nil && pc != nil {
		packet := make([]byte, voiceHeaderLen, voiceHeaderLen+len(ciphertext))
		binary.BigEndian.PutUint32(packet[0:4], speakerID)
		binary.BigEndian.PutUint64(packet[4:12], txSeq)
		packet = append(packet, ciphertext...)
		if _, err := pc.WriteTo(packet, voiceAddr); err != nil {
			log.Printf("server: voice write to %d: %v", receiver.ID(), err)
		}
		return
	}

	v.deliverViaTunnel(receiver, speakerID, txSeq, ciphertext)
}

func (v *voiceDemux) deliverViaTunnel(receiver *session.Session, speakerID uint32, txSeq uint64, ciphertext []byte) {
	cc, ok := connFor(receiver.ID())
	if !ok {
		return
	}

	packet := make([]byte, voiceHeaderLen, voiceHeaderLen+len(ciphertext))
	binary.BigEndian.PutUint32(packet[0:4], speakerID)
	binary.BigEndian.PutUint64(packet[4:12], txSeq)
	packet = append(packet, ciphertext...)

	cc.send(wire.UDPTunnel, wire.UDPTunnelRecord{VoicePacket: packet}.Encode())
}
