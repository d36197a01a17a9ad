// Package wire implements the control-plane framing spec.md §4.1/§6
// describes: a 2-byte big-endian message-type tag, a 4-byte big-endian
// length, and a length-prefixed payload. It also carries the voice-packet
// first-byte encoding. Field layouts for individual records follow the
// teacher's manual byte-packing style (readwrite.go) rather than a
// generated codec — no example repo in the pack reaches for protobuf.
package wire

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/signalsfoundry/murmurhf/internal/errs"
)

// MessageType is the closed enumeration of spec.md §4.1. Numeric tags are
// fixed for wire compatibility once assigned; never renumber an existing
// entry, only append.
type MessageType uint16

const (
	Version MessageType = iota
	Authenticate
	Ping
	Reject
	ServerSync
	ChannelRemove
	ChannelState
	UserRemove
	UserState
	BanList
	TextMessage
	PermissionDenied
	ACL
	QueryUsers
	CryptSetup
	ContextActionModify
	ContextAction
	UserList
	VoiceTarget
	PermissionQuery
	CodecVersion
	UserStats
	RequestBlob
	ServerConfig
	SuggestConfig
	PluginDataTransmission
	ChannelListener
	HFBandSimulationUpdate
	SignalQualityUpdate
	PropagationUpdate
	UDPTunnel

	numMessageTypes
)

func (t MessageType) Valid() bool {
	return t < numMessageTypes
}

func (t MessageType) String() string {
	names := [...]string{
		"Version", "Authenticate", "Ping", "Reject", "ServerSync",
		"ChannelRemove", "ChannelState", "UserRemove", "UserState", "BanList",
		"TextMessage", "PermissionDenied", "ACL", "QueryUsers", "CryptSetup",
		"ContextActionModify", "ContextAction", "UserList", "VoiceTarget",
		"PermissionQuery", "CodecVersion", "UserStats", "RequestBlob",
		"ServerConfig", "SuggestConfig", "PluginDataTransmission",
		"ChannelListener", "HFBandSimulationUpdate", "SignalQualityUpdate",
		"PropagationUpdate", "UDPTunnel",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "Unknown"
}

// MaxControlFrameLength is the per-session sanity bound of spec.md §4.1:
// control-message length ≤ 128 KiB.
const MaxControlFrameLength = 128 * 1024

// MaxVoicePacketLength is the per-session sanity bound of spec.md §4.1:
// voice-packet length ≤ 2 KiB.
const MaxVoicePacketLength = 2 * 1024

// Frame is one control-plane message: a type tag and its raw payload.
// Record-specific encode/decode helpers in this package turn Payload into
// typed values; callers that only need to forward or log a frame may treat
// Payload as opaque.
type Frame struct {
	Type    MessageType
	Payload []byte
}

var errFrameTooLarge = errors.New("wire: frame exceeds control-message length bound")

// ReadFrame reads one frame from r, enforcing MaxControlFrameLength. A
// length over the bound is a ProtocolError: spec.md §4.1 says a malformed
// frame closes the connection, and an oversized length is malformed by
// construction (no legitimate client ever needs a 128KiB+ control record).
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [6]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}

	typ := MessageType(binary.BigEndian.Uint16(hdr[0:2]))
	length := binary.BigEndian.Uint32(hdr[2:6])

	if length > MaxControlFrameLength {
		return Frame{}, errs.New(errs.ProtocolError, "wire", errFrameTooLarge)
	}
	if !typ.Valid() {
		return Frame{}, errs.New(errs.ProtocolError, "wire", errors.New("wire: unknown message type"))
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, err
	}
	return Frame{Type: typ, Payload: payload}, nil
}

// WriteFrame writes f to w as a 2-byte type tag, 4-byte length, payload.
func WriteFrame(w io.Writer, f Frame) error {
	var hdr [6]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(f.Type))
	binary.BigEndian.PutUint32(hdr[2:6], uint32(len(f.Payload)))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(f.Payload)
	return err
}

// ProtocolVersion packs the two 16-bit major/minor halves spec.md §6
// describes into the 32-bit wire value.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

func (v ProtocolVersion) Encode() uint32 {
	return uint32(v.Major)<<16 | uint32(v.Minor)
}

func DecodeProtocolVersion(raw uint32) ProtocolVersion {
	return ProtocolVersion{Major: uint16(raw >> 16), Minor: uint16(raw)}
}

// VoiceType is the 3-bit type field of a voice packet's first byte.
type VoiceType uint8

const (
	VoiceDataLegacy VoiceType = 0
	VoicePing       VoiceType = 1
	VoiceOpus       VoiceType = 2
)

func (t VoiceType) Recognized() bool {
	switch t {
	case VoiceDataLegacy, VoicePing, VoiceOpus:
		return true
	default:
		return false
	}
}

// Voice targets: 0 is normal speech to the current channel, 1..30 are
// whisper-target slots, 31 is server loopback.
const (
	VoiceTargetNormal     = 0
	VoiceTargetLoopback   = 31
	WhisperTargetMin      = 1
	WhisperTargetMax      = 30
)

// EncodeVoiceHeader packs target and typ into the "ttttt fff" layout
// spec.md §6 lays out MSB-first: 5-bit target in the high bits, 3-bit type
// in the low bits.
func EncodeVoiceHeader(typ VoiceType, target uint8) byte {
	return (target&0x1f)<<3 | byte(typ&0x7)
}

// DecodeVoiceHeader reverses EncodeVoiceHeader.
func DecodeVoiceHeader(b byte) (typ VoiceType, target uint8) {
	return VoiceType(b & 0x7), (b >> 3) & 0x1f
}
