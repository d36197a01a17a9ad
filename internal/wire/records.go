package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Records for message types that internal/session, internal/channel and
// internal/routing actually construct or parse. The remaining enum members
// (QueryUsers, ContextActionModify, ContextAction, UserList,
// PermissionQuery, CodecVersion, UserStats, RequestBlob, ServerConfig,
// SuggestConfig, PluginDataTransmission) are carried as opaque Frame
// payloads — no module operation in this spec needs to build their field
// layout, only route the tag.

func putString(buf []byte, s string) []byte {
	buf = append(buf, 0, 0)
	binary.BigEndian.PutUint16(buf[len(buf)-2:], uint16(len(s)))
	return append(buf, s...)
}

func getString(b []byte) (string, []byte, error) {
	if len(b) < 2 {
		return "", nil, fmt.Errorf("wire: truncated string length")
	}
	n := int(binary.BigEndian.Uint16(b[:2]))
	b = b[2:]
	if len(b) < n {
		return "", nil, fmt.Errorf("wire: truncated string body")
	}
	return string(b[:n]), b[n:], nil
}

func putBytes(buf []byte, v []byte) []byte {
	buf = append(buf, 0, 0, 0, 0)
	binary.BigEndian.PutUint32(buf[len(buf)-4:], uint32(len(v)))
	return append(buf, v...)
}

func getBytes(b []byte) ([]byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("wire: truncated bytes length")
	}
	n := int(binary.BigEndian.Uint32(b[:4]))
	b = b[4:]
	if len(b) < n {
		return nil, nil, fmt.Errorf("wire: truncated bytes body")
	}
	return b[:n], b[n:], nil
}

// VersionRecord is the Fresh-state handshake record.
type VersionRecord struct {
	Version ProtocolVersion
	Release string
	OS      string
}

func (r VersionRecord) Encode() []byte {
	buf := make([]byte, 0, 4+len(r.Release)+len(r.OS)+4)
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], r.Version.Encode())
	buf = append(buf, v[:]...)
	buf = putString(buf, r.Release)
	buf = putString(buf, r.OS)
	return buf
}

func DecodeVersionRecord(b []byte) (VersionRecord, error) {
	if len(b) < 4 {
		return VersionRecord{}, fmt.Errorf("wire: truncated VersionRecord")
	}
	r := VersionRecord{Version: DecodeProtocolVersion(binary.BigEndian.Uint32(b[:4]))}
	rest := b[4:]
	var err error
	if r.Release, rest, err = getString(rest); err != nil {
		return VersionRecord{}, err
	}
	if r.OS, _, err = getString(rest); err != nil {
		return VersionRecord{}, err
	}
	return r, nil
}

// AuthenticateRecord carries the username and the SRP exchange blob; no
// plaintext password ever crosses the wire (SPEC_FULL.md §4 domain stack).
type AuthenticateRecord struct {
	Username   string
	SRPMessage []byte
}

func (r AuthenticateRecord) Encode() []byte {
	buf := putString(nil, r.Username)
	return putBytes(buf, r.SRPMessage)
}

func DecodeAuthenticateRecord(b []byte) (AuthenticateRecord, error) {
	var r AuthenticateRecord
	var err error
	var rest []byte
	if r.Username, rest, err = getString(b); err != nil {
		return AuthenticateRecord{}, err
	}
	if r.SRPMessage, _, err = getBytes(rest); err != nil {
		return AuthenticateRecord{}, err
	}
	return r, nil
}

// RejectRecord closes a handshake or session with a reason.
type RejectRecord struct {
	Reason string
}

func (r RejectRecord) Encode() []byte { return putString(nil, r.Reason) }

func DecodeRejectRecord(b []byte) (RejectRecord, error) {
	reason, _, err := getString(b)
	return RejectRecord{Reason: reason}, err
}

// ServerSyncRecord completes a successful handshake with the assigned
// session id.
type ServerSyncRecord struct {
	SessionID   uint32
	WelcomeText string
	MaxUsers    uint32
}

func (r ServerSyncRecord) Encode() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], r.SessionID)
	binary.BigEndian.PutUint32(buf[4:8], r.MaxUsers)
	return putString(buf, r.WelcomeText)
}

func DecodeServerSyncRecord(b []byte) (ServerSyncRecord, error) {
	if len(b) < 8 {
		return ServerSyncRecord{}, fmt.Errorf("wire: truncated ServerSyncRecord")
	}
	r := ServerSyncRecord{
		SessionID: binary.BigEndian.Uint32(b[0:4]),
		MaxUsers:  binary.BigEndian.Uint32(b[4:8]),
	}
	var err error
	r.WelcomeText, _, err = getString(b[8:])
	return r, err
}

// CryptSetupRecord ships the symmetric key material internal/wirecrypto
// derives the per-session AEAD state from.
type CryptSetupRecord struct {
	Key [32]byte
}

func (r CryptSetupRecord) Encode() []byte {
	buf := make([]byte, 32)
	copy(buf, r.Key[:])
	return buf
}

func DecodeCryptSetupRecord(b []byte) (CryptSetupRecord, error) {
	if len(b) < 32 {
		return CryptSetupRecord{}, fmt.Errorf("wire: truncated CryptSetupRecord")
	}
	var r CryptSetupRecord
	copy(r.Key[:], b[:32])
	return r, nil
}

// PingRecord keeps a session's idle timer alive (spec.md §4.1 Liveness).
type PingRecord struct {
	Timestamp uint64
}

func (r PingRecord) Encode() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, r.Timestamp)
	return buf
}

func DecodePingRecord(b []byte) (PingRecord, error) {
	if len(b) < 8 {
		return PingRecord{}, fmt.Errorf("wire: truncated PingRecord")
	}
	return PingRecord{Timestamp: binary.BigEndian.Uint64(b[:8])}, nil
}

// ChannelStateRecord announces a channel's creation or mutation.
type ChannelStateRecord struct {
	ChannelID   int32
	ParentID    int32
	Name        string
	Description string
	Temporary   bool
	Position    int32
	Links       []int32
}

func (r ChannelStateRecord) Encode() []byte {
	buf := make([]byte, 0, 16)
	var head [13]byte
	binary.BigEndian.PutUint32(head[0:4], uint32(r.ChannelID))
	binary.BigEndian.PutUint32(head[4:8], uint32(r.ParentID))
	binary.BigEndian.PutUint32(head[8:12], uint32(r.Position))
	if r.Temporary {
		head[12] = 1
	}
	buf = append(buf, head[:]...)
	buf = putString(buf, r.Name)
	buf = putString(buf, r.Description)

	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(r.Links)))
	buf = append(buf, n[:]...)
	for _, l := range r.Links {
		var lb [4]byte
		binary.BigEndian.PutUint32(lb[:], uint32(l))
		buf = append(buf, lb[:]...)
	}
	return buf
}

func DecodeChannelStateRecord(b []byte) (ChannelStateRecord, error) {
	if len(b) < 13 {
		return ChannelStateRecord{}, fmt.Errorf("wire: truncated ChannelStateRecord")
	}
	r := ChannelStateRecord{
		ChannelID: int32(binary.BigEndian.Uint32(b[0:4])),
		ParentID:  int32(binary.BigEndian.Uint32(b[4:8])),
		Position:  int32(binary.BigEndian.Uint32(b[8:12])),
		Temporary: b[12] != 0,
	}
	rest := b[13:]
	var err error
	if r.Name, rest, err = getString(rest); err != nil {
		return ChannelStateRecord{}, err
	}
	if r.Description, rest, err = getString(rest); err != nil {
		return ChannelStateRecord{}, err
	}
	if len(rest) < 4 {
		return ChannelStateRecord{}, fmt.Errorf("wire: truncated ChannelStateRecord links")
	}
	n := int(binary.BigEndian.Uint32(rest[:4]))
	rest = rest[4:]
	r.Links = make([]int32, 0, n)
	for i := 0; i < n; i++ {
		if len(rest) < 4 {
			return ChannelStateRecord{}, fmt.Errorf("wire: truncated ChannelStateRecord link entry")
		}
		r.Links = append(r.Links, int32(binary.BigEndian.Uint32(rest[:4])))
		rest = rest[4:]
	}
	return r, nil
}

// ChannelRemoveRecord announces a channel's removal.
type ChannelRemoveRecord struct {
	ChannelID int32
}

func (r ChannelRemoveRecord) Encode() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(r.ChannelID))
	return buf
}

func DecodeChannelRemoveRecord(b []byte) (ChannelRemoveRecord, error) {
	if len(b) < 4 {
		return ChannelRemoveRecord{}, fmt.Errorf("wire: truncated ChannelRemoveRecord")
	}
	return ChannelRemoveRecord{ChannelID: int32(binary.BigEndian.Uint32(b[:4]))}, nil
}

// UserStateRecord announces a session's property change (channel move,
// mute/deaf flags, and so on).
type UserStateRecord struct {
	SessionID   int32
	ChannelID   int32
	Name        string
	SelfMute    bool
	SelfDeaf    bool
	Mute        bool
	Deaf        bool
	Suppress    bool
	Recording   bool
	GridLocator string
}

func (r UserStateRecord) Encode() []byte {
	buf := make([]byte, 9)
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.SessionID))
	binary.BigEndian.PutUint32(buf[4:8], uint32(r.ChannelID))
	var flags byte
	for i, f := range []bool{r.SelfMute, r.SelfDeaf, r.Mute, r.Deaf, r.Suppress, r.Recording} {
		if f {
			flags |= 1 << uint(i)
		}
	}
	buf[8] = flags
	buf = putString(buf, r.Name)
	return putString(buf, r.GridLocator)
}

func DecodeUserStateRecord(b []byte) (UserStateRecord, error) {
	if len(b) < 9 {
		return UserStateRecord{}, fmt.Errorf("wire: truncated UserStateRecord")
	}
	flags := b[8]
	r := UserStateRecord{
		SessionID: int32(binary.BigEndian.Uint32(b[0:4])),
		ChannelID: int32(binary.BigEndian.Uint32(b[4:8])),
		SelfMute:  flags&1 != 0,
		SelfDeaf:  flags&2 != 0,
		Mute:      flags&4 != 0,
		Deaf:      flags&8 != 0,
		Suppress:  flags&16 != 0,
		Recording: flags&32 != 0,
	}
	rest := b[9:]
	var err error
	if r.Name, rest, err = getString(rest); err != nil {
		return UserStateRecord{}, err
	}
	r.GridLocator, _, err = getString(rest)
	return r, err
}

// UserRemoveRecord announces a session's disconnection, optionally a kick
// or ban with a reason.
type UserRemoveRecord struct {
	SessionID int32
	Reason    string
	Ban       bool
}

func (r UserRemoveRecord) Encode() []byte {
	buf := make([]byte, 5)
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.SessionID))
	if r.Ban {
		buf[4] = 1
	}
	return putString(buf, r.Reason)
}

func DecodeUserRemoveRecord(b []byte) (UserRemoveRecord, error) {
	if len(b) < 5 {
		return UserRemoveRecord{}, fmt.Errorf("wire: truncated UserRemoveRecord")
	}
	r := UserRemoveRecord{
		SessionID: int32(binary.BigEndian.Uint32(b[0:4])),
		Ban:       b[4] != 0,
	}
	var err error
	r.Reason, _, err = getString(b[5:])
	return r, err
}

// TextMessageRecord is a best-effort, informational chat record — also the
// channel used to surface ValidationError warnings per spec.md §7.
type TextMessageRecord struct {
	ActorSession int32
	ChannelID    int32
	Text         string
}

func (r TextMessageRecord) Encode() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.ActorSession))
	binary.BigEndian.PutUint32(buf[4:8], uint32(r.ChannelID))
	return putString(buf, r.Text)
}

func DecodeTextMessageRecord(b []byte) (TextMessageRecord, error) {
	if len(b) < 8 {
		return TextMessageRecord{}, fmt.Errorf("wire: truncated TextMessageRecord")
	}
	r := TextMessageRecord{
		ActorSession: int32(binary.BigEndian.Uint32(b[0:4])),
		ChannelID:    int32(binary.BigEndian.Uint32(b[4:8])),
	}
	var err error
	r.Text, _, err = getString(b[8:])
	return r, err
}

// PermissionDeniedRecord is the reply for PermissionError and the
// "timeout"/"internal" reason strings of spec.md §7.
type PermissionDeniedRecord struct {
	Reason string
}

func (r PermissionDeniedRecord) Encode() []byte { return putString(nil, r.Reason) }

func DecodePermissionDeniedRecord(b []byte) (PermissionDeniedRecord, error) {
	reason, _, err := getString(b)
	return PermissionDeniedRecord{Reason: reason}, err
}

// ACLRow mirrors internal/channel.ACLRow on the wire: either UserID or
// Group is set, never both.
type ACLRow struct {
	ChannelID int32
	UserID    int32
	HasUser   bool
	Group     string
	Allow     uint32
	Deny      uint32
	ApplyHere bool
	ApplySubs bool
	Inherited bool
}

// ACLRecord ships the full ACL row set for one channel.
type ACLRecord struct {
	ChannelID int32
	Rows      []ACLRow
}

func (r ACLRecord) Encode() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.ChannelID))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(r.Rows)))
	for _, row := range r.Rows {
		var fixed [17]byte
		binary.BigEndian.PutUint32(fixed[0:4], uint32(row.ChannelID))
		binary.BigEndian.PutUint32(fixed[4:8], uint32(row.UserID))
		binary.BigEndian.PutUint32(fixed[8:12], row.Allow)
		binary.BigEndian.PutUint32(fixed[12:16], row.Deny)
		var flags byte
		for i, f := range []bool{row.HasUser, row.ApplyHere, row.ApplySubs, row.Inherited} {
			if f {
				flags |= 1 << uint(i)
			}
		}
		fixed[16] = flags
		buf = append(buf, fixed[:]...)
		buf = putString(buf, row.Group)
	}
	return buf
}

func DecodeACLRecord(b []byte) (ACLRecord, error) {
	if len(b) < 8 {
		return ACLRecord{}, fmt.Errorf("wire: truncated ACLRecord")
	}
	r := ACLRecord{ChannelID: int32(binary.BigEndian.Uint32(b[0:4]))}
	n := int(binary.BigEndian.Uint32(b[4:8]))
	rest := b[8:]
	r.Rows = make([]ACLRow, 0, n)
	for i := 0; i < n; i++ {
		if len(rest) < 17 {
			return ACLRecord{}, fmt.Errorf("wire: truncated ACLRecord row")
		}
		row := ACLRow{
			ChannelID: int32(binary.BigEndian.Uint32(rest[0:4])),
			UserID:    int32(binary.BigEndian.Uint32(rest[4:8])),
			Allow:     binary.BigEndian.Uint32(rest[8:12]),
			Deny:      binary.BigEndian.Uint32(rest[12:16]),
		}
		flags := rest[16]
		row.HasUser = flags&1 != 0
		row.ApplyHere = flags&2 != 0
		row.ApplySubs = flags&4 != 0
		row.Inherited = flags&8 != 0
		var err error
		if row.Group, rest, err = getString(rest[17:]); err != nil {
			return ACLRecord{}, err
		}
		r.Rows = append(r.Rows, row)
	}
	return r, nil
}

// BanEntry mirrors internal/store's Ban record on the wire.
type BanEntry struct {
	Address  []byte
	PrefixLen uint8
	Username string
	CertHash string
	Reason   string
	Start    int64
	Duration int64
}

// BanListRecord ships the server's full ban list.
type BanListRecord struct {
	Bans []BanEntry
}

func (r BanListRecord) Encode() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(r.Bans)))
	for _, ban := range r.Bans {
		buf = putBytes(buf, ban.Address)
		buf = append(buf, ban.PrefixLen)
		buf = putString(buf, ban.Username)
		buf = putString(buf, ban.CertHash)
		buf = putString(buf, ban.Reason)
		var times [16]byte
		binary.BigEndian.PutUint64(times[0:8], uint64(ban.Start))
		binary.BigEndian.PutUint64(times[8:16], uint64(ban.Duration))
		buf = append(buf, times[:]...)
	}
	return buf
}

func DecodeBanListRecord(b []byte) (BanListRecord, error) {
	if len(b) < 4 {
		return BanListRecord{}, fmt.Errorf("wire: truncated BanListRecord")
	}
	n := int(binary.BigEndian.Uint32(b[:4]))
	rest := b[4:]
	r := BanListRecord{Bans: make([]BanEntry, 0, n)}
	for i := 0; i < n; i++ {
		var ban BanEntry
		var err error
		if ban.Address, rest, err = getBytes(rest); err != nil {
			return BanListRecord{}, err
		}
		if len(rest) < 1 {
			return BanListRecord{}, fmt.Errorf("wire: truncated BanListRecord prefix")
		}
		ban.PrefixLen = rest[0]
		rest = rest[1:]
		if ban.Username, rest, err = getString(rest); err != nil {
			return BanListRecord{}, err
		}
		if ban.CertHash, rest, err = getString(rest); err != nil {
			return BanListRecord{}, err
		}
		if ban.Reason, rest, err = getString(rest); err != nil {
			return BanListRecord{}, err
		}
		if len(rest) < 16 {
			return BanListRecord{}, fmt.Errorf("wire: truncated BanListRecord times")
		}
		ban.Start = int64(binary.BigEndian.Uint64(rest[0:8]))
		ban.Duration = int64(binary.BigEndian.Uint64(rest[8:16]))
		rest = rest[16:]
		r.Bans = append(r.Bans, ban)
	}
	return r, nil
}

// VoiceTargetChannel is one channel-id entry of a whisper-target tuple,
// carrying the original's recursive flag (SPEC_FULL.md §5 WhisperTarget).
type VoiceTargetChannel struct {
	ChannelID int32
	Recursive bool
	Group     string
}

// VoiceTargetRecord registers or clears a whisper-target slot.
type VoiceTargetRecord struct {
	Slot     uint8
	Sessions []int32
	Channels []VoiceTargetChannel
}

func (r VoiceTargetRecord) Encode() []byte {
	buf := []byte{r.Slot}
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(r.Sessions)))
	buf = append(buf, n[:]...)
	for _, s := range r.Sessions {
		var sb [4]byte
		binary.BigEndian.PutUint32(sb[:], uint32(s))
		buf = append(buf, sb[:]...)
	}
	binary.BigEndian.PutUint32(n[:], uint32(len(r.Channels)))
	buf = append(buf, n[:]...)
	for _, c := range r.Channels {
		var cb [5]byte
		binary.BigEndian.PutUint32(cb[0:4], uint32(c.ChannelID))
		if c.Recursive {
			cb[4] = 1
		}
		buf = append(buf, cb[:]...)
		buf = putString(buf, c.Group)
	}
	return buf
}

func DecodeVoiceTargetRecord(b []byte) (VoiceTargetRecord, error) {
	if len(b) < 5 {
		return VoiceTargetRecord{}, fmt.Errorf("wire: truncated VoiceTargetRecord")
	}
	r := VoiceTargetRecord{Slot: b[0]}
	rest := b[1:]
	nSessions := int(binary.BigEndian.Uint32(rest[:4]))
	rest = rest[4:]
	for i := 0; i < nSessions; i++ {
		if len(rest) < 4 {
			return VoiceTargetRecord{}, fmt.Errorf("wire: truncated VoiceTargetRecord session")
		}
		r.Sessions = append(r.Sessions, int32(binary.BigEndian.Uint32(rest[:4])))
		rest = rest[4:]
	}
	if len(rest) < 4 {
		return VoiceTargetRecord{}, fmt.Errorf("wire: truncated VoiceTargetRecord channel count")
	}
	nChannels := int(binary.BigEndian.Uint32(rest[:4]))
	rest = rest[4:]
	for i := 0; i < nChannels; i++ {
		if len(rest) < 5 {
			return VoiceTargetRecord{}, fmt.Errorf("wire: truncated VoiceTargetRecord channel")
		}
		c := VoiceTargetChannel{
			ChannelID: int32(binary.BigEndian.Uint32(rest[0:4])),
			Recursive: rest[4] != 0,
		}
		var err error
		if c.Group, rest, err = getString(rest[5:]); err != nil {
			return VoiceTargetRecord{}, err
		}
		r.Channels = append(r.Channels, c)
	}
	return r, nil
}

// ChannelListenerRecord registers or removes a listener binding over the
// wire (spec.md §4.2).
type ChannelListenerRecord struct {
	SessionID int32
	ChannelID int32
	Remove    bool
	VolumeType uint8
	VolumeFactor float64
}

func (r ChannelListenerRecord) Encode() []byte {
	buf := make([]byte, 18)
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.SessionID))
	binary.BigEndian.PutUint32(buf[4:8], uint32(r.ChannelID))
	if r.Remove {
		buf[8] = 1
	}
	buf[9] = r.VolumeType
	binary.BigEndian.PutUint64(buf[10:18], math.Float64bits(r.VolumeFactor))
	return buf
}

func DecodeChannelListenerRecord(b []byte) (ChannelListenerRecord, error) {
	if len(b) < 18 {
		return ChannelListenerRecord{}, fmt.Errorf("wire: truncated ChannelListenerRecord")
	}
	return ChannelListenerRecord{
		SessionID:    int32(binary.BigEndian.Uint32(b[0:4])),
		ChannelID:    int32(binary.BigEndian.Uint32(b[4:8])),
		Remove:       b[8] != 0,
		VolumeType:   b[9],
		VolumeFactor: math.Float64frombits(binary.BigEndian.Uint64(b[10:18])),
	}, nil
}

// PropagationUpdateRecord notifies clients of an ionospheric epoch bump
// (spec.md §4.3 state-change fan-out).
type PropagationUpdateRecord struct {
	Epoch            uint64
	SolarFluxIndex   int32
	KIndex           int32
	Season           int32
	CriticalFreqMHz  float64
}

func (r PropagationUpdateRecord) Encode() []byte {
	buf := make([]byte, 28)
	binary.BigEndian.PutUint64(buf[0:8], r.Epoch)
	binary.BigEndian.PutUint32(buf[8:12], uint32(r.SolarFluxIndex))
	binary.BigEndian.PutUint32(buf[12:16], uint32(r.KIndex))
	binary.BigEndian.PutUint32(buf[16:20], uint32(r.Season))
	binary.BigEndian.PutUint64(buf[20:28], math.Float64bits(r.CriticalFreqMHz))
	return buf
}

func DecodePropagationUpdateRecord(b []byte) (PropagationUpdateRecord, error) {
	if len(b) < 28 {
		return PropagationUpdateRecord{}, fmt.Errorf("wire: truncated PropagationUpdateRecord")
	}
	return PropagationUpdateRecord{
		Epoch:           binary.BigEndian.Uint64(b[0:8]),
		SolarFluxIndex:  int32(binary.BigEndian.Uint32(b[8:12])),
		KIndex:          int32(binary.BigEndian.Uint32(b[12:16])),
		Season:          int32(binary.BigEndian.Uint32(b[16:20])),
		CriticalFreqMHz: math.Float64frombits(binary.BigEndian.Uint64(b[20:28])),
	}, nil
}

// SignalQualityUpdateRecord notifies a session of its recomputed band
// recommendation after an ionospheric change.
type SignalQualityUpdateRecord struct {
	PeerSession    int32
	SignalStrength float64
	RecommendedBand int32
}

func (r SignalQualityUpdateRecord) Encode() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.PeerSession))
	binary.BigEndian.PutUint64(buf[4:12], math.Float64bits(r.SignalStrength))
	binary.BigEndian.PutUint32(buf[12:16], uint32(r.RecommendedBand))
	return buf
}

func DecodeSignalQualityUpdateRecord(b []byte) (SignalQualityUpdateRecord, error) {
	if len(b) < 16 {
		return SignalQualityUpdateRecord{}, fmt.Errorf("wire: truncated SignalQualityUpdateRecord")
	}
	return SignalQualityUpdateRecord{
		PeerSession:     int32(binary.BigEndian.Uint32(b[0:4])),
		SignalStrength:  math.Float64frombits(binary.BigEndian.Uint64(b[4:12])),
		RecommendedBand: int32(binary.BigEndian.Uint32(b[12:16])),
	}, nil
}

// HFBandSimulationUpdateRecord carries an ionospheric epoch and one MUF
// value. Unlike PropagationUpdateRecord it holds no solar flux, K index,
// season or critical frequency.
type HFBandSimulationUpdateRecord struct {
	Epoch  uint64
	MUFMHz float64
}

func (r HFBandSimulationUpdateRecord) Encode() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], r.Epoch)
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(r.MUFMHz))
	return buf
}

func DecodeHFBandSimulationUpdateRecord(b []byte) (HFBandSimulationUpdateRecord, error) {
	if len(b) < 16 {
		return HFBandSimulationUpdateRecord{}, fmt.Errorf("wire: truncated HFBandSimulationUpdateRecord")
	}
	return HFBandSimulationUpdateRecord{
		Epoch:  binary.BigEndian.Uint64(b[0:8]),
		MUFMHz: math.Float64frombits(binary.BigEndian.Uint64(b[8:16])),
	}, nil
}

// UDPTunnelRecord carries a voice packet tunnelled inside the control
// stream when the client has no usable UDP path.
type UDPTunnelRecord struct {
	VoicePacket []byte
}

func (r UDPTunnelRecord) Encode() []byte { return append([]byte(nil), r.VoicePacket...) }

func DecodeUDPTunnelRecord(b []byte) (UDPTunnelRecord, error) {
	return UDPTunnelRecord{VoicePacket: append([]byte(nil), b...)}, nil
}
