package server

import (
	"context"
	"encoding/hex"
	"log"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/signalsfoundry/murmurhf/internal/bus"
	"github.com/signalsfoundry/murmurhf/internal/channel"
	"github.com/signalsfoundry/murmurhf/internal/errs"
	"github.com/signalsfoundry/murmurhf/internal/propagation"
	"github.com/signalsfoundry/murmurhf/internal/routing"
	"github.com/signalsfoundry/murmurhf/internal/session"
	"github.com/signalsfoundry/murmurhf/internal/store"
	"github.com/signalsfoundry/murmurhf/internal/wire"
	"github.com/signalsfoundry/murmurhf/internal/wirecrypto"
)

// controlConn pairs a session's TCP connection with a write mutex, since
// both the connection's own read loop and asynchronous broadcasts
// (channel-state changes, propagation updates) write frames to it.
type controlConn struct {
	mu   sync.Mutex
	conn net.Conn
	sess *session.Session
}

func (c *controlConn) send(typ wire.MessageType, plaintext []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sendFrame(c.conn, c.sess, typ, plaintext)
}

var connsMu sync.RWMutex
var conns = make(map[uint32]*controlConn)

func registerConn(c *controlConn) {
	connsMu.Lock()
	conns[c.sess.ID()] = c
	connsMu.Unlock()
}

func unregisterConn(id uint32) {
	connsMu.Lock()
	delete(conns, id)
	connsMu.Unlock()
}

func connFor(id uint32) (*controlConn, bool) {
	connsMu.RLock()
	defer connsMu.RUnlock()
	c, ok := conns[id]
	return c, ok
}

// handleControlConn runs one client's handshake and control-message loop
// until the connection closes or the session transitions to Closed.
func (s *Server) handleControlConn(ctx context.Context, netConn net.Conn) {
	defer netConn.Close()

	sess, err := s.sess.Create(netConn.RemoteAddr())
	if err != nil {
		log.Printf("server: %v: %v", netConn.RemoteAddr(), err)
		return
	}
	cc := &controlConn{conn: netConn, sess: sess}
	registerConn(cc)
	defer func() {
		unregisterConn(sess.ID())
		s.onSessionClosed(sess)
	}()

	deadline := time.Now().Add(session.DefaultHandshakeDeadline)
	netConn.SetReadDeadline(deadline)

	for {
		f, err := wire.ReadFrame(netConn)
		if err != nil {
			if errs.KindOf(err) == errs.ProtocolError {
				log.Printf("server: session %d: %v", sess.ID(), err)
			}
			return
		}

		payload, err := decodeFrame(sess, f)
		if err != nil {
			// Crypto failure on a control frame: treat as malformed,
			// per spec.md §4.1 "malformed frame → close connection."
			log.Printf("server: session %d: frame decrypt failed", sess.ID())
			return
		}

		if sess.Authenticated() {
			netConn.SetReadDeadline(time.Time{})
		}

		if err := s.dispatchFrame(cc, sess, f.Type, payload); err != nil {
			if errs.KindOf(err) == errs.ProtocolError || errs.KindOf(err) == errs.TransportError {
				return
			}
			if errs.Is(err, errs.AuthError) {
				cc.send(wire.Reject, wire.RejectRecord{Reason: err.Error()}.Encode())
				return
			}
			if errs.Is(err, errs.PermissionError) {
				s.mtr.PermissionDenials.WithLabelValues("unknown").Inc()
				cc.send(wire.PermissionDenied, wire.PermissionDeniedRecord{Reason: err.Error()}.Encode())
			}
		}

		if sess.State() == session.Closed {
			return
		}
	}
}

func (s *Server) dispatchFrame(cc *controlConn, sess *session.Session, typ wire.MessageType, payload []byte) error {
	switch typ {
	case wire.Version:
		return s.handleVersion(sess, payload)
	case wire.Authenticate:
		return s.handleAuthenticate(cc, sess, payload)
	case wire.Ping:
		return s.handlePing(cc, sess, payload)
	case wire.TextMessage:
		return s.handleTextMessage(cc, sess, payload)
	case wire.UserState:
		return s.handleUserState(cc, sess, payload)
	case wire.ChannelState:
		return s.handleChannelState(sess, payload)
	case wire.ChannelRemove:
		return s.handleChannelRemove(sess, payload)
	case wire.ChannelListener:
		return s.handleChannelListener(cc, sess, payload)
	case wire.VoiceTarget:
		return s.handleVoiceTarget(sess, payload)
	case wire.UDPTunnel:
		return s.handleUDPTunnel(sess, payload)
	default:
		// Recognized-but-opaque message types (QueryUsers, UserList,
		// PermissionQuery, CodecVersion, UserStats, RequestBlob,
		// ServerConfig, SuggestConfig, PluginDataTransmission,
		// ContextAction/ContextActionModify): no module in this server
		// builds their field layout, only routes the tag past the
		// authentication gate below.
		if !sess.Authenticated() {
			return errs.New(errs.ProtocolError, "server", errUnauthenticated)
		}
		return nil
	}
}

type protoErr string

func (e protoErr) Error() string { return string(e) }

var errUnauthenticated = protoErr("message received before authentication")

func (s *Server) handleVersion(sess *session.Session, payload []byte) error {
	if _, err := wire.DecodeVersionRecord(payload); err != nil {
		return errs.New(errs.ProtocolError, "server.handleVersion", err)
	}
	return sess.HandleVersion()
}

func (s *Server) handleAuthenticate(cc *controlConn, sess *session.Session, payload []byte) error {
	rec, err := wire.DecodeAuthenticateRecord(payload)
	if err != nil {
		return errs.New(errs.ProtocolError, "server.handleAuthenticate", err)
	}

	switch sess.State() {
	case session.Versioned:
		return s.beginAuthentication(cc, sess, rec)
	case session.Authenticating:
		return s.finishAuthentication(cc, sess, rec)
	default:
		return errs.New(errs.ProtocolError, "server.handleAuthenticate", errUnexpectedAuth)
	}
}

var errUnexpectedAuth = protoErr("Authenticate received outside Versioned/Authenticating state")

func (s *Server) beginAuthentication(cc *controlConn, sess *session.Session, rec wire.AuthenticateRecord) error {
	if rec.Username == "" {
		return s.loginAnonymous(cc, sess)
	}

	_, lookupErr := s.store.LookupUserByName(rec.Username)
	if errs.Is(lookupErr, errs.NotFound) {
		if !s.cfg.Autoregister {
			cc.send(wire.Reject, wire.RejectRecord{Reason: "no such user"}.Encode())
			return errs.New(errs.AuthError, "server", errNoSuchUser)
		}
		return s.registerAndLogin(cc, sess, rec.Username)
	} else if lookupErr != nil {
		return lookupErr
	}

	serverB, err := sess.BeginAuthenticate(s.store, rec.Username, rec.SRPMessage)
	if err != nil {
		cc.send(wire.Reject, wire.RejectRecord{Reason: "authentication failed"}.Encode())
		return err
	}

	return cc.send(wire.Authenticate, wire.AuthenticateRecord{SRPMessage: serverB}.Encode())
}

var errNoSuchUser = protoErr("no such user and autoregister disabled")

// registerAndLogin claims name on first connect: `autoregister` (spec.md
// §6) means a never-before-seen name becomes a persisted account
// immediately rather than requiring an out-of-band registration RPC this
// server does not specify. The account gets a verifier the client never
// sees, so completing the handshake uses ForceAuthenticated the same way
// an anonymous login would.
func (s *Server) registerAndLogin(cc *controlConn, sess *session.Session, name string) error {
	token, err := session.RandomSessionToken(32)
	if err != nil {
		return errs.New(errs.Internal, "server.registerAndLogin", err)
	}
	salt, verifier, err := session.NewVerifier(name, string(token))
	if err != nil {
		return errs.New(errs.Internal, "server.registerAndLogin", err)
	}

	userID, err := s.store.RegisterUser(name, verifier, salt)
	if err != nil {
		cc.send(wire.Reject, wire.RejectRecord{Reason: "registration failed"}.Encode())
		return err
	}

	sess.SetUsername(name)
	sess.ForceAuthenticated(userID)
	if s.bus != nil {
		s.bus.Publish(bus.TopicUserRegistered, userID)
	}
	return s.completeHandshake(cc, sess, userID)
}

func (s *Server) finishAuthentication(cc *controlConn, sess *session.Session, rec wire.AuthenticateRecord) error {
	userID, err := sess.FinishAuthenticate(rec.SRPMessage)
	if err != nil {
		cc.send(wire.Reject, wire.RejectRecord{Reason: "authentication failed"}.Encode())
		return err
	}
	return s.completeHandshake(cc, sess, userID)
}

// loginAnonymous admits a listening-only-eligible session without SRP,
// per internal/session.ForceAuthenticated's documented purpose: no
// persisted verifier to check against. Given an empty name on the wire,
// it gets a random guest name instead of an empty one.
func (s *Server) loginAnonymous(cc *controlConn, sess *session.Session) error {
	token, err := session.RandomSessionToken(4)
	if err != nil {
		return errs.New(errs.Internal, "server.loginAnonymous", err)
	}
	sess.SetUsername("Guest-" + hex.EncodeToString(token))
	sess.ForceAuthenticated(0)
	return s.completeHandshake(cc, sess, 0)
}

// completeHandshake runs the success path of spec.md §4.1's Authenticating
// state: CryptSetup, the channel tree, the user roster, then ServerSync.
func (s *Server) completeHandshake(cc *controlConn, sess *session.Session, userID int) error {
	key, err := wirecrypto.RandomKey()
	if err != nil {
		return errs.New(errs.Internal, "server.completeHandshake", err)
	}
	cryptoSess, err := wirecrypto.NewSession(key)
	if err != nil {
		return errs.New(errs.Internal, "server.completeHandshake", err)
	}

	if err := cc.send(wire.CryptSetup, wire.CryptSetupRecord{Key: key}.Encode()); err != nil {
		return errs.New(errs.TransportError, "server.completeHandshake", err)
	}
	sess.SetCrypto(cryptoSess)
	sess.SetChannelID(channel.RootID)

	for _, id := range s.tree.DescendantsOf(channel.RootID) {
		c, ok := s.tree.Channel(id)
		if !ok {
			continue
		}
		if err := cc.send(wire.ChannelState, channelStateRecord(c, s.tree.LinkedChannels(id)).Encode()); err != nil {
			return errs.New(errs.TransportError, "server.completeHandshake", err)
		}
	}

	for _, other := range s.sess.All() {
		if other.ID() == sess.ID() || !other.Authenticated() {
			continue
		}
		if err := cc.send(wire.UserState, userStateRecord(other).Encode()); err != nil {
			return errs.New(errs.TransportError, "server.completeHandshake", err)
		}
	}

	if err := cc.send(wire.ServerSync, wire.ServerSyncRecord{
		SessionID:   sess.ID(),
		WelcomeText: s.cfg.WelcomeText,
		MaxUsers:    uint32(s.cfg.Users),
	}.Encode()); err != nil {
		return errs.New(errs.TransportError, "server.completeHandshake", err)
	}

	if s.bus != nil {
		s.bus.Publish(bus.TopicUserAuthenticated, userID)
	}
	s.broadcastUserState(userStateRecord(sess))
	s.mtr.SessionsActive.Set(float64(s.sess.Count()))
	return nil
}

func (s *Server) handlePing(cc *controlConn, sess *session.Session, payload []byte) error {
	rec, err := wire.DecodePingRecord(payload)
	if err != nil {
		return errs.New(errs.ProtocolError, "server.handlePing", err)
	}
	sess.Touch()
	return cc.send(wire.Ping, rec.Encode())
}

func (s *Server) requireAuthenticated(sess *session.Session) error {
	if !sess.Authenticated() {
		return errs.New(errs.ProtocolError, "server", errUnauthenticated)
	}
	return nil
}

// permissionDenied replies PermissionDenied to cc and records the denial
// under permission, the ACL bit name the caller lacked.
func (s *Server) permissionDenied(cc *controlConn, permission string) error {
	s.mtr.PermissionDenials.WithLabelValues(permission).Inc()
	return cc.send(wire.PermissionDenied, wire.PermissionDeniedRecord{Reason: "permission denied"}.Encode())
}

func (s *Server) handleTextMessage(cc *controlConn, sess *session.Session, payload []byte) error {
	if err := s.requireAuthenticated(sess); err != nil {
		return err
	}
	rec, err := wire.DecodeTextMessageRecord(payload)
	if err != nil {
		return errs.New(errs.ProtocolError, "server.handleTextMessage", err)
	}

	userID, _ := sess.UserID()
	if ok, err := s.tree.EffectivePermission(userID, int(rec.ChannelID)); err != nil || !ok.Has(channel.PermTextMessage) {
		return s.permissionDenied(cc, "textmessage")
	}

	rec.ActorSession = int32(sess.ID())

	var targets []uint32
	connsMu.RLock()
	for id, other := range conns {
		if other.sess.ChannelID() == int(rec.ChannelID) && other.sess.Authenticated() {
			targets = append(targets, id)
		}
	}
	connsMu.RUnlock()

	s.broadcastTextMessage(rec, targets)
	return nil
}

func (s *Server) handleUserState(cc *controlConn, sess *session.Session, payload []byte) error {
	if err := s.requireAuthenticated(sess); err != nil {
		return err
	}
	rec, err := wire.DecodeUserStateRecord(payload)
	if err != nil {
		return errs.New(errs.ProtocolError, "server.handleUserState", err)
	}

	targetID := uint32(rec.SessionID)
	if targetID == 0 {
		targetID = sess.ID()
	}
	target, ok := s.sess.Get(targetID)
	if !ok {
		return errs.New(errs.ValidationError, "server.handleUserState", errNoSuchSession)
	}

	actorUserID, _ := sess.UserID()

	if targetID != sess.ID() {
		perm, err := s.tree.EffectivePermission(actorUserID, target.ChannelID())
		if err != nil || !perm.Has(channel.PermMuteDeafen) {
			return s.permissionDenied(cc, "mutedeafen")
		}
		flags := target.Flags()
		flags.ServerMute = rec.Mute
		flags.ServerDeaf = rec.Deaf
		flags.Suppress = rec.Suppress
		target.SetFlags(flags)
	} else {
		flags := target.Flags()
		flags.SelfMute = rec.SelfMute
		flags.SelfDeaf = rec.SelfDeaf
		flags.Recording = rec.Recording
		target.SetFlags(flags)
	}

	if rec.ChannelID != 0 && int(rec.ChannelID) != target.ChannelID() {
		can, err := s.tree.CanEnter(actorUserID, int(rec.ChannelID))
		if err != nil || !can {
			return s.permissionDenied(cc, "move")
		}
		target.SetChannelID(int(rec.ChannelID))
		if uid, ok := target.UserID(); ok {
			s.store.SetProperty(uid, store.PropLastChannel, strconv.Itoa(int(rec.ChannelID)))
		}
	}

	if rec.GridLocator != "" {
		if err := s.applyGridLocator(cc, sess, target, rec.GridLocator); err != nil {
			return err
		}
	}

	out := userStateRecord(target)
	s.broadcastUserState(out)
	return nil
}

var errNoSuchSession = protoErr("no such session")

// applyGridLocator validates and persists a grid-locator change for
// target, sent by sess (either declaring its own location or, with
// PermSetGridLocator on the actor's current channel, setting another
// session's). A malformed locator is a ValidationError, per spec.md §7's
// "reply with a user-visible warning, session continues" policy.
func (s *Server) applyGridLocator(cc *controlConn, sess, target *session.Session, grid string) error {
	if target.ID() != sess.ID() {
		actorUserID, _ := sess.UserID()
		perm, err := s.tree.EffectivePermission(actorUserID, sess.ChannelID())
		if err != nil || !perm.Has(channel.PermSetGridLocator) {
			return s.permissionDenied(cc, "setgridlocator")
		}
	}

	if _, err := propagation.GridToCoordinates(grid); err != nil {
		cc.send(wire.TextMessage, wire.TextMessageRecord{Text: "invalid grid locator: " + grid}.Encode())
		return errs.New(errs.ValidationError, "server.applyGridLocator", err)
	}

	target.SetGridLocator(grid)
	if uid, ok := target.UserID(); ok {
		s.store.SetProperty(uid, store.PropGridLocator, grid)
	}
	return nil
}

func userStateRecord(sess *session.Session) wire.UserStateRecord {
	f := sess.Flags()
	grid, _ := sess.GridLocator()
	return wire.UserStateRecord{
		SessionID:   int32(sess.ID()),
		ChannelID:   int32(sess.ChannelID()),
		Name:        sess.Username(),
		SelfMute:    f.SelfMute,
		SelfDeaf:    f.SelfDeaf,
		Mute:        f.ServerMute,
		Deaf:        f.ServerDeaf,
		Suppress:    f.Suppress,
		Recording:   f.Recording,
		GridLocator: grid,
	}
}

func (s *Server) handleChannelState(sess *session.Session, payload []byte) error {
	if err := s.requireAuthenticated(sess); err != nil {
		return err
	}
	rec, err := wire.DecodeChannelStateRecord(payload)
	if err != nil {
		return errs.New(errs.ProtocolError, "server.handleChannelState", err)
	}

	userID, _ := sess.UserID()

	if rec.ChannelID == 0 {
		perm, err := s.tree.EffectivePermission(userID, int(rec.ParentID))
		if err != nil || !perm.Has(channel.PermMakeChannel) {
			return errs.New(errs.PermissionError, "server.handleChannelState", errPermDenied)
		}
		id := s.nextChannelID()
		return s.tree.AddChannel(id, rec.Name, rec.Description, int(rec.ParentID), false)
	}

	perm, err := s.tree.EffectivePermission(userID, int(rec.ChannelID))
	if err != nil || !perm.Has(channel.PermMakeChannel) {
		return errs.New(errs.PermissionError, "server.handleChannelState", errPermDenied)
	}
	return s.tree.UpdateChannel(int(rec.ChannelID), rec.Name, rec.Description, int(rec.Position))
}

var errPermDenied = protoErr("permission denied")

var channelIDCounter int32 = 1000

func (s *Server) nextChannelID() int {
	return int(atomic.AddInt32(&channelIDCounter, 1))
}

func (s *Server) handleChannelRemove(sess *session.Session, payload []byte) error {
	if err := s.requireAuthenticated(sess); err != nil {
		return err
	}
	rec, err := wire.DecodeChannelRemoveRecord(payload)
	if err != nil {
		return errs.New(errs.ProtocolError, "server.handleChannelRemove", err)
	}

	userID, _ := sess.UserID()
	perm, err := s.tree.EffectivePermission(userID, int(rec.ChannelID))
	if err != nil || !perm.Has(channel.PermMakeChannel) {
		return errs.New(errs.PermissionError, "server.handleChannelRemove", errPermDenied)
	}

	return s.tree.RemoveChannel(int(rec.ChannelID))
}

func (s *Server) handleChannelListener(cc *controlConn, sess *session.Session, payload []byte) error {
	if err := s.requireAuthenticated(sess); err != nil {
		return err
	}
	rec, err := wire.DecodeChannelListenerRecord(payload)
	if err != nil {
		return errs.New(errs.ProtocolError, "server.handleChannelListener", err)
	}

	userID, ok := sess.UserID()
	if !ok {
		return errs.New(errs.AuthError, "server.handleChannelListener", errNoSuchSession)
	}

	perm, err := s.tree.EffectivePermission(userID, int(rec.ChannelID))
	if err != nil || !perm.Has(channel.PermListen) {
		return s.permissionDenied(cc, "listen")
	}

	if rec.Remove {
		s.tree.RemoveListener(userID, int(rec.ChannelID))
		return nil
	}

	if err := s.tree.AddListener(userID, int(rec.ChannelID)); err != nil {
		return err
	}
	adj := channel.VolumeAdjustment{
		Type:   channel.AdjustmentType(rec.VolumeType),
		Factor: rec.VolumeFactor,
	}
	s.tree.SetListenerVolume(userID, int(rec.ChannelID), adj)
	return nil
}

func (s *Server) handleVoiceTarget(sess *session.Session, payload []byte) error {
	if err := s.requireAuthenticated(sess); err != nil {
		return err
	}
	rec, err := wire.DecodeVoiceTargetRecord(payload)
	if err != nil {
		return errs.New(errs.ProtocolError, "server.handleVoiceTarget", err)
	}

	if len(rec.Sessions) == 0 && len(rec.Channels) == 0 {
		s.fabric.ClearWhisperTarget(sess.ID(), rec.Slot)
		return nil
	}

	sessions := make([]uint32, len(rec.Sessions))
	for i, id := range rec.Sessions {
		sessions[i] = uint32(id)
	}
	channels := make([]routing.WhisperTargetChannel, len(rec.Channels))
	for i, c := range rec.Channels {
		channels[i] = routing.WhisperTargetChannel{
			ChannelID: int(c.ChannelID),
			Recursive: c.Recursive,
			Group:     c.Group,
		}
	}

	s.fabric.RegisterWhisperTarget(sess.ID(), rec.Slot, sessions, channels)
	return nil
}

func (s *Server) handleUDPTunnel(sess *session.Session, payload []byte) error {
	if err := s.requireAuthenticated(sess); err != nil {
		return err
	}
	rec, err := wire.DecodeUDPTunnelRecord(payload)
	if err != nil {
		return errs.New(errs.ProtocolError, "server.handleUDPTunnel", err)
	}
	return s.voice.handleTunnelled(sess, rec.VoicePacket)
}

func (s *Server) onSessionClosed(sess *session.Session) {
	s.sess.Remove(sess.ID())
	s.fabric.ClearSession(sess.ID())
	s.groups.ClearSession(int(sess.ID()))
	s.broadcastUserRemove(sess.ID(), "disconnected", false)
	s.mtr.SessionsActive.Set(float64(s.sess.Count()))
}

func channelStateRecord(c channel.Channel, links []int) wire.ChannelStateRecord {
	linkIDs := make([]int32, len(links))
	for i, l := range links {
		linkIDs[i] = int32(l)
	}
	return wire.ChannelStateRecord{
		ChannelID:   int32(c.ID),
		ParentID:    int32(c.ParentID),
		Name:        c.Name,
		Description: c.Description,
		Temporary:   c.Temporary,
		Position:    int32(c.Position),
		Links:       linkIDs,
	}
}
