package server

import (
	"github.com/signalsfoundry/murmurhf/internal/channel"
	"github.com/signalsfoundry/murmurhf/internal/wire"
)

// broadcastChannelState fans c's current state out to every connected
// session, per spec.md §4.2 "broadcast channel- and user-state changes."
func (s *Server) broadcastChannelState(c channel.Channel) {
	rec := channelStateRecord(c, s.tree.LinkedChannels(c.ID)).Encode()
	connsMu.RLock()
	defer connsMu.RUnlock()
	for _, cc := range conns {
		cc.send(wire.ChannelState, rec)
	}
}

// broadcastChannelRemove tells every connected session that channelID no
// longer exists.
func (s *Server) broadcastChannelRemove(channelID int) {
	rec := wire.ChannelRemoveRecord{ChannelID: int32(channelID)}.Encode()
	connsMu.RLock()
	defer connsMu.RUnlock()
	for _, cc := range conns {
		cc.send(wire.ChannelRemove, rec)
	}
}

// broadcastUserRemove tells every connected session that sessionID has
// left, per spec.md §4.1's disconnect/kick/ban notification.
func (s *Server) broadcastUserRemove(sessionID uint32, reason string, ban bool) {
	rec := wire.UserRemoveRecord{SessionID: int32(sessionID), Reason: reason, Ban: ban}.Encode()
	connsMu.RLock()
	defer connsMu.RUnlock()
	for _, cc := range conns {
		if cc.sess.ID() == sessionID {
			continue
		}
		cc.send(wire.UserRemove, rec)
	}
}

// broadcastUserState fans rec out to every connected session, used for
// channel moves, mute/deafen toggles, recording flags and the like.
func (s *Server) broadcastUserState(rec wire.UserStateRecord) {
	payload := rec.Encode()
	connsMu.RLock()
	defer connsMu.RUnlock()
	for _, cc := range conns {
		cc.send(wire.UserState, payload)
	}
}

// broadcastTextMessage sends rec to each session in sessionIDs that has an
// open connection; ids without one are skipped. The caller resolves the
// recipient set; an empty sessionIDs sends nothing.
func (s *Server) broadcastTextMessage(rec wire.TextMessageRecord, sessionIDs []uint32) {
	payload := rec.Encode()
	connsMu.RLock()
	defer connsMu.RUnlock()
	for _, id := range sessionIDs {
		if cc, ok := conns[id]; ok {
			cc.send(wire.TextMessage, payload)
		}
	}
}
