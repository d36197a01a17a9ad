// Package routing implements spec.md §4.4: for each voice frame, produce
// the set of (receiver, per-packet effects) pairs and hand them to the
// transport. It has no socket code of its own — it is pure fan-out logic
// consulting internal/channel for membership/ACL/listeners and
// internal/propagation for per-pair degradation, grounded on the same
// "stable ids, not pointers" discipline DESIGN NOTES §9 requires.
package routing

import (
	"math/rand"
	"time"

	"github.com/signalsfoundry/murmurhf/internal/channel"
	"github.com/signalsfoundry/murmurhf/internal/propagation"
	"github.com/signalsfoundry/murmurhf/internal/session"
	"github.com/signalsfoundry/murmurhf/internal/store"
)

// SilenceThreshold is the signal-strength floor of spec.md §4.4 point 3:
// below this the packet is dropped outright for that receiver.
const SilenceThreshold = 0.05

// sampleDrop implements spec.md §4.4 point 5's "with probability
// packet_loss_probability: drop this packet for R."
func sampleDrop(packetLoss float64) bool {
	return rand.Float64() < packetLoss
}

// Effect describes what happens to a voice packet forwarded (or not) to
// one receiver.
type Effect struct {
	ReceiverSessionID uint32
	Dropped           bool
	Sequence          uint64
	Jitter            float64
	NoiseFactor       float64
	Volume            channel.VolumeAdjustment
	ViaListener       bool
}

// JitterSink is the minimal downstream delay-line interface spec.md
// §4.4 point 4 specifies only as "interface only", given a concrete shape
// here per SPEC_FULL.md §5 (AudioReceiverBuffer). Actual jitter-buffer
// mixing and the additive-noise layer remain out of scope (spec.md §1
// Non-goals: no spectral audio synthesis).
type JitterSink interface {
	Accept(receiverSessionID uint32, sequence uint64, jitter, noiseFactor float64, payload []byte)
}

// Fabric ties together the channel tree, the propagation engine, the
// session manager and the external store to answer "who receives this
// packet, and how degraded".
type Fabric struct {
	tree    *channel.Tree
	engine  *propagation.Engine
	sess    *session.Manager
	st      *store.Store
	groups  *store.TempGroups

	targets *targetCache
	seq     *sequenceTracker
}

// New builds a routing Fabric over its collaborators.
func New(tree *channel.Tree, engine *propagation.Engine, sess *session.Manager, st *store.Store, groups *store.TempGroups) *Fabric {
	f := &Fabric{
		tree:    tree,
		engine:  engine,
		sess:    sess,
		st:      st,
		groups:  groups,
		targets: newTargetCache(),
		seq:     newSequenceTracker(),
	}
	f.targets.materialize = f.materializeWhisperTarget
	return f
}

// sessionsByUserID returns every currently connected session belonging to
// userID — a user may only have one live session in practice, but the
// routing layer doesn't assume it.
func (f *Fabric) sessionsByUserID(userID int) []*session.Session {
	var out []*session.Session
	for _, s := range f.sess.All() {
		if uid, ok := s.UserID(); ok && uid == userID {
			out = append(out, s)
		}
	}
	return out
}

// candidatesForNormalSpeech implements spec.md §4.4's τ=0 rule: members
// of C plus C's listeners.
func (f *Fabric) candidatesForNormalSpeech(channelID int) []uint32 {
	seen := make(map[uint32]bool)
	var out []uint32

	for _, s := range f.sess.All() {
		if s.ChannelID() == channelID && s.Authenticated() {
			if !seen[s.ID()] {
				seen[s.ID()] = true
				out = append(out, s.ID())
			}
		}
	}

	for _, binding := range f.tree.ListenersOf(channelID) {
		for _, s := range f.sessionsByUserID(binding.UserID) {
			if !seen[s.ID()] {
				seen[s.ID()] = true
				out = append(out, s.ID())
			}
		}
	}

	return out
}

// isExcluded applies spec.md §4.4's always-excluded rule: server-deafened
// receivers, and receivers whose block list contains the speaker (the
// speaker-equals-receiver case is filtered by the caller before this
// runs).
func (f *Fabric) isExcluded(speakerUserID int, candidate *session.Session) bool {
	if candidate.Flags().ServerDeaf {
		return true
	}
	if f.st == nil || speakerUserID == 0 {
		return false
	}
	receiverUserID, ok := candidate.UserID()
	if !ok {
		return false
	}
	blocked, err := f.st.IsBlocked(receiverUserID, speakerUserID)
	return err == nil && blocked
}

// RouteVoicePacket is the entry point spec.md §4.4 describes: given a
// speaker and a voice-packet target, it returns the per-receiver effects
// to apply before the transport emits the packet. A listening-only
// speaker (spec.md §4.4 "Listening-only restriction") yields zero
// effects, no error — the packet is silently absorbed.
func (f *Fabric) RouteVoicePacket(speakerID uint32, target uint8, payload []byte, now time.Time) ([]Effect, error) {
	speaker, ok := f.sess.Get(speakerID)
	if !ok {
		return nil, nil
	}

	if f.isListeningOnly(speaker) {
		return nil, nil
	}

	var candidates []uint32
	switch {
	case target == 0:
		candidates = f.candidatesForNormalSpeech(speaker.ChannelID())
	case target >= 1 && target <= 30:
		candidates = f.targets.resolve(speakerID, target)
	default:
		return nil, nil
	}

	speakerUserID, _ := speaker.UserID()

	effects := make([]Effect, 0, len(candidates))
	for _, rid := range candidates {
		if rid == speakerID {
			continue
		}
		receiver, ok := f.sess.Get(rid)
		if !ok {
			continue
		}
		if f.isExcluded(speakerUserID, receiver) {
			continue
		}

		eff := f.effectFor(speaker, receiver, now)
		effects = append(effects, eff)
	}

	return effects, nil
}

// ClearSession drops every whisper-target binding and sequence-counter
// state a departing session held, so a later session that reuses the same
// id never inherits stale targets or sequence numbers.
func (f *Fabric) ClearSession(sessionID uint32) {
	f.targets.ClearSession(sessionID)
	f.seq.clearSpeaker(sessionID)
}

// isListeningOnly checks the store-backed listening-only flag of
// spec.md §4.4's speak restriction.
func (f *Fabric) isListeningOnly(s *session.Session) bool {
	uid, ok := s.UserID()
	if !ok || f.st == nil {
		return false
	}
	v, found, err := f.st.GetProperty(uid, store.PropListeningOnlyFlag)
	if err != nil || !found {
		return false
	}
	return v == "1" || v == "true"
}

// effectFor computes the per-pair effect of spec.md §4.4 points 1-5 for
// one candidate receiver.
func (f *Fabric) effectFor(speaker, receiver *session.Session, now time.Time) Effect {
	seq := f.seq.next(speaker.ID(), receiver.ID())
	eff := Effect{ReceiverSessionID: receiver.ID(), Sequence: seq}

	gridS, hasS := speaker.GridLocator()
	gridR, hasR := receiver.GridLocator()

	if !hasS || !hasR {
		eff.Volume = f.listenerVolume(speaker, receiver)
		eff.ViaListener = eff.Volume != channel.Identity() || f.isListener(receiver, speaker.ChannelID())
		return eff
	}

	s, err := f.engine.SignalStrength(gridS, gridR, now)
	if err != nil || s < SilenceThreshold {
		eff.Dropped = true
		return eff
	}

	packetLoss, jitter, noise := f.engine.FadingEffects(s, now)
	if sampleDrop(packetLoss) {
		eff.Dropped = true
		return eff
	}

	eff.Jitter = jitter
	eff.NoiseFactor = noise
	eff.Volume = f.listenerVolume(speaker, receiver)
	eff.ViaListener = f.isListener(receiver, speaker.ChannelID())
	return eff
}

// isListener reports whether receiver is receiving channelID's audio as
// a listener rather than as a channel member.
func (f *Fabric) isListener(receiver *session.Session, channelID int) bool {
	if receiver.ChannelID() == channelID {
		return false
	}
	uid, ok := receiver.UserID()
	if !ok {
		return false
	}
	_, listening := f.tree.IsListening(uid, channelID)
	return listening
}

// listenerVolume returns the listener-binding volume adjustment to apply
// if receiver hears speaker's channel as a listener, identity otherwise
// (spec.md §4.4 point 5).
func (f *Fabric) listenerVolume(speaker, receiver *session.Session) channel.VolumeAdjustment {
	uid, ok := receiver.UserID()
	if !ok {
		return channel.Identity()
	}
	if v, listening := f.tree.IsListening(uid, speaker.ChannelID()); listening {
		return v
	}
	return channel.Identity()
}
