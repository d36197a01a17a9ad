// Package server wires the connection layer, channel tree, propagation
// engine, routing fabric, store and module bus together into the running
// process, in the role the teacher's listen.go/multiserver.go Accept loop
// plays for its own protocol: accept connections, hand each to its own
// goroutine, and keep a handful of process-wide collaborators reachable
// from every one of them.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"

	"github.com/signalsfoundry/murmurhf/internal/bus"
	"github.com/signalsfoundry/murmurhf/internal/channel"
	"github.com/signalsfoundry/murmurhf/internal/config"
	"github.com/signalsfoundry/murmurhf/internal/metrics"
	"github.com/signalsfoundry/murmurhf/internal/modules"
	"github.com/signalsfoundry/murmurhf/internal/propagation"
	"github.com/signalsfoundry/murmurhf/internal/routing"
	"github.com/signalsfoundry/murmurhf/internal/session"
	"github.com/signalsfoundry/murmurhf/internal/stats"
	"github.com/signalsfoundry/murmurhf/internal/store"
)

// Server owns every process-wide collaborator and the two listeners
// (control TCP, voice UDP) that feed them.
type Server struct {
	cfg *config.Config

	store   *store.Store
	stats   *stats.Store
	tree    *channel.Tree
	engine  *propagation.Engine
	sess    *session.Manager
	groups  *store.TempGroups
	fabric  *routing.Fabric
	bus     *bus.Bus
	mtr     *metrics.Metrics
	modules *modules.Manager

	voice *voiceDemux
}

// New assembles a Server from cfg and an already-open store, bootstrapping
// the channel tree and ACL rows from the [channels],
// [channel_description], [channel_links] and [acl] config sections. The
// temporary group table starts empty.
func New(cfg *config.Config, st *store.Store, statsRoot string) (*Server, error) {
	b := bus.New()
	mtr := metrics.New()

	s := &Server{
		cfg:     cfg,
		store:   st,
		sess:    session.NewManager(cfg.Users),
		groups:  store.NewTempGroups(),
		bus:     b,
		mtr:     mtr,
		modules: modules.New(0),
	}

	s.tree = channel.New(channelNotifier{s})
	if err := bootstrapChannels(s.tree, cfg); err != nil {
		return nil, fmt.Errorf("server: bootstrap channels: %w", err)
	}
	if err := bootstrapACL(s.tree, cfg); err != nil {
		return nil, fmt.Errorf("server: bootstrap acl: %w", err)
	}

	initial := propagation.NewState(
		cfg.HFPropagation.SolarFluxIndex,
		cfg.HFPropagation.KIndex,
		cfg.HFPropagation.Season,
		cfg.HFPropagation.AutoSeason,
	)
	s.engine = propagation.New(initial, b, mtr)
	s.fabric = routing.New(s.tree, s.engine, s.sess, st, s.groups)

	if statsRoot != "" {
		statsStore, err := stats.Open(statsRoot)
		if err != nil {
			return nil, fmt.Errorf("server: open stats store: %w", err)
		}
		s.stats = statsStore
	}

	s.voice = newVoiceDemux(s)

	return s, nil
}

// Metrics returns the Prometheus collector set registered for this
// server, for an HTTP handler set up by the caller (cmd/murmurhfd).
func (s *Server) Metrics() *metrics.Metrics {
	return s.mtr
}

// channelNotifier adapts Server onto channel.Notifier, broadcasting
// ChannelState/ChannelRemove frames to every connected session, per
// spec.md §4.2 "broadcast channel- and user-state changes."
type channelNotifier struct{ s *Server }

func (n channelNotifier) ChannelStateChanged(channelID int) {
	c, ok := n.s.tree.Channel(channelID)
	if !ok {
		return
	}
	n.s.broadcastChannelState(c)
}

func (n channelNotifier) ChannelRemoved(channelID int) {
	n.s.broadcastChannelRemove(channelID)
}

func bootstrapChannels(tree *channel.Tree, cfg *config.Config) error {
	ids := sortedKeys(cfg.Channels)
	for _, id := range ids {
		if id == channel.RootID {
			continue
		}
		desc := cfg.ChannelDescription[id]
		if err := tree.AddChannel(id, cfg.Channels[id], desc, channel.RootID, false); err != nil {
			return err
		}
	}

	for id, raw := range cfg.ChannelLinks {
		for _, tok := range splitCSV(raw) {
			other, err := strconv.Atoi(tok)
			if err != nil {
				return fmt.Errorf("channel_links[%d]: %q is not a channel id: %w", id, tok, err)
			}
			if err := tree.AddPermanentLink(id, other); err != nil {
				return err
			}
		}
	}

	return nil
}

func bootstrapACL(tree *channel.Tree, cfg *config.Config) error {
	entries, err := config.ParseACL(cfg.ACL)
	if err != nil {
		return err
	}

	byChannel := make(map[int][]*channel.ACLRow)
	for _, e := range entries {
		row, err := aclRowFromEntry(e)
		if err != nil {
			return err
		}
		byChannel[e.ChannelID] = append(byChannel[e.ChannelID], row)
	}

	for channelID, rows := range byChannel {
		if err := tree.SetACL(channelID, rows); err != nil {
			return err
		}
	}
	return nil
}

func aclRowFromEntry(e config.ACLEntry) (*channel.ACLRow, error) {
	row := &channel.ACLRow{
		ChannelID: e.ChannelID,
		ApplyHere: true,
		ApplySubs: true,
	}

	switch {
	case e.Principal[0] == '#':
		id, err := strconv.Atoi(e.Principal[1:])
		if err != nil {
			return nil, err
		}
		row.UserID = &id
	default:
		row.Group = e.Principal
	}

	for _, name := range e.Allow {
		p, err := permissionByName(name)
		if err != nil {
			return nil, err
		}
		row.Allow |= p
	}
	for _, name := range e.Deny {
		p, err := permissionByName(name)
		if err != nil {
			return nil, err
		}
		row.Deny |= p
	}
	return row, nil
}

func permissionByName(name string) (channel.Permission, error) {
	switch name {
	case "enter":
		return channel.PermEnter, nil
	case "traverse":
		return channel.PermTraverse, nil
	case "speak":
		return channel.PermSpeak, nil
	case "whisper":
		return channel.PermWhisper, nil
	case "textmessage":
		return channel.PermTextMessage, nil
	case "makechannel":
		return channel.PermMakeChannel, nil
	case "linkchannel":
		return channel.PermLinkChannel, nil
	case "mutedeafen":
		return channel.PermMuteDeafen, nil
	case "move":
		return channel.PermMove, nil
	case "listen":
		return channel.PermListen, nil
	case "maketempchannel":
		return channel.PermMakeTempChannel, nil
	case "setgridlocator":
		return channel.PermSetGridLocator, nil
	case "modifybandplan":
		return channel.PermModifyBandplan, nil
	case "configurepropagation":
		return channel.PermConfigurePropagation, nil
	default:
		return channel.PermNone, fmt.Errorf("server: unknown permission %q", name)
	}
}

// Run starts the control-plane TCP listener and the voice-plane UDP
// listener, serving both until ctx is cancelled. It also launches the
// ionospheric updater task. Run blocks until every listener has shut down.
func (s *Server) Run(ctx context.Context) error {
	host := s.cfg.Host
	addr := net.JoinHostPort(host, strconv.Itoa(s.cfg.Port))

	tcpLn, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen tcp %s: %w", addr, err)
	}
	defer tcpLn.Close()

	udpConn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("server: listen udp %s: %w", addr, err)
	}
	defer udpConn.Close()

	log.Printf("server: listening on %s (tcp control, udp voice)", addr)

	go s.runUpdater(ctx)
	go s.voice.serve(ctx, udpConn)

	go func() {
		<-ctx.Done()
		tcpLn.Close()
	}()

	for {
		conn, err := tcpLn.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.modules.ShutdownAll(context.Background())
				return nil
			default:
				log.Printf("server: accept: %v", err)
				continue
			}
		}
		go s.handleControlConn(ctx, conn)
	}
}

func sortedKeys(m map[int]string) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
