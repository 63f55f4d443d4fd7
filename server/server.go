package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/wfunc/snaphunt/broadcast"
	"github.com/wfunc/snaphunt/config"
	"github.com/wfunc/snaphunt/logger"
	"github.com/wfunc/snaphunt/models"
	"github.com/wfunc/snaphunt/monitor"
	"github.com/wfunc/snaphunt/network"
	"github.com/wfunc/snaphunt/ratelimit"
	"github.com/wfunc/snaphunt/recovery"
	"github.com/wfunc/snaphunt/room"
	snaphunt_rpc "github.com/wfunc/snaphunt/rpc"
	"github.com/wfunc/snaphunt/services"
	"github.com/wfunc/snaphunt/session"
	"github.com/wfunc/snaphunt/state"
	"github.com/wfunc/snaphunt/timer"
)

const (
	actionJoin   = "join"
	actionSubmit = "submit"

	heartbeatInterval = 30 * time.Second
)

// GameServer is the real-time connection boundary: it validates and
// rate-checks inbound events, routes them into the room registry and state
// machines, and owns the disconnect/rejoin path through the recovery cache.
type GameServer struct {
	cfg      *config.Config
	clock    clockwork.Clock
	upgrader websocket.Upgrader

	sessionManager *session.Manager
	registry       *room.Registry
	limiter        *ratelimit.Limiter
	recoveryCache  *recovery.Cache
	scheduler      *timer.Scheduler
	monitor        *monitor.Monitor
	rpcServer      *snaphunt_rpc.Server

	shutdownChan chan struct{}
}

func NewGameServer(cfg *config.Config, clock clockwork.Clock) *GameServer {
	s := &GameServer{
		cfg:            cfg,
		clock:          clock,
		sessionManager: session.NewManager(),
		scheduler:      timer.NewScheduler(clock),
		recoveryCache:  recovery.NewCache(clock, cfg.Game.RecoveryTTL),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.limiter = ratelimit.New(clock, map[string]ratelimit.Rule{
		actionJoin:   {Max: cfg.Limits.Join.Max, Window: cfg.Limits.Join.Window},
		actionSubmit: {Max: cfg.Limits.Submit.Max, Window: cfg.Limits.Submit.Window},
	})

	broadcaster := broadcast.NewRoomBroadcaster(s.sessionManager)
	s.registry = room.NewRegistry(cfg.Game, clock, s.scheduler, broadcaster,
		services.NewItemService(), services.NewLabelMatcher())

	s.monitor = monitor.NewMonitor("snaphunt", s)

	rpcServer, err := snaphunt_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	if err := snaphunt_rpc.RegisterOps(snaphunt_rpc.NewOpsService(s)); err != nil {
		logger.Log.Fatalf("Failed to register ops RPC service: %v", err)
	}

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	go s.maintenanceLoop()
	s.monitor.StartServer(s.cfg.Server.MonitorAddress)

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	return http.ListenAndServe(s.cfg.Server.HTTPAddress, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
}

// StatusSnapshot implements the status source for /status and the ops RPC.
func (s *GameServer) StatusSnapshot() models.StatusReport {
	total, active := s.registry.Counts()
	return models.StatusReport{
		ActiveRooms:      active,
		TotalRooms:       total,
		ConnectedPlayers: s.sessionManager.Len(),
		ArmedTimers:      s.scheduler.Active(),
		RecoveryRecords:  s.recoveryCache.Len(),
		RateWindows:      s.limiter.Snapshot(),
	}
}

// maintenanceLoop drives the cross-room periodic work: idle-room reaping,
// rate-window pruning and recovery-cache sweeping. Each pass touches one
// room's data at a time, so no coordination with per-room handling is needed.
func (s *GameServer) maintenanceLoop() {
	ticker := s.clock.NewTicker(s.cfg.Game.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.registry.ReapInactive(s.cfg.Game.RoomMaxIdle)
			s.limiter.Cleanup()
			s.recoveryCache.Sweep()
			_, active := s.registry.Counts()
			s.monitor.SetActiveRooms(active)
		case <-s.shutdownChan:
			return
		}
	}
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(heartbeatInterval)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	// coarse flood guard in front of the per-action limiter
	flood := rate.NewLimiter(rate.Limit(s.cfg.Limits.ConnectionMsgsPerSec), s.cfg.Limits.ConnectionBurst)

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.handleDisconnect(sess)
		s.monitor.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			if !flood.Allow() {
				logger.Log.Warnf("Session %s flooding, dropped message %d", sess.GetID(), packet.MsgID)
				continue
			}
			s.handlePacket(sess, packet)
		}
	}
}

// handleDisconnect snapshots the player into the recovery cache before room
// cleanup, so a reconnect inside the grace window restores their progress.
func (s *GameServer) handleDisconnect(sess *session.Session) {
	s.limiter.Clear(sess.ID)
	if sess.RoomID != "" {
		if r, ok := s.registry.GetRoom(sess.RoomID); ok {
			if snapshot, ok := r.PlayerSnapshot(sess.ID); ok {
				s.recoveryCache.Put(sess.ID, sess.RoomID, snapshot)
			}
		}
		s.registry.LeaveRoom(sess.RoomID, sess.ID)
	}
	s.sessionManager.Remove(sess.GetID())
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.monitor.IncMessagesReceived()
	defer func() {
		s.monitor.ObserveMessageLatency(time.Since(start))
	}()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeJoinGame:
		s.handleJoinGame(sess, packet)
	case network.MsgTypeAttemptRejoin:
		s.handleAttemptRejoin(sess, packet)
	case network.MsgTypeSubmitItem:
		s.handleSubmitItem(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *GameServer) handleJoinGame(sess *session.Session, packet *network.Packet) {
	var req models.JoinGameRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "validation", "malformed join request")
		return
	}

	if sess.RoomID != "" {
		s.sendError(sess, "validation", "already in a game")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > s.cfg.Game.MaxNameLength {
		s.sendError(sess, "validation", "name must be 1-"+
			strconv.Itoa(s.cfg.Game.MaxNameLength)+" characters")
		return
	}

	if !s.limiter.Allow(actionJoin, sess.ID) {
		s.sendRateLimited(sess, actionJoin)
		return
	}

	target := s.registry.FindJoinable()
	if target == nil {
		target = s.registry.CreateRoom()
	}

	player := &models.Player{ID: sess.ID, Name: name}
	if _, err := s.registry.JoinRoom(target.ID(), player); err != nil {
		// the room filled or died between the scan and the join; start fresh
		if errors.Is(err, room.ErrRoomFull) || errors.Is(err, room.ErrRoomNotFound) {
			target = s.registry.CreateRoom()
			if _, err = s.registry.JoinRoom(target.ID(), player); err == nil {
				sess.Name = name
				sess.RoomID = target.ID()
				return
			}
		}
		s.sendError(sess, "room_full", "could not join a room, retry shortly")
		return
	}
	sess.Name = name
	sess.RoomID = target.ID()
}

func (s *GameServer) handleSubmitItem(sess *session.Session, packet *network.Packet) {
	var req models.SubmitItemRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || strings.TrimSpace(req.Prediction) == "" {
		s.sendError(sess, "validation", "malformed submission")
		return
	}

	if sess.RoomID == "" {
		s.sendError(sess, "room_not_found", "join a game before submitting")
		return
	}

	if !s.limiter.Allow(actionSubmit, sess.ID) {
		s.sendRateLimited(sess, actionSubmit)
		return
	}

	r, exists := s.registry.GetRoom(sess.RoomID)
	if !exists {
		sess.RoomID = ""
		s.sendError(sess, "room_not_found", "room no longer exists")
		return
	}

	claim := models.Claim{Label: req.Prediction, Confidence: req.Confidence}
	result, err := r.Submit(sess.ID, claim)
	if err != nil {
		s.sendError(sess, submitErrorType(err), err.Error())
		return
	}
	if result.Matched {
		s.monitor.IncSubmissionsScored()
	}
	// unmatched claims are not answered; the recognizer keeps trying
}

func (s *GameServer) handleAttemptRejoin(sess *session.Session, packet *network.Packet) {
	var req models.AttemptRejoinRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.PlayerID == "" {
		s.sendError(sess, "validation", "malformed rejoin request")
		return
	}

	if sess.RoomID != "" {
		s.sendError(sess, "validation", "already in a game")
		return
	}

	rec, ok := s.recoveryCache.Take(req.PlayerID)
	if !ok {
		s.sendRejoinResult(sess, models.RejoinResultEvent{Success: false})
		return
	}

	r, exists := s.registry.GetRoom(rec.RoomID)
	if !exists {
		s.sendRejoinResult(sess, models.RejoinResultEvent{Success: false})
		return
	}

	restored, err := r.RestorePlayer(sess.ID, rec.Player)
	if err != nil {
		logger.Log.Infof("Session %s could not recover into room %s: %v", sess.ID, rec.RoomID, err)
		s.sendRejoinResult(sess, models.RejoinResultEvent{Success: false})
		return
	}

	sess.Name = restored.Name
	sess.RoomID = rec.RoomID
	snapshot := r.Snapshot(sess.ID)
	s.sendRejoinResult(sess, models.RejoinResultEvent{Success: true, GameState: &snapshot})
}

func (s *GameServer) sendRejoinResult(sess *session.Session, event models.RejoinResultEvent) {
	data, _ := json.Marshal(event)
	sess.Send(network.MsgTypeRejoinResult, data)
}

func (s *GameServer) sendRateLimited(sess *session.Session, action string) {
	s.monitor.IncRateLimited()
	_, resetIn := s.limiter.Remaining(action, sess.ID)
	data, _ := json.Marshal(models.ErrorEvent{
		Type:      "rate_limited",
		Message:   "too many " + action + " attempts",
		RetryInMs: resetIn.Milliseconds(),
	})
	sess.Send(network.MsgTypeError, data)
}

func (s *GameServer) sendError(sess *session.Session, errType, message string) {
	data, _ := json.Marshal(models.ErrorEvent{Type: errType, Message: message})
	if err := sess.Send(network.MsgTypeError, data); err != nil {
		logger.Log.Debugf("failed to send error to %s: %v", sess.ID, err)
	}
}

func submitErrorType(err error) string {
	switch {
	case errors.Is(err, state.ErrNotActive):
		return "not_active"
	case errors.Is(err, state.ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, state.ErrSubmissionInFlight):
		return "submission_in_flight"
	case errors.Is(err, state.ErrAlreadyScored):
		return "validation"
	case errors.Is(err, room.ErrRoomNotFound):
		return "room_not_found"
	default:
		return "validation"
	}
}
