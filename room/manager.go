package room

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/instapoker/server/game"
	"github.com/instapoker/server/proto"
	"github.com/instapoker/server/session"
)

const (
	balanceQueryTimeout = 2 * time.Second
	minPlayersToStart   = 2
)

type (
	// Manager owns all room state. A single coarse mutex guards the
	// room table, the user->room index and every room's mutable
	// fields; it is held only for in-memory mutation, never for
	// network writes. Replies and broadcasts go out on snapshots taken
	// under the lock.
	Manager struct {
		mx     sync.Mutex
		rooms  map[string]*Room
		byUser map[*session.Session]*Room
		rng    *rand.Rand
		logger zerolog.Logger
	}

	Config struct {
		Logger *zerolog.Logger
	}
)

func NewManager(cfg Config) *Manager {
	return &Manager{
		rooms:  make(map[string]*Room),
		byUser: make(map[*session.Session]*Room),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: cfg.Logger.With().Str("component", "room-manager").Logger(),
	}
}

// CreateRoom makes a new room owned by s and answers with the join
// code and default settings. A session still in another room leaves it
// first, so the one-room-per-connection invariant holds.
func (m *Manager) CreateRoom(s *session.Session) error {
	m.mx.Lock()
	if m.byUser[s] != nil {
		m.mx.Unlock()
		m.logger.Warn().Str("username", s.Username()).Msg("room creator was still in a room, leaving it")
		if err := m.LeaveRoom(s); err != nil {
			return err
		}
		m.mx.Lock()
	}
	// a create request can still be queued when its socket drops;
	// seating the dead session would leave an unreachable owner behind
	if s.Closed() {
		m.mx.Unlock()
		m.logger.Warn().Str("username", s.Username()).Msg("create request from closed session dropped")
		return nil
	}
	r := &Room{
		Code:     m.generateCode(),
		Members:  []*session.Session{s},
		Owner:    s,
		Settings: DefaultSettings(),
	}
	m.rooms[r.Code] = r
	m.byUser[s] = r
	settings := r.Settings
	m.mx.Unlock()

	m.logger.Info().Str("code", r.Code).Str("owner", s.Username()).Msg("room created")
	return s.Send(&proto.CreateRoomResponse{
		RoomCode: r.Code,
		Settings: settings,
	})
}

// JoinRoom adds s to the room with the given code, or answers with the
// reason it cannot. On success the join response reaches s before the
// UserJoined broadcast reaches anyone, and s never sees the broadcast
// about itself.
func (m *Manager) JoinRoom(s *session.Session, code string) error {
	m.mx.Lock()
	if m.byUser[s] != nil {
		m.mx.Unlock()
		return s.Send(&proto.JoinRoomResponse{Result: proto.JoinAlreadyInOtherRoom})
	}
	r, ok := m.rooms[code]
	if !ok {
		m.mx.Unlock()
		m.logger.Debug().Str("username", s.Username()).Str("code", code).Msg("join attempt on unknown room")
		return s.Send(&proto.JoinRoomResponse{Result: proto.JoinRoomDoesNotExist})
	}
	if r.Started {
		m.mx.Unlock()
		return s.Send(&proto.JoinRoomResponse{Result: proto.JoinGameAlreadyStarted})
	}
	if len(r.Members) >= int(r.Settings.MaxPlayers) {
		m.mx.Unlock()
		return s.Send(&proto.JoinRoomResponse{Result: proto.JoinRoomFull})
	}
	if r.findMember(s.Username()) != nil {
		m.mx.Unlock()
		return s.Send(&proto.JoinRoomResponse{Result: proto.JoinUsernameAlreadyExist})
	}
	// a join request can still be queued when its socket drops and the
	// disconnect cleanup has already run; seating the dead session
	// would leave a permanent ghost member
	if s.Closed() {
		m.mx.Unlock()
		m.logger.Warn().Str("username", s.Username()).Str("code", code).Msg("join request from closed session dropped")
		return nil
	}

	existing := r.snapshotMembers()
	resp := &proto.JoinRoomResponse{
		Result:         proto.JoinSuccess,
		ConnectedUsers: r.memberNames(),
		Settings:       r.Settings,
		OwnerName:      r.Owner.Username(),
	}
	r.Members = append(r.Members, s)
	m.byUser[s] = r
	m.mx.Unlock()

	m.logger.Info().Str("username", s.Username()).Str("code", code).Msg("user joined room")
	if err := s.Send(resp); err != nil {
		return err
	}
	m.broadcast(existing, &proto.RoomListUpdatedNotification{
		Username:   s.Username(),
		UpdateType: proto.UserJoined,
	})
	return nil
}

// LeaveRoom removes s from its current room, if any. Remaining members
// are told the user left; if the owner left, one of them is promoted
// at random and announced. An empty room is deleted.
func (m *Manager) LeaveRoom(s *session.Session) error {
	m.mx.Lock()
	r := m.byUser[s]
	if r == nil {
		m.mx.Unlock()
		m.logger.Debug().Str("username", s.Username()).Msg("leave without a room")
		return nil
	}
	delete(m.byUser, s)
	r.removeMember(s)

	var newOwner *session.Session
	if len(r.Members) == 0 {
		delete(m.rooms, r.Code)
		m.logger.Info().Str("code", r.Code).Msg("room is empty, removing")
	} else if r.Owner == s {
		newOwner = r.Members[m.rng.Intn(len(r.Members))]
		r.Owner = newOwner
	}
	remaining := r.snapshotMembers()
	m.mx.Unlock()

	m.logger.Info().Str("username", s.Username()).Str("code", r.Code).Msg("user left room")
	m.broadcast(remaining, &proto.RoomListUpdatedNotification{
		Username:   s.Username(),
		UpdateType: proto.UserLeft,
	})
	if newOwner != nil {
		m.logger.Info().Str("code", r.Code).Str("owner", newOwner.Username()).Msg("new room owner")
		m.broadcast(remaining, &proto.NewRoomOwnerNotification{Owner: newOwner.Username()})
	}
	return nil
}

// KickUser throws the named member out of the owner's room. The kicked
// member learns about it through the same UserKicked broadcast as
// everyone else. Non-owners and unknown usernames are ignored.
func (m *Manager) KickUser(s *session.Session, username string) error {
	m.mx.Lock()
	r := m.byUser[s]
	if r == nil || r.Owner != s {
		m.mx.Unlock()
		m.logger.Warn().Str("username", s.Username()).Msg("non-owner tried to kick")
		return nil
	}
	kicked := r.findMember(username)
	if kicked == nil {
		m.mx.Unlock()
		m.logger.Warn().Str("username", username).Str("code", r.Code).Msg("tried kicking nonexistent user")
		return nil
	}
	members := r.snapshotMembers()
	delete(m.byUser, kicked)
	r.removeMember(kicked)
	m.mx.Unlock()

	m.logger.Info().Str("username", username).Str("code", r.Code).Msg("user kicked")
	m.broadcast(members, &proto.RoomListUpdatedNotification{
		Username:   username,
		UpdateType: proto.UserKicked,
	})
	return nil
}

// UpdateSettings replaces the room's settings and echoes them to every
// member, owner included. Ignored when s does not own a room.
func (m *Manager) UpdateSettings(s *session.Session, settings proto.RoomSettings) error {
	m.mx.Lock()
	r := m.byUser[s]
	if r == nil || r.Owner != s {
		m.mx.Unlock()
		m.logger.Warn().Str("username", s.Username()).Msg("non-owner tried to update room settings")
		return nil
	}
	r.Settings = settings
	members := r.snapshotMembers()
	m.mx.Unlock()

	m.logger.Info().Str("code", r.Code).Msg("room settings updated")
	m.broadcast(members, &proto.RoomSettingsChangeNotification{NewSettings: settings})
	return nil
}

// UnexpectedDisconnect cleans up after a session whose socket dropped
// without an explicit leave.
func (m *Manager) UnexpectedDisconnect(s *session.Session) {
	if err := m.LeaveRoom(s); err != nil {
		m.logger.Error().Err(err).Str("username", s.Username()).Msg("disconnect cleanup failed")
	}
}

// StartGame transitions the owner's room into the game phase: the room
// stops admitting joins, every member is asked for its balance, a
// fresh deck is shuffled and each member privately receives its hole
// cards inside the game-start message. The player left of the dealer
// acts first.
func (m *Manager) StartGame(s *session.Session) error {
	m.mx.Lock()
	r := m.byUser[s]
	if r == nil || r.Owner != s {
		m.mx.Unlock()
		m.logger.Warn().Str("username", s.Username()).Msg("non-owner tried to start the game")
		return nil
	}
	if r.Started {
		m.mx.Unlock()
		m.logger.Warn().Str("code", r.Code).Msg("game already started")
		return nil
	}
	if len(r.Members) < minPlayersToStart {
		m.mx.Unlock()
		m.logger.Warn().Str("code", r.Code).Msg("not enough players to start")
		return nil
	}
	r.Started = true
	r.table = game.NewTable(m.rng)
	members := r.snapshotMembers()
	dealer := r.Owner.Username()
	dealerIdx := 0
	for i, member := range members {
		if member == r.Owner {
			dealerIdx = i
			break
		}
	}
	smallBlind := r.Settings.SmallBlind
	hands := make(map[*session.Session][]proto.GameCard, len(members))
	for _, member := range members {
		c1, c2 := r.table.DealHole()
		hands[member] = []proto.GameCard{c1, c2}
	}
	m.mx.Unlock()

	m.logger.Info().Str("code", r.Code).Str("dealer", dealer).Msg("game starting")

	balances := m.queryBalances(members)
	players := make([]proto.GamePlayerMetadata, 0, len(members))
	for _, member := range members {
		players = append(players, proto.GamePlayerMetadata{
			Username: member.Username(),
			Balance:  balances[member],
		})
	}

	var wg sync.WaitGroup
	for _, member := range members {
		wg.Add(1)
		go func(member *session.Session) {
			defer wg.Done()
			err := member.Send(&proto.GameStartNotification{
				Dealer:  dealer,
				Hand:    hands[member],
				Players: players,
			})
			if err != nil {
				m.logger.Error().Err(err).Str("username", member.Username()).Msg("game start write failed")
			}
		}(member)
	}
	wg.Wait()

	// the player after the dealer opens the hand
	first := members[(dealerIdx+1)%len(members)]
	m.broadcast(members, &proto.PlayerTurnNotification{
		Username:      first.Username(),
		ValidActions:  []proto.PokerAction{proto.ActionFold, proto.ActionCheck, proto.ActionRaise},
		MinRaise:      smallBlind,
		CallAmount:    0,
		PlayerBalance: balances[first],
	})
	return nil
}

func (m *Manager) queryBalances(members []*session.Session) map[*session.Session]int32 {
	var (
		mx       sync.Mutex
		wg       sync.WaitGroup
		balances = make(map[*session.Session]int32, len(members))
	)
	responseID := (&proto.BalanceQueryResponse{}).ID()
	for _, member := range members {
		wg.Add(1)
		go func(member *session.Session) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), balanceQueryTimeout)
			defer cancel()
			resp, err := member.SendRequest(ctx, &proto.BalanceQueryRequest{}, responseID)
			var balance int32
			if err != nil {
				m.logger.Error().Err(err).Str("username", member.Username()).Msg("balance query failed")
			} else {
				balance = resp.(*proto.BalanceQueryResponse).Balance
			}
			mx.Lock()
			balances[member] = balance
			mx.Unlock()
		}(member)
	}
	wg.Wait()
	return balances
}

// broadcast writes msg to every member independently. One member's
// write failure never blocks delivery to the others.
func (m *Manager) broadcast(members []*session.Session, msg proto.Message) {
	var wg sync.WaitGroup
	for _, member := range members {
		wg.Add(1)
		go func(member *session.Session) {
			defer wg.Done()
			if err := member.Send(msg); err != nil {
				m.logger.Error().Err(err).Str("username", member.Username()).Msg("broadcast write failed")
			}
		}(member)
	}
	wg.Wait()
}

func (m *Manager) generateCode() string {
	for {
		code := make([]byte, codeLength)
		for i := range code {
			code[i] = byte('0' + m.rng.Intn(10))
		}
		if _, taken := m.rooms[string(code)]; !taken {
			return string(code)
		}
	}
}
