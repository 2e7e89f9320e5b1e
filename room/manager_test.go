package room

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/instapoker/server/proto"
	"github.com/instapoker/server/session"
)

var testRegistry = proto.NewRegistry()

// member is one fake connected player: the session the manager
// operates on, plus the remote end decoding everything written to it.
// Balance queries are answered inline so game starts can proceed.
type member struct {
	sess    *session.Session
	conn    net.Conn
	balance int32
	msgs    chan proto.Message
}

func newMember(t *testing.T, username string) *member {
	t.Helper()
	logger := zerolog.Nop()
	serverEnd, clientEnd := net.Pipe()
	m := &member{
		sess: session.New(session.Config{
			Conn:     serverEnd,
			Reader:   bufio.NewReader(serverEnd),
			Username: username,
			Registry: testRegistry,
			Logger:   &logger,
		}),
		conn:    clientEnd,
		balance: 1000,
		msgs:    make(chan proto.Message, 64),
	}
	go m.sess.Receive(context.Background())
	go func() {
		br := bufio.NewReader(clientEnd)
		for {
			msg, err := proto.ReadMessage(br, testRegistry)
			if err != nil {
				close(m.msgs)
				return
			}
			if _, ok := msg.(*proto.BalanceQueryRequest); ok {
				_ = proto.WriteMessage(clientEnd, &proto.BalanceQueryResponse{Balance: m.balance})
				continue
			}
			m.msgs <- msg
		}
	}()
	t.Cleanup(func() {
		_ = m.sess.Close()
		_ = clientEnd.Close()
	})
	return m
}

func (m *member) next(t *testing.T) proto.Message {
	t.Helper()
	select {
	case msg, ok := <-m.msgs:
		require.True(t, ok, "connection closed while waiting for message")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func (m *member) expectNothing(t *testing.T) {
	t.Helper()
	select {
	case msg := <-m.msgs:
		t.Fatalf("unexpected message: %T", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestManager() *Manager {
	logger := zerolog.Nop()
	return NewManager(Config{Logger: &logger})
}

// createRoom runs CreateRoom for m and returns the assigned code.
func createRoom(t *testing.T, mgr *Manager, m *member) string {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- mgr.CreateRoom(m.sess) }()
	resp := m.next(t)
	require.NoError(t, <-done)
	require.IsType(t, &proto.CreateRoomResponse{}, resp)
	return resp.(*proto.CreateRoomResponse).RoomCode
}

// joinRoom runs JoinRoom for m and returns its response.
func joinRoom(t *testing.T, mgr *Manager, m *member, code string) *proto.JoinRoomResponse {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- mgr.JoinRoom(m.sess, code) }()
	resp := m.next(t)
	require.NoError(t, <-done)
	require.IsType(t, &proto.JoinRoomResponse{}, resp)
	return resp.(*proto.JoinRoomResponse)
}

func TestCreateRoom(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")

	done := make(chan error, 1)
	go func() { done <- mgr.CreateRoom(alice.sess) }()

	resp := alice.next(t)
	require.NoError(t, <-done)
	created, ok := resp.(*proto.CreateRoomResponse)
	require.True(t, ok)
	assert.Len(t, created.RoomCode, 6)
	assert.Equal(t, DefaultSettings(), created.Settings)

	rooms := mgr.Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, created.RoomCode, rooms[0].Code)
	assert.Equal(t, "alice", rooms[0].Owner)
	assert.Equal(t, []string{"alice"}, rooms[0].Players)
}

func TestJoinRejectionMatrix(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	code := createRoom(t, mgr, alice)

	// cap the room at 2 players
	settings := DefaultSettings()
	settings.MaxPlayers = 2
	require.NoError(t, mgr.UpdateSettings(alice.sess, settings))
	alice.next(t) // settings echo

	t.Run("duplicate username", func(t *testing.T) {
		impostor := newMember(t, "alice")
		resp := joinRoom(t, mgr, impostor, code)
		assert.Equal(t, proto.JoinUsernameAlreadyExist, resp.Result)
	})

	t.Run("success then full", func(t *testing.T) {
		bob := newMember(t, "bob")
		resp := joinRoom(t, mgr, bob, code)
		require.Equal(t, proto.JoinSuccess, resp.Result)
		assert.Equal(t, []string{"alice"}, resp.ConnectedUsers)
		assert.Equal(t, "alice", resp.OwnerName)
		alice.next(t) // bob's join broadcast

		charlie := newMember(t, "charlie")
		resp = joinRoom(t, mgr, charlie, code)
		assert.Equal(t, proto.JoinRoomFull, resp.Result)
	})

	t.Run("nonexistent room", func(t *testing.T) {
		dave := newMember(t, "dave")
		resp := joinRoom(t, mgr, dave, "000000")
		assert.Equal(t, proto.JoinRoomDoesNotExist, resp.Result)
	})

	t.Run("already in another room", func(t *testing.T) {
		eve := newMember(t, "eve")
		otherCode := createRoom(t, mgr, eve)

		resp := joinRoom(t, mgr, eve, code)
		assert.Equal(t, proto.JoinAlreadyInOtherRoom, resp.Result)

		// neither room's membership changed
		for _, info := range mgr.Rooms() {
			switch info.Code {
			case otherCode:
				assert.Equal(t, []string{"eve"}, info.Players)
			case code:
				assert.NotContains(t, info.Players, "eve")
			}
		}
	})
}

func TestJoinOrdering(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	code := createRoom(t, mgr, alice)

	bob := newMember(t, "bob")
	resp := joinRoom(t, mgr, bob, code)
	require.Equal(t, proto.JoinSuccess, resp.Result)

	// existing member is told about bob
	notif := alice.next(t)
	require.IsType(t, &proto.RoomListUpdatedNotification{}, notif)
	update := notif.(*proto.RoomListUpdatedNotification)
	assert.Equal(t, "bob", update.Username)
	assert.Equal(t, proto.UserJoined, update.UpdateType)

	// bob never hears about himself
	bob.expectNothing(t)
}

func TestLeaveRoom(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	code := createRoom(t, mgr, alice)
	bob := newMember(t, "bob")
	require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, bob, code).Result)
	alice.next(t)

	require.NoError(t, mgr.LeaveRoom(bob.sess))

	notif := alice.next(t)
	require.IsType(t, &proto.RoomListUpdatedNotification{}, notif)
	update := notif.(*proto.RoomListUpdatedNotification)
	assert.Equal(t, "bob", update.Username)
	assert.Equal(t, proto.UserLeft, update.UpdateType)

	require.Len(t, mgr.Rooms(), 1)
	assert.Equal(t, []string{"alice"}, mgr.Rooms()[0].Players)

	// last member leaving deletes the room
	require.NoError(t, mgr.LeaveRoom(alice.sess))
	assert.Empty(t, mgr.Rooms())

	// leaving with no room is a no-op
	require.NoError(t, mgr.LeaveRoom(alice.sess))
}

func TestOwnershipFailover(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	code := createRoom(t, mgr, alice)
	bob := newMember(t, "bob")
	charlie := newMember(t, "charlie")
	require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, bob, code).Result)
	alice.next(t)
	require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, charlie, code).Result)
	alice.next(t)
	bob.next(t)

	require.NoError(t, mgr.LeaveRoom(alice.sess))

	var owners []string
	for _, m := range []*member{bob, charlie} {
		left := m.next(t)
		require.IsType(t, &proto.RoomListUpdatedNotification{}, left)
		assert.Equal(t, proto.UserLeft, left.(*proto.RoomListUpdatedNotification).UpdateType)

		promoted := m.next(t)
		require.IsType(t, &proto.NewRoomOwnerNotification{}, promoted)
		owners = append(owners, promoted.(*proto.NewRoomOwnerNotification).Owner)
	}
	// both remaining members see the same new owner, and it is one of them
	assert.Equal(t, owners[0], owners[1])
	assert.Contains(t, []string{"bob", "charlie"}, owners[0])

	require.Len(t, mgr.Rooms(), 1)
	assert.Equal(t, owners[0], mgr.Rooms()[0].Owner)
	// the departed owner may not receive anything
	alice.expectNothing(t)
}

func TestKickVisibility(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	code := createRoom(t, mgr, alice)
	bob := newMember(t, "bob")
	charlie := newMember(t, "charlie")
	require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, bob, code).Result)
	alice.next(t)
	require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, charlie, code).Result)
	alice.next(t)
	bob.next(t)

	require.NoError(t, mgr.KickUser(alice.sess, "bob"))

	// everyone, the kicked member included, gets the same notification
	for _, m := range []*member{alice, bob, charlie} {
		notif := m.next(t)
		require.IsType(t, &proto.RoomListUpdatedNotification{}, notif)
		update := notif.(*proto.RoomListUpdatedNotification)
		assert.Equal(t, "bob", update.Username)
		assert.Equal(t, proto.UserKicked, update.UpdateType)
	}
	require.Len(t, mgr.Rooms(), 1)
	assert.NotContains(t, mgr.Rooms()[0].Players, "bob")

	// kicked member is free to join again
	assert.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, bob, code).Result)
}

func TestKickIgnoredForNonOwner(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	code := createRoom(t, mgr, alice)
	bob := newMember(t, "bob")
	require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, bob, code).Result)
	alice.next(t)

	require.NoError(t, mgr.KickUser(bob.sess, "alice"))
	require.NoError(t, mgr.KickUser(alice.sess, "nobody"))

	alice.expectNothing(t)
	bob.expectNothing(t)
	assert.Len(t, mgr.Rooms()[0].Players, 2)
}

func TestUpdateSettings(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	code := createRoom(t, mgr, alice)
	bob := newMember(t, "bob")
	require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, bob, code).Result)
	alice.next(t)

	settings := proto.RoomSettings{MaxPlayers: 3, MaxBet: 50, SmallBlind: 5}
	require.NoError(t, mgr.UpdateSettings(alice.sess, settings))

	// every member, owner included, receives the new settings
	for _, m := range []*member{alice, bob} {
		notif := m.next(t)
		require.IsType(t, &proto.RoomSettingsChangeNotification{}, notif)
		assert.Equal(t, settings, notif.(*proto.RoomSettingsChangeNotification).NewSettings)
	}

	// non-owner updates are dropped
	require.NoError(t, mgr.UpdateSettings(bob.sess, DefaultSettings()))
	alice.expectNothing(t)
	bob.expectNothing(t)
	assert.EqualValues(t, 3, mgr.Rooms()[0].MaxPlayers)
}

func TestRoomCodeUniqueness(t *testing.T) {
	const n = 1000
	mgr := newTestManager()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		m := newMember(t, fmt.Sprintf("user-%d", i))
		wg.Add(1)
		go func(m *member) {
			defer wg.Done()
			_ = mgr.CreateRoom(m.sess)
		}(m)
	}
	wg.Wait()

	rooms := mgr.Rooms()
	require.Len(t, rooms, n)
	codes := make(map[string]struct{}, n)
	for _, info := range rooms {
		codes[info.Code] = struct{}{}
	}
	assert.Len(t, codes, n, "room codes must be unique among live rooms")
}

func TestBroadcastIsolation(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	code := createRoom(t, mgr, alice)

	others := make([]*member, 0, 4)
	for _, name := range []string{"bob", "charlie", "dave", "eve"} {
		m := newMember(t, name)
		require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, m, code).Result)
		for _, existing := range append([]*member{alice}, others...) {
			existing.next(t) // join broadcast
		}
		others = append(others, m)
	}

	// one member's socket dies before the broadcast
	require.NoError(t, others[1].sess.Close())

	settings := DefaultSettings()
	settings.MaxBet = 9000
	require.NoError(t, mgr.UpdateSettings(alice.sess, settings))

	for _, m := range []*member{alice, others[0], others[2], others[3]} {
		notif := m.next(t)
		require.IsType(t, &proto.RoomSettingsChangeNotification{}, notif)
		assert.EqualValues(t, 9000, notif.(*proto.RoomSettingsChangeNotification).NewSettings.MaxBet)
	}
}

func TestUnexpectedDisconnect(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	code := createRoom(t, mgr, alice)
	bob := newMember(t, "bob")
	require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, bob, code).Result)
	alice.next(t)

	mgr.UnexpectedDisconnect(bob.sess)

	notif := alice.next(t)
	require.IsType(t, &proto.RoomListUpdatedNotification{}, notif)
	assert.Equal(t, proto.UserLeft, notif.(*proto.RoomListUpdatedNotification).UpdateType)
	assert.Equal(t, []string{"alice"}, mgr.Rooms()[0].Players)
}

func TestStartGame(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	alice.balance = 1200
	code := createRoom(t, mgr, alice)
	bob := newMember(t, "bob")
	bob.balance = 800
	require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, bob, code).Result)
	alice.next(t)

	require.NoError(t, mgr.StartGame(alice.sess))

	hands := make(map[string][]proto.GameCard)
	for _, m := range []*member{alice, bob} {
		start := m.next(t)
		require.IsType(t, &proto.GameStartNotification{}, start)
		gs := start.(*proto.GameStartNotification)
		assert.Equal(t, "alice", gs.Dealer)
		require.Len(t, gs.Hand, 2)
		hands[m.sess.Username()] = gs.Hand
		assert.ElementsMatch(t, []proto.GamePlayerMetadata{
			{Username: "alice", Balance: 1200},
			{Username: "bob", Balance: 800},
		}, gs.Players)

		turn := m.next(t)
		require.IsType(t, &proto.PlayerTurnNotification{}, turn)
		assert.Equal(t, "bob", turn.(*proto.PlayerTurnNotification).Username)
	}
	// hole cards are private and distinct
	for _, card := range hands["alice"] {
		assert.NotContains(t, hands["bob"], card)
	}

	require.Len(t, mgr.Rooms(), 1)
	assert.True(t, mgr.Rooms()[0].Started)

	// a started room admits no one
	charlie := newMember(t, "charlie")
	assert.Equal(t, proto.JoinGameAlreadyStarted, joinRoom(t, mgr, charlie, code).Result)

	// and cannot be started twice
	require.NoError(t, mgr.StartGame(alice.sess))
	alice.expectNothing(t)
}

func TestRequestsFromClosedSessionIgnored(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	code := createRoom(t, mgr, alice)

	// a queued join can be dispatched after its socket already dropped
	// and disconnect cleanup ran; it must not seat a dead member
	bob := newMember(t, "bob")
	require.NoError(t, bob.sess.Close())
	require.NoError(t, mgr.JoinRoom(bob.sess, code))

	alice.expectNothing(t)
	require.Len(t, mgr.Rooms(), 1)
	assert.Equal(t, []string{"alice"}, mgr.Rooms()[0].Players)

	// same for a queued create: no room with an unreachable owner
	require.NoError(t, mgr.CreateRoom(bob.sess))
	assert.Len(t, mgr.Rooms(), 1)
}

func TestFirstActorFollowsDealer(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	code := createRoom(t, mgr, alice)
	bob := newMember(t, "bob")
	charlie := newMember(t, "charlie")
	require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, bob, code).Result)
	alice.next(t)
	require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, charlie, code).Result)
	alice.next(t)
	bob.next(t)

	// failover can promote either remaining member, so the dealer is
	// not necessarily the first in seating order
	require.NoError(t, mgr.LeaveRoom(alice.sess))
	byName := make(map[string]*member)
	var dealer string
	for _, m := range []*member{bob, charlie} {
		byName[m.sess.Username()] = m
		m.next(t) // alice left
		promoted := m.next(t)
		require.IsType(t, &proto.NewRoomOwnerNotification{}, promoted)
		dealer = promoted.(*proto.NewRoomOwnerNotification).Owner
	}

	require.NoError(t, mgr.StartGame(byName[dealer].sess))

	for _, m := range []*member{bob, charlie} {
		start := m.next(t)
		require.IsType(t, &proto.GameStartNotification{}, start)
		assert.Equal(t, dealer, start.(*proto.GameStartNotification).Dealer)

		turn := m.next(t)
		require.IsType(t, &proto.PlayerTurnNotification{}, turn)
		first := turn.(*proto.PlayerTurnNotification).Username
		assert.NotEqual(t, dealer, first, "the player after the dealer opens, never the dealer")
		assert.Contains(t, byName, first)
	}
}

func TestStartGameRequiresOwnerAndPlayers(t *testing.T) {
	mgr := newTestManager()
	alice := newMember(t, "alice")
	code := createRoom(t, mgr, alice)

	// alone in the room
	require.NoError(t, mgr.StartGame(alice.sess))
	alice.expectNothing(t)

	bob := newMember(t, "bob")
	require.Equal(t, proto.JoinSuccess, joinRoom(t, mgr, bob, code).Result)
	alice.next(t)

	// non-owner
	require.NoError(t, mgr.StartGame(bob.sess))
	alice.expectNothing(t)
	bob.expectNothing(t)
}
