package proto

import "github.com/google/uuid"

// RoomSettings holds the game settings of a single room. It is nested
// inside several messages and serialized inline.
type RoomSettings struct {
	// MaxPlayers is the maximum amount of players the room admits.
	MaxPlayers int32
	// MaxBet is the maximum amount a single bet is allowed to have.
	MaxBet int32
	// SmallBlind is the amount the first player is required to bet.
	SmallBlind int32
	// IsAllInEnabled allows players to bet their entire balance at once.
	IsAllInEnabled bool
}

func (s *RoomSettings) Encode(w *Writer) {
	w.WriteInt32(s.MaxPlayers)
	w.WriteInt32(s.MaxBet)
	w.WriteInt32(s.SmallBlind)
	w.WriteBool(s.IsAllInEnabled)
}

func (s *RoomSettings) Decode(r *Reader) error {
	s.MaxPlayers = r.ReadInt32()
	s.MaxBet = r.ReadInt32()
	s.SmallBlind = r.ReadInt32()
	s.IsAllInEnabled = r.ReadBool()
	return r.Err()
}

var (
	idCreateRoomRequest         = uuid.MustParse("22FF01FE-3989-474C-95F9-30192DC547C4")
	idCreateRoomResponse        = uuid.MustParse("B8431911-CF5F-43E1-846D-78B5053E4D48")
	idJoinRoomRequest           = uuid.MustParse("1FF25BDF-E863-4708-9F43-87EC3948C4BE")
	idJoinRoomResponse          = uuid.MustParse("02E08670-47CE-4E20-97FC-8F10D101CFC5")
	idLeaveRoomNotification     = uuid.MustParse("9191A282-0F42-4E52-90F5-25E219DCD81F")
	idKickUserNotification      = uuid.MustParse("2E86F234-ABAE-4FB8-8AC3-9A373F73F258")
	idRoomSettingsChange        = uuid.MustParse("55E044F9-7AC4-425F-8A02-11B2BFE54169")
	idRoomListUpdated           = uuid.MustParse("32A9C853-EE23-4C0A-83C4-030C3F452F1F")
	idNewRoomOwnerNotification  = uuid.MustParse("9ACF2F3B-4AA8-4D09-993B-84E3A2B0331B")
	idOwnerStartGame            = uuid.MustParse("5FC07C99-CC8A-44B0-8E5A-C25898C82EE6")
)

// CreateRoomRequest asks the server to create a new room with the
// requester as owner. Client to server, answered by CreateRoomResponse.
type CreateRoomRequest struct{}

func (m *CreateRoomRequest) ID() uuid.UUID { return idCreateRoomRequest }
func (m *CreateRoomRequest) Encode(*Writer) {}
func (m *CreateRoomRequest) Decode(r *Reader) error { return r.Err() }

// CreateRoomResponse carries the join code and initial settings of a
// freshly created room. Server to client.
type CreateRoomResponse struct {
	RoomCode string
	Settings RoomSettings
}

func (m *CreateRoomResponse) ID() uuid.UUID { return idCreateRoomResponse }

func (m *CreateRoomResponse) Encode(w *Writer) {
	w.WriteString(m.RoomCode)
	m.Settings.Encode(w)
}

func (m *CreateRoomResponse) Decode(r *Reader) error {
	m.RoomCode = r.ReadString()
	return m.Settings.Decode(r)
}

// JoinRoomRequest asks to join the room with the given code.
// Client to server, answered by JoinRoomResponse.
type JoinRoomRequest struct {
	RoomCode string
}

func (m *JoinRoomRequest) ID() uuid.UUID { return idJoinRoomRequest }

func (m *JoinRoomRequest) Encode(w *Writer) {
	w.WriteString(m.RoomCode)
}

func (m *JoinRoomRequest) Decode(r *Reader) error {
	m.RoomCode = r.ReadString()
	return r.Err()
}

// JoinRoomResult is the outcome of a join attempt.
type JoinRoomResult int32

const (
	JoinSuccess JoinRoomResult = iota
	JoinRoomDoesNotExist
	JoinRoomFull
	JoinUsernameAlreadyExist
	JoinAlreadyInOtherRoom
	JoinGameAlreadyStarted
)

// JoinRoomResponse answers a JoinRoomRequest. On success it lists the
// usernames already in the room (excluding the joiner), the current
// settings and the owner's name. Server to client.
type JoinRoomResponse struct {
	Result         JoinRoomResult
	ConnectedUsers []string
	Settings       RoomSettings
	OwnerName      string
}

func (m *JoinRoomResponse) ID() uuid.UUID { return idJoinRoomResponse }

func (m *JoinRoomResponse) Encode(w *Writer) {
	w.WriteInt32(int32(m.Result))
	w.WriteInt32(int32(len(m.ConnectedUsers)))
	for _, user := range m.ConnectedUsers {
		w.WriteString(user)
	}
	m.Settings.Encode(w)
	w.WriteString(m.OwnerName)
}

func (m *JoinRoomResponse) Decode(r *Reader) error {
	m.Result = JoinRoomResult(r.ReadInt32())
	count := r.ReadInt32()
	m.ConnectedUsers = nil
	for i := int32(0); i < count && r.Err() == nil; i++ {
		m.ConnectedUsers = append(m.ConnectedUsers, r.ReadString())
	}
	if err := m.Settings.Decode(r); err != nil {
		return err
	}
	m.OwnerName = r.ReadString()
	return r.Err()
}

// LeaveRoomNotification tells the server the user is leaving its
// current room. Client to server, no reply.
type LeaveRoomNotification struct{}

func (m *LeaveRoomNotification) ID() uuid.UUID { return idLeaveRoomNotification }
func (m *LeaveRoomNotification) Encode(*Writer) {}
func (m *LeaveRoomNotification) Decode(r *Reader) error { return r.Err() }

// KickUserNotification asks the server to kick a member out of the
// sender's room. Only honored when the sender owns the room.
type KickUserNotification struct {
	Username string
}

func (m *KickUserNotification) ID() uuid.UUID { return idKickUserNotification }

func (m *KickUserNotification) Encode(w *Writer) {
	w.WriteString(m.Username)
}

func (m *KickUserNotification) Decode(r *Reader) error {
	m.Username = r.ReadString()
	return r.Err()
}

// RoomSettingsChangeNotification replaces a room's settings. Sent by
// the owner to the server, and echoed by the server to every member
// (owner included) once applied.
type RoomSettingsChangeNotification struct {
	NewSettings RoomSettings
}

func (m *RoomSettingsChangeNotification) ID() uuid.UUID { return idRoomSettingsChange }

func (m *RoomSettingsChangeNotification) Encode(w *Writer) {
	m.NewSettings.Encode(w)
}

func (m *RoomSettingsChangeNotification) Decode(r *Reader) error {
	return m.NewSettings.Decode(r)
}

// RoomListUpdateType says what happened to the named user.
type RoomListUpdateType int32

const (
	UserLeft RoomListUpdateType = iota
	UserKicked
	UserJoined
)

// RoomListUpdatedNotification tells room members that the user list
// changed. Server to client.
type RoomListUpdatedNotification struct {
	Username   string
	UpdateType RoomListUpdateType
}

func (m *RoomListUpdatedNotification) ID() uuid.UUID { return idRoomListUpdated }

func (m *RoomListUpdatedNotification) Encode(w *Writer) {
	w.WriteString(m.Username)
	w.WriteInt32(int32(m.UpdateType))
}

func (m *RoomListUpdatedNotification) Decode(r *Reader) error {
	m.Username = r.ReadString()
	m.UpdateType = RoomListUpdateType(r.ReadInt32())
	return r.Err()
}

// NewRoomOwnerNotification announces the room's new owner after the
// previous owner left. Server to client.
type NewRoomOwnerNotification struct {
	Owner string
}

func (m *NewRoomOwnerNotification) ID() uuid.UUID { return idNewRoomOwnerNotification }

func (m *NewRoomOwnerNotification) Encode(w *Writer) {
	w.WriteString(m.Owner)
}

func (m *NewRoomOwnerNotification) Decode(r *Reader) error {
	m.Owner = r.ReadString()
	return r.Err()
}

// OwnerStartGameNotification is sent by the room owner to start the
// game for everyone in the room. Client to server.
type OwnerStartGameNotification struct{}

func (m *OwnerStartGameNotification) ID() uuid.UUID { return idOwnerStartGame }
func (m *OwnerStartGameNotification) Encode(*Writer) {}
func (m *OwnerStartGameNotification) Decode(r *Reader) error { return r.Err() }
