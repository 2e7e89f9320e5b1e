package room

import (
	"github.com/instapoker/server/game"
	"github.com/instapoker/server/proto"
	"github.com/instapoker/server/session"
)

const codeLength = 6

// DefaultSettings returns the settings every new room starts with.
func DefaultSettings() proto.RoomSettings {
	return proto.RoomSettings{
		MaxPlayers:     8,
		MaxBet:         1000,
		SmallBlind:     10,
		IsAllInEnabled: true,
	}
}

// Room is one named lobby. The owner is always a current member, and a
// room with zero members is deleted immediately. All mutation happens
// under the Manager's lock.
type Room struct {
	Code     string
	Members  []*session.Session
	Owner    *session.Session
	Settings proto.RoomSettings
	Started  bool

	table *game.Table
}

func (r *Room) removeMember(s *session.Session) {
	for i, member := range r.Members {
		if member == s {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return
		}
	}
}

func (r *Room) findMember(username string) *session.Session {
	for _, member := range r.Members {
		if member.Username() == username {
			return member
		}
	}
	return nil
}

func (r *Room) memberNames() []string {
	names := make([]string, 0, len(r.Members))
	for _, member := range r.Members {
		names = append(names, member.Username())
	}
	return names
}

func (r *Room) snapshotMembers() []*session.Session {
	members := make([]*session.Session, len(r.Members))
	copy(members, r.Members)
	return members
}
