package proto

import (
	"fmt"

	"github.com/google/uuid"
)

// Registry maps type identifiers to message constructors so an
// arbitrary received frame can be decoded without out-of-band type
// info. It is built once at startup and read-only afterwards, which
// makes concurrent lookups from all connection goroutines safe
// without locking.
type Registry struct {
	types map[uuid.UUID]func() Message
}

func NewRegistry() *Registry {
	reg := &Registry{types: make(map[uuid.UUID]func() Message)}
	for _, ctor := range []func() Message{
		func() Message { return &CreateRoomRequest{} },
		func() Message { return &CreateRoomResponse{} },
		func() Message { return &JoinRoomRequest{} },
		func() Message { return &JoinRoomResponse{} },
		func() Message { return &LeaveRoomNotification{} },
		func() Message { return &KickUserNotification{} },
		func() Message { return &RoomSettingsChangeNotification{} },
		func() Message { return &RoomListUpdatedNotification{} },
		func() Message { return &NewRoomOwnerNotification{} },
		func() Message { return &OwnerStartGameNotification{} },
		func() Message { return &GameStartNotification{} },
		func() Message { return &BalanceQueryRequest{} },
		func() Message { return &BalanceQueryResponse{} },
		func() Message { return &DealCardsNotification{} },
		func() Message { return &PlayerActionNotification{} },
		func() Message { return &PlayerTurnNotification{} },
		func() Message { return &TableCardsNotification{} },
		func() Message { return &RoundStartNotification{} },
		func() Message { return &ShowdownNotification{} },
		func() Message { return &RoundEndNotification{} },
	} {
		reg.register(ctor)
	}
	return reg
}

func (reg *Registry) register(ctor func() Message) {
	id := ctor().ID()
	if _, ok := reg.types[id]; ok {
		panic(fmt.Sprintf("duplicate message id %s", id))
	}
	reg.types[id] = ctor
}

// Lookup resolves a type identifier to its message constructor.
func (reg *Registry) Lookup(id uuid.UUID) (func() Message, bool) {
	ctor, ok := reg.types[id]
	return ctor, ok
}

// Len reports how many variants are registered.
func (reg *Registry) Len() int {
	return len(reg.types)
}
