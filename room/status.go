package room

// Info is a read-only view of one room for the status API.
type Info struct {
	Code       string   `json:"code"`
	Owner      string   `json:"owner"`
	Players    []string `json:"players"`
	Started    bool     `json:"started"`
	MaxPlayers int32    `json:"max_players"`
}

// Rooms snapshots every live room.
func (m *Manager) Rooms() []Info {
	m.mx.Lock()
	defer m.mx.Unlock()
	infos := make([]Info, 0, len(m.rooms))
	for _, r := range m.rooms {
		infos = append(infos, Info{
			Code:       r.Code,
			Owner:      r.Owner.Username(),
			Players:    r.memberNames(),
			Started:    r.Started,
			MaxPlayers: r.Settings.MaxPlayers,
		})
	}
	return infos
}

// Count reports how many rooms are live.
func (m *Manager) Count() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return len(m.rooms)
}
