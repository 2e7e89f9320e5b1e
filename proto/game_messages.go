package proto

import "github.com/google/uuid"

var (
	idGameStartNotification    = uuid.MustParse("DA3E0163-9F44-49D2-AC31-84ED6206E8DF")
	idBalanceQueryRequest      = uuid.MustParse("68955238-CDCD-4124-8632-5AD534B8494A")
	idBalanceQueryResponse     = uuid.MustParse("ECCCFCFB-6CCF-422F-883F-4A62AE043905")
	idDealCardsNotification    = uuid.MustParse("6A5A5158-7F52-49BA-A574-2C9A0CED2F10")
	idPlayerActionNotification = uuid.MustParse("CC0B1A70-7302-48C0-B97B-3C05FE04A7C1")
	idPlayerTurnNotification   = uuid.MustParse("591454CB-1D0B-44BF-8E6C-56241D48168A")
	idTableCardsNotification   = uuid.MustParse("8B26A1EA-C9F5-4F63-B0E7-955A8EE13062")
	idRoundStartNotification   = uuid.MustParse("4859ADA3-F4B4-4E1D-962B-72C3046D5ECC")
	idShowdownNotification     = uuid.MustParse("29F7AE17-7C6D-4852-9E03-FFF3DC8977AC")
	idRoundEndNotification     = uuid.MustParse("E39884C9-964E-4274-876C-241231D6E097")
)

// Suit of a playing card.
type Suit byte

const (
	Diamonds Suit = iota
	Clubs
	Hearts
	Spades
)

// GameCard is one card of a traditional 52-card set. Value 1 is the
// ace, 11 jack, 12 queen, 13 king.
type GameCard struct {
	Value int32
	Suit  Suit
}

func (c *GameCard) Encode(w *Writer) {
	w.WriteInt32(c.Value)
	w.WriteUint8(byte(c.Suit))
}

func (c *GameCard) Decode(r *Reader) error {
	c.Value = r.ReadInt32()
	c.Suit = Suit(r.ReadUint8())
	return r.Err()
}

// GamePlayerMetadata describes one seated player at game start.
type GamePlayerMetadata struct {
	Username string
	Balance  int32
}

func (p *GamePlayerMetadata) Encode(w *Writer) {
	w.WriteString(p.Username)
	w.WriteInt32(p.Balance)
}

func (p *GamePlayerMetadata) Decode(r *Reader) error {
	p.Username = r.ReadString()
	p.Balance = r.ReadInt32()
	return r.Err()
}

// GameStartNotification tells a player that the game has started.
// Hand carries the recipient's private hole cards, so this message is
// written per member rather than broadcast verbatim. Server to client.
type GameStartNotification struct {
	Dealer  string
	Hand    []GameCard
	Players []GamePlayerMetadata
}

func (m *GameStartNotification) ID() uuid.UUID { return idGameStartNotification }

func (m *GameStartNotification) Encode(w *Writer) {
	w.WriteString(m.Dealer)
	w.WriteInt32(int32(len(m.Hand)))
	for i := range m.Hand {
		m.Hand[i].Encode(w)
	}
	w.WriteInt32(int32(len(m.Players)))
	for i := range m.Players {
		m.Players[i].Encode(w)
	}
}

func (m *GameStartNotification) Decode(r *Reader) error {
	m.Dealer = r.ReadString()
	handCount := r.ReadInt32()
	m.Hand = nil
	for i := int32(0); i < handCount && r.Err() == nil; i++ {
		var card GameCard
		if err := card.Decode(r); err != nil {
			return err
		}
		m.Hand = append(m.Hand, card)
	}
	playerCount := r.ReadInt32()
	m.Players = nil
	for i := int32(0); i < playerCount && r.Err() == nil; i++ {
		var player GamePlayerMetadata
		if err := player.Decode(r); err != nil {
			return err
		}
		m.Players = append(m.Players, player)
	}
	return r.Err()
}

// BalanceQueryRequest is sent by the server to ask a player how much
// money it has. Answered by BalanceQueryResponse.
type BalanceQueryRequest struct{}

func (m *BalanceQueryRequest) ID() uuid.UUID { return idBalanceQueryRequest }
func (m *BalanceQueryRequest) Encode(*Writer) {}
func (m *BalanceQueryRequest) Decode(r *Reader) error { return r.Err() }

// BalanceQueryResponse answers BalanceQueryRequest. Client to server.
type BalanceQueryResponse struct {
	Balance int32
}

func (m *BalanceQueryResponse) ID() uuid.UUID { return idBalanceQueryResponse }

func (m *BalanceQueryResponse) Encode(w *Writer) {
	w.WriteInt32(m.Balance)
}

func (m *BalanceQueryResponse) Decode(r *Reader) error {
	m.Balance = r.ReadInt32()
	return r.Err()
}

// DealCardsNotification privately delivers a player's two hole cards
// at the start of a hand. Server to client.
type DealCardsNotification struct {
	Card1 GameCard
	Card2 GameCard
}

func (m *DealCardsNotification) ID() uuid.UUID { return idDealCardsNotification }

func (m *DealCardsNotification) Encode(w *Writer) {
	m.Card1.Encode(w)
	m.Card2.Encode(w)
}

func (m *DealCardsNotification) Decode(r *Reader) error {
	if err := m.Card1.Decode(r); err != nil {
		return err
	}
	return m.Card2.Decode(r)
}

// PokerAction is a betting-round action.
type PokerAction byte

const (
	ActionFold PokerAction = iota
	ActionCheck
	ActionCall
	ActionRaise
	ActionAllIn
)

// PlayerActionNotification is broadcast after a player acts so clients
// can update pot and balances. Server to client.
type PlayerActionNotification struct {
	Username string
	Action   PokerAction
	// Amount added to the pot by this action, 0 for fold and check.
	Amount   int32
	TotalPot int32
	// RemainingBalance of the player who acted.
	RemainingBalance int32
}

func (m *PlayerActionNotification) ID() uuid.UUID { return idPlayerActionNotification }

func (m *PlayerActionNotification) Encode(w *Writer) {
	w.WriteString(m.Username)
	w.WriteUint8(byte(m.Action))
	w.WriteInt32(m.Amount)
	w.WriteInt32(m.TotalPot)
	w.WriteInt32(m.RemainingBalance)
}

func (m *PlayerActionNotification) Decode(r *Reader) error {
	m.Username = r.ReadString()
	m.Action = PokerAction(r.ReadUint8())
	m.Amount = r.ReadInt32()
	m.TotalPot = r.ReadInt32()
	m.RemainingBalance = r.ReadInt32()
	return r.Err()
}

// PlayerTurnNotification tells everyone whose turn it is. The acting
// player reads its valid actions from it, everyone else updates UI.
type PlayerTurnNotification struct {
	Username     string
	ValidActions []PokerAction
	MinRaise     int32
	CallAmount   int32
	PlayerBalance int32
}

func (m *PlayerTurnNotification) ID() uuid.UUID { return idPlayerTurnNotification }

func (m *PlayerTurnNotification) Encode(w *Writer) {
	w.WriteString(m.Username)
	w.WriteUint8(byte(len(m.ValidActions)))
	for _, action := range m.ValidActions {
		w.WriteUint8(byte(action))
	}
	w.WriteInt32(m.MinRaise)
	w.WriteInt32(m.CallAmount)
	w.WriteInt32(m.PlayerBalance)
}

func (m *PlayerTurnNotification) Decode(r *Reader) error {
	m.Username = r.ReadString()
	count := r.ReadUint8()
	m.ValidActions = nil
	for i := byte(0); i < count && r.Err() == nil; i++ {
		m.ValidActions = append(m.ValidActions, PokerAction(r.ReadUint8()))
	}
	m.MinRaise = r.ReadInt32()
	m.CallAmount = r.ReadInt32()
	m.PlayerBalance = r.ReadInt32()
	return r.Err()
}

// TableCardStage identifies which community cards are being revealed.
type TableCardStage byte

const (
	StageFlop TableCardStage = iota
	StageTurn
	StageRiver
)

// TableCardsNotification reveals community cards: three on the flop,
// one on the turn and river. Server to client.
type TableCardsNotification struct {
	Stage TableCardStage
	Cards []GameCard
}

func (m *TableCardsNotification) ID() uuid.UUID { return idTableCardsNotification }

func (m *TableCardsNotification) Encode(w *Writer) {
	w.WriteUint8(byte(m.Stage))
	w.WriteUint8(byte(len(m.Cards)))
	for i := range m.Cards {
		m.Cards[i].Encode(w)
	}
}

func (m *TableCardsNotification) Decode(r *Reader) error {
	m.Stage = TableCardStage(r.ReadUint8())
	count := r.ReadUint8()
	m.Cards = nil
	for i := byte(0); i < count && r.Err() == nil; i++ {
		var card GameCard
		if err := card.Decode(r); err != nil {
			return err
		}
		m.Cards = append(m.Cards, card)
	}
	return r.Err()
}

// RoundStartNotification is broadcast at the start of a hand: who
// deals, who posts the blinds, and everyone's starting balance.
// Server to client.
type RoundStartNotification struct {
	Dealer           string
	SmallBlindPlayer string
	BigBlindPlayer   string
	SmallBlindAmount int32
	BigBlindAmount   int32
	Balances         []GamePlayerMetadata
}

func (m *RoundStartNotification) ID() uuid.UUID { return idRoundStartNotification }

func (m *RoundStartNotification) Encode(w *Writer) {
	w.WriteString(m.Dealer)
	w.WriteString(m.SmallBlindPlayer)
	w.WriteString(m.BigBlindPlayer)
	w.WriteInt32(m.SmallBlindAmount)
	w.WriteInt32(m.BigBlindAmount)
	w.WriteInt32(int32(len(m.Balances)))
	for i := range m.Balances {
		m.Balances[i].Encode(w)
	}
}

func (m *RoundStartNotification) Decode(r *Reader) error {
	m.Dealer = r.ReadString()
	m.SmallBlindPlayer = r.ReadString()
	m.BigBlindPlayer = r.ReadString()
	m.SmallBlindAmount = r.ReadInt32()
	m.BigBlindAmount = r.ReadInt32()
	count := r.ReadInt32()
	m.Balances = nil
	for i := int32(0); i < count && r.Err() == nil; i++ {
		var balance GamePlayerMetadata
		if err := balance.Decode(r); err != nil {
			return err
		}
		m.Balances = append(m.Balances, balance)
	}
	return r.Err()
}

// ShowdownHand reveals one player's hole cards at showdown.
type ShowdownHand struct {
	Username string
	Card1    GameCard
	Card2    GameCard
}

func (h *ShowdownHand) Encode(w *Writer) {
	w.WriteString(h.Username)
	h.Card1.Encode(w)
	h.Card2.Encode(w)
}

func (h *ShowdownHand) Decode(r *Reader) error {
	h.Username = r.ReadString()
	if err := h.Card1.Decode(r); err != nil {
		return err
	}
	return h.Card2.Decode(r)
}

// ShowdownNotification is broadcast at showdown and reveals the hole
// cards of every player still in the hand. Server to client.
type ShowdownNotification struct {
	Hands []ShowdownHand
}

func (m *ShowdownNotification) ID() uuid.UUID { return idShowdownNotification }

func (m *ShowdownNotification) Encode(w *Writer) {
	w.WriteInt32(int32(len(m.Hands)))
	for i := range m.Hands {
		m.Hands[i].Encode(w)
	}
}

func (m *ShowdownNotification) Decode(r *Reader) error {
	count := r.ReadInt32()
	m.Hands = nil
	for i := int32(0); i < count && r.Err() == nil; i++ {
		var hand ShowdownHand
		if err := hand.Decode(r); err != nil {
			return err
		}
		m.Hands = append(m.Hands, hand)
	}
	return r.Err()
}

// RoundEndNotification is broadcast at the end of a hand: the
// winner(s), what they won with, and everyone's balance after the pot
// is paid out. Server to client.
type RoundEndNotification struct {
	Winners     []string
	PotWon      int32
	WinningHand string
	// Balances after pot distribution.
	UpdatedBalances []GamePlayerMetadata
}

func (m *RoundEndNotification) ID() uuid.UUID { return idRoundEndNotification }

func (m *RoundEndNotification) Encode(w *Writer) {
	w.WriteInt32(int32(len(m.Winners)))
	for _, winner := range m.Winners {
		w.WriteString(winner)
	}
	w.WriteInt32(m.PotWon)
	w.WriteString(m.WinningHand)
	w.WriteInt32(int32(len(m.UpdatedBalances)))
	for i := range m.UpdatedBalances {
		m.UpdatedBalances[i].Encode(w)
	}
}

func (m *RoundEndNotification) Decode(r *Reader) error {
	winnerCount := r.ReadInt32()
	m.Winners = nil
	for i := int32(0); i < winnerCount && r.Err() == nil; i++ {
		m.Winners = append(m.Winners, r.ReadString())
	}
	m.PotWon = r.ReadInt32()
	m.WinningHand = r.ReadString()
	balanceCount := r.ReadInt32()
	m.UpdatedBalances = nil
	for i := int32(0); i < balanceCount && r.Err() == nil; i++ {
		var balance GamePlayerMetadata
		if err := balance.Decode(r); err != nil {
			return err
		}
		m.UpdatedBalances = append(m.UpdatedBalances, balance)
	}
	return r.Err()
}
