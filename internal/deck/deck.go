// Package deck implements the commit-shuffle-deal lifecycle for a single
// hand's deck, on top of the RNG core's secure shuffle and commit-reveal
// primitives.
package deck

import (
	"errors"
	"fmt"

	"github.com/vctt94/pokercore/internal/cards"
	"github.com/vctt94/pokercore/internal/rng"
)

// ErrHandStartFailed is returned when commit or shuffle cannot complete,
// meaning the hand must not start.
var ErrHandStartFailed = errors.New("hand_start_failed")

// Manager owns the deck for one in-progress hand: commitment, the
// shuffled-but-undealt remainder, and burn cards set aside during dealing.
type Manager struct {
	core *rng.Core

	tableID    string
	handID     string
	commitment rng.Commitment
	shuffled   []cards.Card
	drawn      int
	burned     []cards.Card
}

func NewManager(core *rng.Core) *Manager {
	return &Manager{core: core}
}

// StartHand commits to a freshly shuffled deck for handID on tableID. On
// rate-limit or entropy failure, the hand must not start and the caller
// should retry with backoff.
func (m *Manager) StartHand(tableID, handID string) (rng.Commitment, error) {
	deck := cards.NewDeck52()
	shuffled, _, err := m.core.Shuffle(tableID, deck)
	if err != nil {
		return rng.Commitment{}, fmt.Errorf("%w: shuffle: %v", ErrHandStartFailed, err)
	}
	commitment, err := m.core.Commit(tableID, handID, shuffled)
	if err != nil {
		return rng.Commitment{}, fmt.Errorf("%w: commit: %v", ErrHandStartFailed, err)
	}

	m.tableID = tableID
	m.handID = handID
	m.commitment = commitment
	m.shuffled = shuffled
	m.drawn = 0
	m.burned = nil
	return commitment, nil
}

func (m *Manager) draw() (cards.Card, error) {
	if m.drawn >= len(m.shuffled) {
		return cards.Card{}, fmt.Errorf("deck: exhausted")
	}
	c := m.shuffled[m.drawn]
	m.drawn++
	return c, nil
}

// Burn discards one card face-down before dealing the flop, turn, or river.
func (m *Manager) Burn() error {
	c, err := m.draw()
	if err != nil {
		return err
	}
	m.burned = append(m.burned, c)
	return nil
}

// DealHoleCards deals one card to each of the given seats, twice around,
// starting left of the button, with no burn card (hold'em convention).
func (m *Manager) DealHoleCards(seatsLeftOfButton []int) (map[int][]cards.Card, error) {
	hands := make(map[int][]cards.Card, len(seatsLeftOfButton))
	for round := 0; round < 2; round++ {
		for _, seat := range seatsLeftOfButton {
			c, err := m.draw()
			if err != nil {
				return nil, err
			}
			hands[seat] = append(hands[seat], c)
		}
	}
	return hands, nil
}

// DealFlop burns one card then deals three community cards.
func (m *Manager) DealFlop() ([]cards.Card, error) {
	if err := m.Burn(); err != nil {
		return nil, err
	}
	flop := make([]cards.Card, 0, 3)
	for i := 0; i < 3; i++ {
		c, err := m.draw()
		if err != nil {
			return nil, err
		}
		flop = append(flop, c)
	}
	return flop, nil
}

// DealOne burns one card then deals a single community card (turn or
// river).
func (m *Manager) DealOne() (cards.Card, error) {
	if err := m.Burn(); err != nil {
		return cards.Card{}, err
	}
	return m.draw()
}

// Reveal returns the reveal record for this hand's committed deck, for
// placement in the hand's audit record and verification by any observer.
func (m *Manager) Reveal() rng.Reveal {
	return rng.Reveal{Deck: m.shuffled, Nonce: m.commitment.Nonce}
}

// Verify checks the deck's reveal against its own commitment.
func (m *Manager) Verify() error {
	return rng.VerifyReveal(m.shuffled, m.commitment)
}

// Commitment returns the commitment published for the current hand.
func (m *Manager) Commitment() rng.Commitment {
	return m.commitment
}
