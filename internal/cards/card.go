// Package cards defines the playing-card model shared by the deck manager,
// betting engine, and hand evaluator.
package cards

import "fmt"

// Suit identifies one of the four card suits.
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

var allSuits = [4]Suit{Hearts, Diamonds, Clubs, Spades}

// Rank identifies a card's face value. Two is the lowest, Ace the highest
// (wheel straights are handled specially by the evaluator).
type Rank string

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

var allRanks = [13]Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

// order returns the numeric value of a rank, Two=2 .. Ace=14.
func (r Rank) order() int {
	for i, rk := range allRanks {
		if rk == r {
			return i + 2
		}
	}
	return 0
}

// Card is a single playing card.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, suitGlyph(c.Suit))
}

func suitGlyph(s Suit) string {
	switch s {
	case Hearts:
		return "h"
	case Diamonds:
		return "d"
	case Clubs:
		return "c"
	case Spades:
		return "s"
	default:
		return "?"
	}
}

// RankOrder exposes the numeric ordering of a card's rank (2..14).
func (c Card) RankOrder() int { return c.Rank.order() }

// NewDeck52 returns the 52 cards of a standard deck, in canonical order
// (suit-major, rank-minor) so repeated calls are byte-identical — the input
// to deck commitment hashing.
func NewDeck52() []Card {
	deck := make([]Card, 0, 52)
	for _, s := range allSuits {
		for _, r := range allRanks {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Canonical serializes a deck into a deterministic byte form suitable for
// hashing in the commit-reveal protocol. The format is simply each card's
// String() representation joined by "|", which is stable across process
// restarts and platforms.
func Canonical(deck []Card) []byte {
	buf := make([]byte, 0, len(deck)*4)
	for i, c := range deck {
		if i > 0 {
			buf = append(buf, '|')
		}
		buf = append(buf, []byte(c.String())...)
	}
	return buf
}
