package cards

import (
	"fmt"

	chp "github.com/chehsunliu/poker"
)

// HandClass is the category of a poker hand, from weakest to strongest.
type HandClass int

const (
	HighCard HandClass = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (c HandClass) String() string {
	switch c {
	case HighCard:
		return "high_card"
	case Pair:
		return "pair"
	case TwoPair:
		return "two_pair"
	case ThreeOfAKind:
		return "three_of_a_kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full_house"
	case FourOfAKind:
		return "four_of_a_kind"
	case StraightFlush:
		return "straight_flush"
	case RoyalFlush:
		return "royal_flush"
	default:
		return "unknown"
	}
}

// HandValue is the complete evaluation of a 5-7 card hand: its class, a
// total-order comparison key, the best 5 cards, and a human description.
type HandValue struct {
	Class       HandClass
	OrderKey    int // higher is better, unlike the underlying library's raw rank
	BestHand    []Card
	Description string
}

// Compare returns a total order over hand values: positive if a beats b,
// negative if b beats a, zero on an exact tie (split pot).
func Compare(a, b HandValue) int {
	switch {
	case a.OrderKey > b.OrderKey:
		return 1
	case a.OrderKey < b.OrderKey:
		return -1
	default:
		return 0
	}
}

func toLibCard(c Card) (chp.Card, error) {
	var rankChar byte
	switch c.Rank {
	case Two:
		rankChar = '2'
	case Three:
		rankChar = '3'
	case Four:
		rankChar = '4'
	case Five:
		rankChar = '5'
	case Six:
		rankChar = '6'
	case Seven:
		rankChar = '7'
	case Eight:
		rankChar = '8'
	case Nine:
		rankChar = '9'
	case Ten:
		rankChar = 'T'
	case Jack:
		rankChar = 'J'
	case Queen:
		rankChar = 'Q'
	case King:
		rankChar = 'K'
	case Ace:
		rankChar = 'A'
	default:
		return chp.Card(0), fmt.Errorf("cards: invalid rank %q", c.Rank)
	}

	var suitChar byte
	switch c.Suit {
	case Spades:
		suitChar = 's'
	case Hearts:
		suitChar = 'h'
	case Diamonds:
		suitChar = 'd'
	case Clubs:
		suitChar = 'c'
	default:
		return chp.Card(0), fmt.Errorf("cards: invalid suit %q", c.Suit)
	}

	return chp.NewCard(string([]byte{rankChar, suitChar})), nil
}

func classFromRankClass(rankClass int32, isWheel, isRoyal bool) HandClass {
	switch rankClass {
	case 1:
		if isRoyal {
			return RoyalFlush
		}
		return StraightFlush
	case 2:
		return FourOfAKind
	case 3:
		return FullHouse
	case 4:
		return Flush
	case 5:
		return Straight
	case 6:
		return ThreeOfAKind
	case 7:
		return TwoPair
	case 8:
		return Pair
	default:
		return HighCard
	}
}

// Evaluate ranks the best 5-card hand out of 5-7 cards (hole cards plus
// community cards). Returns an error if any card is malformed.
func Evaluate(holeCards, communityCards []Card) (HandValue, error) {
	all := make([]Card, 0, len(holeCards)+len(communityCards))
	all = append(all, holeCards...)
	all = append(all, communityCards...)
	if len(all) < 5 {
		return HandValue{}, fmt.Errorf("cards: need at least 5 cards, got %d", len(all))
	}

	libCards := make([]chp.Card, 0, len(all))
	for _, c := range all {
		lc, err := toLibCard(c)
		if err != nil {
			return HandValue{}, err
		}
		libCards = append(libCards, lc)
	}

	rank := chp.Evaluate(libCards)
	rankClass := chp.RankClass(rank)
	desc := chp.RankString(rank)

	best, err := bestFive(all)
	if err != nil {
		return HandValue{}, err
	}

	isRoyal := rankClass == 1 && handIsRoyal(best)
	class := classFromRankClass(rankClass, false, isRoyal)

	// chehsunliu's raw rank is lower-is-better and ranges roughly 1..7462;
	// invert and offset so OrderKey is higher-is-better and strictly
	// comparable across the whole range.
	orderKey := (7463 - int(rank))

	return HandValue{
		Class:       class,
		OrderKey:    orderKey,
		BestHand:    best,
		Description: desc,
	}, nil
}

// Describe returns a human-readable description of a hand value (e.g.
// "two pair, kings and eights"), as carried through from the underlying
// evaluator's own rank string. Used by hand_completed broadcasts so
// clients don't have to re-derive a description from the raw class and
// best-hand cards.
func Describe(hv HandValue) string {
	if hv.Description != "" {
		return hv.Description
	}
	return hv.Class.String()
}

func handIsRoyal(best []Card) bool {
	if len(best) != 5 {
		return false
	}
	need := map[Rank]bool{Ten: true, Jack: true, Queen: true, King: true, Ace: true}
	for _, c := range best {
		if !need[c.Rank] {
			return false
		}
	}
	return true
}

// bestFive brute-forces the 5-card subset of `all` that matches the overall
// evaluated rank, since the underlying library only reports the rank value,
// not which cards produced it.
func bestFive(all []Card) ([]Card, error) {
	if len(all) == 5 {
		return all, nil
	}

	libAll := make([]chp.Card, len(all))
	for i, c := range all {
		lc, err := toLibCard(c)
		if err != nil {
			return nil, err
		}
		libAll[i] = lc
	}
	target := chp.Evaluate(libAll)

	var best []Card
	combinations(all, 5, func(combo []Card) bool {
		libCombo := make([]chp.Card, 5)
		for i, c := range combo {
			lc, _ := toLibCard(c)
			libCombo[i] = lc
		}
		if chp.Evaluate(libCombo) == target {
			best = append([]Card{}, combo...)
			return true
		}
		return false
	})
	if best == nil {
		return nil, fmt.Errorf("cards: no five-card subset matched evaluated rank")
	}
	return best, nil
}

// combinations calls visit with every k-combination of items, in order,
// stopping as soon as visit returns true.
func combinations(items []Card, k int, visit func([]Card) bool) {
	n := len(items)
	if k > n || k <= 0 {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := make([]Card, k)
		for i, v := range idx {
			combo[i] = items[v]
		}
		if visit(combo) {
			return
		}
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
