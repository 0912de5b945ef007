// Package rng implements the cryptographically secure random number core
// used for deck shuffling and commit-reveal proofs, with per-table rate
// limiting and audit buffering.
package rng

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/vctt94/pokercore/internal/cards"
)

// ErrRateLimited is returned when a table exceeds its configured
// operations-per-minute budget.
var ErrRateLimited = errors.New("rate_limited")

const ShuffleAlgorithm = "fisher-yates-crypto"

// ShuffleProof records how a shuffle was produced, for audit and dispute
// resolution.
type ShuffleProof struct {
	Algorithm    string
	EntropyBytes int
	InputHash    [32]byte
	OutputHash   [32]byte
}

// Commitment is the hash published to players before a hand's cards are
// dealt: H = SHA-256(nonce || canonical(deck)).
type Commitment struct {
	TableID   string
	HandID    string
	Nonce     []byte
	Hash      [32]byte
	Timestamp time.Time
}

// Reveal is the post-hand disclosure of the committed deck and nonce,
// allowing any observer to recompute the commitment hash.
type Reveal struct {
	Deck  []cards.Card
	Nonce []byte
}

// AuditRecord is a single entropy-consuming operation logged for later
// review. Records are immutable once created.
type AuditRecord struct {
	Op           string
	TableID      string
	HandID       string
	Timestamp    time.Time
	EntropyBytes int
	InputHash    string
	OutputHash   string
	Metadata     map[string]string
}

// SecurityAlert is emitted by the periodic heuristic scan when a table's
// recent operations look anomalous.
type SecurityAlert struct {
	TableID   string
	Severity  string // "info", "warning", "critical"
	Reason    string
	Timestamp time.Time
}

// Sink receives buffered audit records and security alerts. The sqlite
// backed implementation lives in internal/audit; rng.Core only depends on
// this narrow interface so it stays a pure in-memory component.
type Sink interface {
	AppendBatch(tableID string, records []AuditRecord) error
	AppendAlert(alert SecurityAlert) error
}

// Config controls the RNG core's rate limiting and audit buffering
// behavior.
type Config struct {
	// OpsPerMinute is the maximum number of rate-limited operations (shuffle,
	// commit) a single table may perform per rolling minute.
	OpsPerMinute int
	// AuditBatchSize flushes a table's pending audit buffer once it reaches
	// this many records.
	AuditBatchSize int
	// AuditFlushInterval flushes a table's pending audit buffer on a timer
	// even if the batch size hasn't been reached.
	AuditFlushInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.OpsPerMinute <= 0 {
		c.OpsPerMinute = 1000
	}
	if c.AuditBatchSize <= 0 {
		c.AuditBatchSize = 50
	}
	if c.AuditFlushInterval <= 0 {
		c.AuditFlushInterval = 10 * time.Second
	}
	return c
}

type tableState struct {
	mu           sync.Mutex
	opTimes      []time.Time
	opCounter    uint64
	lastRefresh  time.Time
	pending      []AuditRecord
	lastFlush    time.Time
	recentOps    []string // op kinds, most recent last, bounded window for heuristics
	recentBytes  []int    // entropy bytes per op, same window
}

// Core is the process-wide RNG service. It owns no game state; per-table
// bookkeeping is limited to rate limiting and audit buffering, and is safe
// to call from any actor.
type Core struct {
	cfg    Config
	log    slog.Logger
	sink   Sink
	mu     sync.Mutex
	tables map[string]*tableState
}

func New(cfg Config, sink Sink, log slog.Logger) *Core {
	return &Core{
		cfg:    cfg.withDefaults(),
		log:    log,
		sink:   sink,
		tables: make(map[string]*tableState),
	}
}

func (c *Core) table(tableID string) *tableState {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.tables[tableID]
	if !ok {
		ts = &tableState{lastRefresh: time.Now()}
		c.tables[tableID] = ts
	}
	return ts
}

// checkRateLimit records an operation attempt for tableID and returns
// ErrRateLimited if the table has exceeded its per-minute budget.
func (c *Core) checkRateLimit(ts *tableState) error {
	now := time.Now()
	cutoff := now.Add(-time.Minute)
	kept := ts.opTimes[:0]
	for _, t := range ts.opTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	ts.opTimes = kept
	if len(ts.opTimes) >= c.cfg.OpsPerMinute {
		return ErrRateLimited
	}
	ts.opTimes = append(ts.opTimes, now)
	ts.opCounter++
	return nil
}

// RandomBytes returns n cryptographically uniform random bytes.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("rng: read entropy: %w", err)
	}
	return buf, nil
}

// RandomInt returns a uniform random integer in [min, max] using rejection
// sampling so no value is biased by a modulo operation.
func RandomInt(min, max int) (int, error) {
	if max < min {
		return 0, fmt.Errorf("rng: invalid range [%d,%d]", min, max)
	}
	span := int64(max-min) + 1
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, fmt.Errorf("rng: rejection sample: %w", err)
	}
	return min + int(n.Int64()), nil
}

// Shuffle performs a Fisher-Yates shuffle of deck using crypto-uniform
// randomness, returning the shuffled copy and a proof record. It is
// rate-limited per table.
func (c *Core) Shuffle(tableID string, deck []cards.Card) ([]cards.Card, ShuffleProof, error) {
	ts := c.table(tableID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := c.checkRateLimit(ts); err != nil {
		return nil, ShuffleProof{}, err
	}

	inputHash := sha256.Sum256(cards.Canonical(deck))

	shuffled := make([]cards.Card, len(deck))
	copy(shuffled, deck)

	entropyBytes := 0
	for i := len(shuffled) - 1; i > 0; i-- {
		j, err := RandomInt(0, i)
		if err != nil {
			return nil, ShuffleProof{}, err
		}
		// RandomInt consumes one rejection-sampled draw; account for the
		// bytes actually read by big.Int's internal sampler conservatively
		// as 8 bytes per draw for audit purposes.
		entropyBytes += 8
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	outputHash := sha256.Sum256(cards.Canonical(shuffled))
	proof := ShuffleProof{
		Algorithm:    ShuffleAlgorithm,
		EntropyBytes: entropyBytes,
		InputHash:    inputHash,
		OutputHash:   outputHash,
	}

	c.bufferAudit(ts, tableID, AuditRecord{
		Op:           "shuffle",
		TableID:      tableID,
		Timestamp:    time.Now(),
		EntropyBytes: entropyBytes,
		InputHash:    fmt.Sprintf("%x", inputHash),
		OutputHash:   fmt.Sprintf("%x", outputHash),
	})

	return shuffled, proof, nil
}

// Commit produces a commitment to a (shuffled) deck: a SHA-256 hash of a
// fresh 32+ byte nonce concatenated with the deck's canonical serialization.
// The deck itself is never revealed until Reveal is called at showdown.
func (c *Core) Commit(tableID, handID string, deck []cards.Card) (Commitment, error) {
	ts := c.table(tableID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := c.checkRateLimit(ts); err != nil {
		return Commitment{}, err
	}

	nonce, err := RandomBytes(32)
	if err != nil {
		return Commitment{}, err
	}

	h := sha256.New()
	h.Write(nonce)
	h.Write(cards.Canonical(deck))
	var sum [32]byte
	copy(sum[:], h.Sum(nil))

	commitment := Commitment{
		TableID:   tableID,
		HandID:    handID,
		Nonce:     nonce,
		Hash:      sum,
		Timestamp: time.Now(),
	}

	c.bufferAudit(ts, tableID, AuditRecord{
		Op:           "commit",
		TableID:      tableID,
		HandID:       handID,
		Timestamp:    commitment.Timestamp,
		EntropyBytes: len(nonce),
		OutputHash:   fmt.Sprintf("%x", sum),
	})

	return commitment, nil
}

// VerifyReveal checks that a previously committed deck matches the
// commitment hash and that the revealed deck is a valid permutation of a
// standard 52-card deck.
func VerifyReveal(shuffled []cards.Card, commitment Commitment) error {
	h := sha256.New()
	h.Write(commitment.Nonce)
	h.Write(cards.Canonical(shuffled))
	var sum [32]byte
	copy(sum[:], h.Sum(nil))

	if sum != commitment.Hash {
		return fmt.Errorf("rng: reveal hash mismatch for table %s hand %s", commitment.TableID, commitment.HandID)
	}
	if len(commitment.Nonce) < 32 {
		return fmt.Errorf("rng: nonce too short (%d bytes)", len(commitment.Nonce))
	}
	if !isValidPermutation(shuffled) {
		return fmt.Errorf("rng: revealed deck is not a valid permutation")
	}
	return nil
}

func isValidPermutation(deck []cards.Card) bool {
	if len(deck) != 52 {
		return false
	}
	seen := make(map[cards.Card]bool, 52)
	for _, c := range deck {
		if seen[c] {
			return false
		}
		seen[c] = true
	}
	for _, c := range cards.NewDeck52() {
		if !seen[c] {
			return false
		}
	}
	return true
}

// SnapshotState captures the operational counters for a table, for
// periodic persistence through the audit sink's blob-append path.
type StateSnapshot struct {
	TableID     string
	OpCounter   uint64
	LastRefresh time.Time
	Timestamp   time.Time
}

func (c *Core) SnapshotState(tableID string) StateSnapshot {
	ts := c.table(tableID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return StateSnapshot{
		TableID:     tableID,
		OpCounter:   ts.opCounter,
		LastRefresh: ts.lastRefresh,
		Timestamp:   time.Now(),
	}
}

func (c *Core) RestoreState(s StateSnapshot) {
	ts := c.table(s.TableID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.opCounter = s.OpCounter
	ts.lastRefresh = s.LastRefresh
}

// RefreshEntropy records a fresh entropy refresh time for the table; the
// table actor calls it at the start of every hand.
func (c *Core) RefreshEntropy(tableID string) {
	ts := c.table(tableID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.lastRefresh = time.Now()
}
