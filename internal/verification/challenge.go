package verification

import (
	"context"
	"sync"
	"time"

	"github.com/versachat/versachat-api/internal/util"
)

const (
	CodeLength  = 6
	DefaultTTL  = 10 * time.Minute
	maxAttempts = 3

	// DefaultSweepInterval is how often the background sweep removes
	// abandoned challenges.
	DefaultSweepInterval = 5 * time.Minute
)

// Outcome is the result of verifying a candidate code.
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeExpired
	OutcomeExhausted
	OutcomeVerified
	OutcomeMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeExpired:
		return "expired"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeVerified:
		return "verified"
	case OutcomeMismatch:
		return "mismatch"
	}
	return "unknown"
}

type challenge struct {
	code      string
	expiresAt time.Time
	attempts  int
}

// Store holds pending one-time signup codes keyed by email. State is
// process-local and volatile: a restart forgets every pending code.
type Store struct {
	mu      sync.Mutex
	entries map[string]*challenge
	ttl     time.Duration
	now     func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		entries: make(map[string]*challenge),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue generates a fresh code for email, unconditionally replacing any
// existing challenge. The prior code becomes invalid even if unexpired.
func (s *Store) Issue(email string) (string, error) {
	code, err := util.GenerateNumericCode(CodeLength)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[email] = &challenge{
		code:      code,
		expiresAt: s.now().Add(s.ttl),
	}
	return code, nil
}

// Verify checks candidate against the stored code. The attempt counter is
// incremented before the equality check, so a correct code submitted on the
// exhausting attempt is still rejected.
func (s *Store) Verify(email, candidate string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[email]
	if !ok {
		return OutcomeNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, email)
		return OutcomeExpired
	}
	if entry.attempts >= maxAttempts {
		delete(s.entries, email)
		return OutcomeExhausted
	}
	entry.attempts++
	if candidate == entry.code {
		delete(s.entries, email)
		return OutcomeVerified
	}
	return OutcomeMismatch
}

// RemainingSeconds reports how long the challenge for email stays valid,
// rounded up to whole seconds; zero when absent or expired. Rounding up
// keeps the value at the full TTL when read right after Issue.
func (s *Store) RemainingSeconds(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[email]
	if !ok {
		return 0
	}
	remaining := entry.expiresAt.Sub(s.now())
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

// Sweep removes every expired challenge. Expiry is otherwise detected lazily
// in Verify, so abandoned flows would accumulate without this.
func (s *Store) Sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, email)
		}
	}
}

// Run sweeps on the given interval until ctx is cancelled. Intended to be
// started once by the process owner.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
