package session

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// MovePicker selects one move from the legal-move set when the model's
// suggestion is missing or illegal. Any policy is acceptable as long as
// the returned move comes from the given set.
type MovePicker interface {
	Pick(legal []string) string
}

// FirstLegal always picks the first legal move. Deterministic; used in tests
// and as a minimal policy.
type FirstLegal struct{}

func (FirstLegal) Pick(legal []string) string {
	if len(legal) == 0 {
		return ""
	}
	return legal[0]
}

// RandomLegal picks a uniformly random legal move.
type RandomLegal struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomLegal(seed int64) *RandomLegal {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomLegal{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomLegal) Pick(legal []string) string {
	if len(legal) == 0 {
		return ""
	}
	r.mu.Lock()
	idx := r.rng.Intn(len(legal))
	r.mu.Unlock()
	return legal[idx]
}

// PickerFor maps a configured policy name to a picker, defaulting to random.
func PickerFor(policy string) MovePicker {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "first":
		return FirstLegal{}
	default:
		return NewRandomLegal(0)
	}
}
