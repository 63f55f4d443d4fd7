// services/item_service.go
package services

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/snaphunt/models"
)

// ItemService picks the target item for each round. Later rounds draw from
// harder tiers. The built-in lists are placeholders; the real item-difficulty
// database lives outside this service and can be swapped in via SetTiers.
type ItemService struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	tiers [][]string
}

var defaultTiers = [][]string{
	{"cup", "spoon", "book", "pen", "shoe", "bottle"},
	{"toothbrush", "scissors", "remote control", "keys", "headphones", "mug"},
	{"stapler", "candle", "measuring tape", "charger", "plant", "umbrella"},
}

func NewItemService() *ItemService {
	return &ItemService{
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		tiers: defaultTiers,
	}
}

// SetTiers replaces the difficulty tiers, easiest first.
func (s *ItemService) SetTiers(tiers [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers = tiers
}

// NextTarget returns one item for the given 1-based round. Difficulty climbs
// one tier every two rounds and clamps at the hardest tier.
func (s *ItemService) NextTarget(round int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tier := (round - 1) / 2
	if tier < 0 {
		tier = 0
	}
	if tier >= len(s.tiers) {
		tier = len(s.tiers) - 1
	}
	pool := s.tiers[tier]
	return pool[s.rnd.Intn(len(pool))]
}

// LabelMatcher is the default claim matcher: normalized label equality. The
// production recognizer replaces it with keyword/confidence matching against
// the vision model's output.
type LabelMatcher struct{}

func NewLabelMatcher() *LabelMatcher {
	return &LabelMatcher{}
}

func (m *LabelMatcher) Match(target string, claim models.Claim) bool {
	normalize := func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}
	got := normalize(claim.Label)
	want := normalize(target)
	if got == want {
		return true
	}
	// recognizer labels are often phrases: "a blue coffee mug"
	return want != "" && strings.Contains(got, want)
}
