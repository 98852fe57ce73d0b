package session

import (
	"fmt"
	"sync"

	"github.com/agribenchmark/farmsync/utils"
)

// Selection holds the farm currently selected in the dashboard. It is passed
// explicitly to whatever needs the scope key; an empty farm id means nothing
// is selected.
type Selection struct {
	mu       sync.RWMutex
	farmId   string
	watchers []func(farmId string)
}

func NewSelection() *Selection {
	return &Selection{}
}

func (s *Selection) FarmId() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.farmId
}

// Select switches the active farm. The id must match CC_YYYY_<uuid>.
func (s *Selection) Select(farmId string) error {
	if !utils.IsValidFarmId(farmId) {
		return fmt.Errorf("%w: %q", utils.ErrorInvalidFarmId, farmId)
	}
	s.set(farmId)
	return nil
}

func (s *Selection) Clear() {
	s.set("")
}

// OnChange registers fn to run after every selection change.
func (s *Selection) OnChange(fn func(farmId string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *Selection) set(farmId string) {
	s.mu.Lock()
	changed := s.farmId != farmId
	s.farmId = farmId
	watchers := append([]func(string){}, s.watchers...)
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range watchers {
		fn(farmId)
	}
}
