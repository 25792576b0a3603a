package compose

import (
	"math/rand"
	"sync"
	"time"
)

// Picker chooses an index in [0, n).
type Picker interface {
	Intn(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomPicker returns a goroutine-safe Picker. A zero seed seeds from the clock.
func NewRandomPicker(seed int64) Picker {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func pick[T any](p Picker, pool []T) T {
	return pool[p.Intn(len(pool))]
}
