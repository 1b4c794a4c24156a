package service

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
)

// newSecurityPin returns a uniformly random 6-digit numeric string.
// crypto/rand because the pin is the customer's proof-of-presence secret.
func newSecurityPin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// round1 rounds to one decimal place, the precision of every stored rating.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// keyedMutex serializes work per string key (booking id, technician id,
// service id). Entries are never evicted; the map is bounded by the number
// of distinct keys touched during the process lifetime.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
