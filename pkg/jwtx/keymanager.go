package jwtx

import (
	"fmt"
	"sync"
)

// KeyManager owns the active signing key pair and, during a rotation grace
// period, the previous pair. Validation tries the current pair first and
// falls back to the previous one, so tokens signed just before a rotation
// stay valid until the operator ends the grace period.
//
// Reads vastly outnumber writes here: every token validation takes the read
// lock, a rotation briefly takes the write lock. A validator can never
// observe a half-installed pair.
type KeyManager struct {
	mu       sync.RWMutex
	current  *KeyPair
	previous *KeyPair
}

// NewKeyManager creates a manager with the given pair as current.
func NewKeyManager(current *KeyPair) (*KeyManager, error) {
	if current == nil {
		return nil, fmt.Errorf("%w: current key pair is required", ErrConfig)
	}
	return &KeyManager{current: current}, nil
}

// Current returns the pair used for signing new tokens.
func (m *KeyManager) Current() *KeyPair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// VerificationKeys returns the pairs to try during validation, current
// first. During a rotation grace period this includes the previous pair.
func (m *KeyManager) VerificationKeys() []*KeyPair {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := []*KeyPair{m.current}
	if m.previous != nil {
		keys = append(keys, m.previous)
	}
	return keys
}

// Rotate installs next as the current pair and moves the old current into
// the previous slot. Tokens signed under the old pair keep validating until
// RemovePrevious is called. A rotation while a previous pair is still held
// discards that older pair; only one grace period runs at a time.
func (m *KeyManager) Rotate(next *KeyPair) error {
	if next == nil {
		return fmt.Errorf("%w: rotation requires a new key pair", ErrKey)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.previous = m.current
	m.current = next
	return nil
}

// RemovePrevious ends the rotation grace period. Tokens signed by the
// retired pair fail signature verification from this point on. The current
// pair is never removed.
func (m *KeyManager) RemovePrevious() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.previous = nil
}

// HasPrevious reports whether a rotation grace period is in effect.
func (m *KeyManager) HasPrevious() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.previous != nil
}
