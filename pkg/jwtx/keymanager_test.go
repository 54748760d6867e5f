package jwtx_test

import (
	"sync"
	"testing"
	"time"

	"github.com/quorumsec/trustd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestNewKeyManager(t *testing.T) {
	pair := newTestPair(t, jwtx.AlgorithmEdDSA)

	km, err := jwtx.NewKeyManager(pair)
	require.NoError(t, err)
	require.Same(t, pair, km.Current())
	require.False(t, km.HasPrevious())
	require.Len(t, km.VerificationKeys(), 1)

	_, err = jwtx.NewKeyManager(nil)
	require.ErrorIs(t, err, jwtx.ErrConfig)
}

func TestKeyManager_RotationGracePeriod(t *testing.T) {
	old := newTestPair(t, jwtx.AlgorithmEdDSA)
	km, err := jwtx.NewKeyManager(old)
	require.NoError(t, err)

	// Sign a token under the original pair
	now := time.Now().UTC()
	token, err := old.Sign(jwtx.NewAccessClaims("user-123", nil, nil, time.Minute, "iss", nil, now))
	require.NoError(t, err)

	// Rotate: old pair moves to the previous slot
	next := newTestPair(t, jwtx.AlgorithmEdDSA)
	require.NoError(t, km.Rotate(next))
	require.Same(t, next, km.Current())
	require.True(t, km.HasPrevious())

	// Verification order is current first, then previous
	keys := km.VerificationKeys()
	require.Len(t, keys, 2)
	require.Same(t, next, keys[0])
	require.Same(t, old, keys[1])

	// The old token still verifies via the previous pair
	decoded, err := keys[1].Decode(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", decoded.Subject)

	// Ending the grace period drops the old pair
	km.RemovePrevious()
	require.False(t, km.HasPrevious())
	require.Len(t, km.VerificationKeys(), 1)

	_, err = km.Current().Decode(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)
}

func TestKeyManager_RotateRequiresPair(t *testing.T) {
	km, err := jwtx.NewKeyManager(newTestPair(t, jwtx.AlgorithmHS256))
	require.NoError(t, err)

	require.ErrorIs(t, km.Rotate(nil), jwtx.ErrKey)
	require.NotNil(t, km.Current(), "failed rotation must not clear the current pair")
}

func TestKeyManager_SecondRotationReplacesPrevious(t *testing.T) {
	first := newTestPair(t, jwtx.AlgorithmHS256)
	second := newTestPair(t, jwtx.AlgorithmHS256)
	third := newTestPair(t, jwtx.AlgorithmHS256)

	km, err := jwtx.NewKeyManager(first)
	require.NoError(t, err)

	require.NoError(t, km.Rotate(second))
	require.NoError(t, km.Rotate(third))

	keys := km.VerificationKeys()
	require.Len(t, keys, 2)
	require.Same(t, third, keys[0])
	require.Same(t, second, keys[1])
}

func TestKeyManager_ConcurrentReadsDuringRotation(t *testing.T) {
	km, err := jwtx.NewKeyManager(newTestPair(t, jwtx.AlgorithmHS256))
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Hammer reads while rotations happen. Every read must observe a
	// coherent key list: non-empty, current in slot zero.
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				keys := km.VerificationKeys()
				require.NotEmpty(t, keys)
				require.NotNil(t, keys[0])
				require.LessOrEqual(t, len(keys), 2)
			}
		}()
	}

	for range 50 {
		require.NoError(t, km.Rotate(newTestPair(t, jwtx.AlgorithmHS256)))
	}
	km.RemovePrevious()

	close(stop)
	wg.Wait()
}
