package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Low-cost parameters keep the suite fast; they stay inside the verify
// bounds checks.
func testParams() Params {
	return Params{
		TimeCost:    1,
		MemoryKiB:   8 * 1024,
		Parallelism: 1,
		SaltLen:     16,
		KeyLen:      32,
	}
}

func TestHash_RoundTrip(t *testing.T) {
	t.Parallel()

	h := New(testParams(), "unit-test-pepper")

	digest, err := h.Hash("Sup3rSecret!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$v=19$"))

	assert.True(t, h.Verify("Sup3rSecret!", digest))
	assert.False(t, h.Verify("Sup3rSecret?", digest))
	assert.False(t, h.Verify("", digest))
}

func TestHash_SaltedDigestsDiffer(t *testing.T) {
	t.Parallel()

	h := New(testParams(), "unit-test-pepper")

	first, err := h.Hash("same password")
	require.NoError(t, err)
	second, err := h.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("same password", first))
	assert.True(t, h.Verify("same password", second))
}

func TestHash_PepperSensitivity(t *testing.T) {
	t.Parallel()

	a := New(testParams(), "pepper-a")
	b := New(testParams(), "pepper-b")

	digest, err := a.Hash("Sup3rSecret!")
	require.NoError(t, err)

	assert.True(t, a.Verify("Sup3rSecret!", digest))
	assert.False(t, b.Verify("Sup3rSecret!", digest))
}

func TestHash_NeedsRehash(t *testing.T) {
	t.Parallel()

	old := New(testParams(), "pepper")
	digest, err := old.Hash("Sup3rSecret!")
	require.NoError(t, err)
	assert.False(t, old.NeedsRehash(digest))

	raised := testParams()
	raised.TimeCost = 2
	current := New(raised, "pepper")

	assert.True(t, current.NeedsRehash(digest))
	// Old digests still verify under the new configuration.
	assert.True(t, current.Verify("Sup3rSecret!", digest))

	upgraded, err := current.Hash("Sup3rSecret!")
	require.NoError(t, err)
	assert.NotEqual(t, digest, upgraded)
	assert.False(t, current.NeedsRehash(upgraded))
	assert.True(t, current.Verify("Sup3rSecret!", upgraded))
}

func TestVerify_MalformedDigest(t *testing.T) {
	t.Parallel()

	h := New(testParams(), "pepper")

	tests := []struct {
		name    string
		encoded string
	}{
		{name: "empty", encoded: ""},
		{name: "not a phc string", encoded: "plainhash"},
		{name: "wrong algorithm", encoded: "$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA"},
		{name: "wrong version", encoded: "$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA"},
		{name: "bad base64", encoded: "$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA"},
		{name: "zero cost", encoded: "$argon2id$v=19$m=0,t=0,p=0$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.False(t, h.Verify("whatever", tt.encoded))
			assert.True(t, h.NeedsRehash(tt.encoded))
		})
	}
}

func TestVerify_RejectsOversizedCost(t *testing.T) {
	t.Parallel()

	// A digest claiming far more memory than configured must not be
	// recomputed at the attacker's cost parameters.
	big := Params{TimeCost: 1, MemoryKiB: 64 * 1024, Parallelism: 1, SaltLen: 16, KeyLen: 32}
	digest, err := New(big, "pepper").Hash("Sup3rSecret!")
	require.NoError(t, err)

	small := New(Params{TimeCost: 1, MemoryKiB: 8 * 1024, Parallelism: 1, SaltLen: 16, KeyLen: 32}, "pepper")
	assert.False(t, small.Verify("Sup3rSecret!", digest))
}
