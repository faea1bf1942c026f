package cryptoutils

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/walletvault/vault-integrity-engine/interfaces"
)

func testKey(t *testing.T) *SessionKey {
	t.Helper()
	key, err := DeriveSessionKey(
		SignatureMaterial{Signature: []byte("envelope-test-signature")},
		common.HexToAddress("0x1111111111111111111111111111111111111111"))
	require.NoError(t, err)
	return key
}

func testEntry() *EntryPlaintext {
	now := time.Unix(1724630400, 0).UTC()
	return &EntryPlaintext{
		Service:   "github",
		Username:  "octocat",
		Password:  "p@ss",
		Category:  "development",
		Network:   "mainnet",
		URL:       "https://github.com/login",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := testKey(t)
	entry := testEntry()

	env, err := SealEntry(entry, key)
	require.NoError(t, err)
	require.Equal(t, EnvelopeVersion1, env.Version)

	restored, err := OpenEntry(env, key)
	require.NoError(t, err)
	require.Equal(t, entry, restored)
}

func TestSealGeneratesFreshNonceAndSalt(t *testing.T) {
	key := testKey(t)
	entry := testEntry()

	first, err := SealEntry(entry, key)
	require.NoError(t, err)
	second, err := SealEntry(entry, key)
	require.NoError(t, err)

	require.NotEqual(t, first.IV, second.IV)
	require.NotEqual(t, first.Salt, second.Salt)
	require.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestOpenDetectsTampering(t *testing.T) {
	key := testKey(t)

	testCases := []struct {
		name   string
		mutate func(env *Envelope)
	}{
		{
			name:   "ciphertext bit flip",
			mutate: func(env *Envelope) { env.Ciphertext[0] ^= 0x01 },
		},
		{
			name:   "auth tag bit flip",
			mutate: func(env *Envelope) { env.AuthTag[0] ^= 0x80 },
		},
		{
			name:   "salt swap",
			mutate: func(env *Envelope) { env.Salt[3] ^= 0xff },
		},
		{
			name:   "nonce swap",
			mutate: func(env *Envelope) { env.IV[0] ^= 0x01 },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := SealEntry(testEntry(), key)
			require.NoError(t, err)

			tc.mutate(env)
			_, err = OpenEntry(env, key)
			require.ErrorIs(t, err, interfaces.ErrIntegrity)
		})
	}
}

func TestOpenWithWrongKey(t *testing.T) {
	env, err := SealEntry(testEntry(), testKey(t))
	require.NoError(t, err)

	wrongKey, err := DeriveSessionKey(
		SignatureMaterial{Signature: []byte("a different signature")},
		common.HexToAddress("0x1111111111111111111111111111111111111111"))
	require.NoError(t, err)

	_, err = OpenEntry(env, wrongKey)
	require.ErrorIs(t, err, interfaces.ErrIntegrity)
}

func TestOpenRejectsUnknownVersion(t *testing.T) {
	key := testKey(t)
	env, err := SealEntry(testEntry(), key)
	require.NoError(t, err)

	env.Version = 2
	_, err = OpenEntry(env, key)
	require.ErrorIs(t, err, interfaces.ErrFormat)
}

func TestEnvelopeMarshalParseRoundTrip(t *testing.T) {
	key := testKey(t)
	env, err := SealEntry(testEntry(), key)
	require.NoError(t, err)

	parsed, err := ParseEnvelope(env.Marshal())
	require.NoError(t, err)
	require.Equal(t, env, parsed)

	restored, err := OpenEntry(parsed, key)
	require.NoError(t, err)
	require.Equal(t, "p@ss", restored.Password)
}

func TestParseEnvelopeStrict(t *testing.T) {
	key := testKey(t)
	env, err := SealEntry(testEntry(), key)
	require.NoError(t, err)
	raw := env.Marshal()

	t.Run("unknown version", func(t *testing.T) {
		mutated := append([]byte(nil), raw...)
		mutated[0] = 9
		_, err := ParseEnvelope(mutated)
		require.ErrorIs(t, err, interfaces.ErrFormat)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		_, err := ParseEnvelope(append(append([]byte(nil), raw...), 0x00))
		require.ErrorIs(t, err, interfaces.ErrFormat)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := ParseEnvelope(nil)
		require.ErrorIs(t, err, interfaces.ErrFormat)
	})

	// Truncation at every byte boundary must fail strict parsing.
	for cut := 1; cut < len(raw); cut++ {
		_, err := ParseEnvelope(raw[:cut])
		require.ErrorIs(t, err, interfaces.ErrFormat, "truncated at %d", cut)
	}
}
