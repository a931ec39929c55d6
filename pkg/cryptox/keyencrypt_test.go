package cryptox_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dreamscape-events/dreamscape/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

var master = []byte(strings.Repeat("m", cryptox.MinMasterKeyLength))

func TestKeyCipher_SealOpen(t *testing.T) {
	c, err := cryptox.NewKeyCipher(master)
	require.NoError(t, err)

	seed := []byte("0123456789abcdef0123456789abcdef")
	a, err := c.Seal(seed)
	require.NoError(t, err)
	b, err := c.Seal(seed)
	require.NoError(t, err)
	require.NotEqual(t, a, b, "nonce must differ per seal")
	require.NotContains(t, string(a), string(seed))

	got, err := c.Open(a)
	require.NoError(t, err)
	require.Equal(t, seed, got)
}

func TestKeyCipher_Rejects(t *testing.T) {
	_, err := cryptox.NewKeyCipher([]byte("short"))
	require.ErrorIs(t, err, cryptox.ErrMasterKeyTooShort)

	c, err := cryptox.NewKeyCipher(master)
	require.NoError(t, err)
	sealed, err := c.Seal([]byte("secret"))
	require.NoError(t, err)

	other, err := cryptox.NewKeyCipher([]byte(strings.Repeat("x", cryptox.MinMasterKeyLength)))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	require.Error(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = c.Open(sealed)
	require.Error(t, err)

	_, err = c.Open([]byte("tiny"))
	require.ErrorIs(t, err, cryptox.ErrSealedTooShort)
}

func TestLoadKeyCipher(t *testing.T) {
	file := filepath.Join(t.TempDir(), "master.key")
	require.NoError(t, os.WriteFile(file, append(master, '\n'), 0o600))

	fromFile, err := cryptox.LoadKeyCipher(file)
	require.NoError(t, err)
	direct, err := cryptox.NewKeyCipher(master)
	require.NoError(t, err)

	sealed, err := direct.Seal([]byte("seed"))
	require.NoError(t, err)
	got, err := fromFile.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("seed"), got)

	_, err = cryptox.LoadKeyCipher(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
