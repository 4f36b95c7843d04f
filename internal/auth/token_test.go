package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringTokenSource(t *testing.T) {
	keyring.MockInit()

	t.Run("Should report missing token", func(t *testing.T) {
		_, err := KeyringTokenSource{}.Token()
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("Should read stored token", func(t *testing.T) {
		require.NoError(t, StoreToken("secret"))
		defer DeleteToken()

		token, err := KeyringTokenSource{}.Token()
		require.NoError(t, err)
		assert.Equal(t, "secret", token)
	})

	t.Run("Should prefer override", func(t *testing.T) {
		require.NoError(t, StoreToken("from-keychain"))
		defer DeleteToken()

		token, err := KeyringTokenSource{Override: "from-env"}.Token()
		require.NoError(t, err)
		assert.Equal(t, "from-env", token)
	})

	t.Run("Should tolerate deleting a missing token", func(t *testing.T) {
		assert.NoError(t, DeleteToken())
	})
}

func TestStaticToken(t *testing.T) {
	_, err := StaticToken("").Token()
	assert.ErrorIs(t, err, ErrNoToken)

	token, err := StaticToken("abc").Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}
