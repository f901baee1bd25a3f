package smtp

import (
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseAuth_PlaintextRemoteHost(t *testing.T) {
	t.Parallel()

	cfg := Config{Host: "smtp.example.com", Username: "relay-user", Password: "s3cret"}
	server := &smtp.ServerInfo{Name: "smtp.example.com", TLS: false}

	t.Run("PLAIN", func(t *testing.T) {
		t.Parallel()
		mech, resp, err := chooseAuth("PLAIN LOGIN", cfg).Start(server)
		require.NoError(t, err)
		assert.Equal(t, "PLAIN", mech)
		assert.Equal(t, []byte("\x00relay-user\x00s3cret"), resp)
	})

	t.Run("LOGIN", func(t *testing.T) {
		t.Parallel()
		a := chooseAuth("LOGIN", cfg)
		mech, _, err := a.Start(server)
		require.NoError(t, err)
		assert.Equal(t, "LOGIN", mech)

		user, err := a.Next([]byte("Username:"), true)
		require.NoError(t, err)
		assert.Equal(t, []byte("relay-user"), user)
		pass, err := a.Next([]byte("Password:"), true)
		require.NoError(t, err)
		assert.Equal(t, []byte("s3cret"), pass)
	})

	t.Run("wrong host", func(t *testing.T) {
		t.Parallel()
		_, _, err := chooseAuth("PLAIN", cfg).Start(&smtp.ServerInfo{Name: "mx.other.example"})
		require.ErrorIs(t, err, ErrWrongHost)
	})

	t.Run("unexpected PLAIN challenge", func(t *testing.T) {
		t.Parallel()
		_, err := chooseAuth("PLAIN", cfg).Next([]byte("?"), true)
		require.ErrorIs(t, err, ErrUnexpectedChallenge)
	})
}
