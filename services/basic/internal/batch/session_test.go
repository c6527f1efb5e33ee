package batch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionHappyPath(t *testing.T) {
	s := NewSession()
	require.Equal(t, StateInit, s.State())

	require.NoError(t, s.Begin())
	require.Equal(t, StateStreaming, s.State())

	require.NoError(t, s.Progress())
	require.NoError(t, s.Progress())
	require.Equal(t, StateStreaming, s.State())

	require.NoError(t, s.Complete())
	require.Equal(t, StateCompleted, s.State())
	require.True(t, s.State().Terminal())
}

func TestSessionTerminalStatesAreFinal(t *testing.T) {
	end := map[string]func(*Session) error{
		"completed": (*Session).Complete,
		"cancelled": (*Session).Cancel,
		"failed":    (*Session).Fail,
	}

	for name, terminate := range end {
		t.Run(name, func(t *testing.T) {
			s := NewSession()
			require.NoError(t, s.Begin())
			require.NoError(t, terminate(s))
			require.True(t, s.State().Terminal())

			require.Error(t, s.Begin())
			require.Error(t, s.Progress())
			require.Error(t, s.Complete())
			require.Error(t, s.Cancel())
			require.Error(t, s.Fail())
		})
	}
}

func TestSessionIllegalFromInit(t *testing.T) {
	s := NewSession()
	require.Error(t, s.Progress())
	require.Error(t, s.Complete())
	require.Error(t, s.Cancel())
	require.Error(t, s.Fail())
	require.False(t, s.State().Terminal())

	require.NoError(t, s.Begin())
	require.Error(t, s.Begin(), "begin is not repeatable")
}
