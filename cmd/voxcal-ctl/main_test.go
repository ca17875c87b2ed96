package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"voxcal/internal/ipc"
)

func TestParse(t *testing.T) {
	msg, err := parse([]string{"trigger"})
	require.NoError(t, err)
	require.Equal(t, ipc.ControlMessage{Cmd: ipc.CmdTrigger}, msg)

	msg, err = parse([]string{"say", "delete", "all", "appointments"})
	require.NoError(t, err)
	require.Equal(t, "delete all appointments", msg.Text)

	msg, err = parse([]string{"play", "note.wav"})
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(msg.Path))
	require.Equal(t, "note.wav", filepath.Base(msg.Path))

	for _, args := range [][]string{nil, {"say"}, {"play", " "}, {"dance"}} {
		_, err := parse(args)
		require.Error(t, err, "%v", args)
	}
}
