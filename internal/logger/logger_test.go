package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	l, err := New("debug")
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, l.GetLevel())

	_, err = New("verbose")
	require.Error(t, err)
}

func TestOrDefault(t *testing.T) {
	require.Equal(t, logrus.StandardLogger(), OrDefault(nil))

	l := Discard()
	require.Equal(t, l, OrDefault(l))
}
