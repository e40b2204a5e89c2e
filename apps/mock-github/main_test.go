package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotacb/gitport/pkg/mockgithub"
)

func TestDefaultSeed_Loads(t *testing.T) {
	s := mockgithub.NewStore()
	require.NoError(t, s.LoadSeed(bytes.NewReader(defaultSeed)))
	assert.Equal(t, 2, s.Repos())
}
