package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type light string

const (
	red    light = "RED"
	green  light = "GREEN"
	yellow light = "YELLOW"
	off    light = "OFF"
)

var lights = Table[light]{
	red:    {green, off},
	green:  {yellow, off},
	yellow: {red, off},
	off:    {},
}

func TestIsValidTransition(t *testing.T) {
	assert.True(t, IsValidTransition(red, green, lights))
	assert.True(t, IsValidTransition(yellow, off, lights))
	assert.False(t, IsValidTransition(red, yellow, lights))
	assert.False(t, IsValidTransition(off, red, lights))
	assert.False(t, IsValidTransition(light("UNKNOWN"), red, lights))
}

func TestAllowedNextReturnsCopy(t *testing.T) {
	allowed := AllowedNext(red, lights)
	require.Equal(t, []light{green, off}, allowed)

	allowed[0] = off
	assert.Equal(t, green, lights[red][0])
	assert.Empty(t, AllowedNext(off, lights))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(off, lights))
	assert.False(t, IsTerminal(red, lights))
}

func TestValidateTransition(t *testing.T) {
	require.NoError(t, ValidateTransition(green, yellow, lights, "light"))

	err := ValidateTransition(green, red, lights, "light")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	var invalid *InvalidTransitionError[light]
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "light", invalid.Entity)
	assert.Equal(t, green, invalid.Current)
	assert.Equal(t, red, invalid.Attempted)
	assert.Equal(t, []light{yellow, off}, invalid.Allowed)
	assert.Equal(t, "light: invalid status transition GREEN -> RED (allowed: [YELLOW, OFF])", err.Error())
}

func TestValidateTransitionWithoutLabel(t *testing.T) {
	err := ValidateTransition(off, red, lights, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity: invalid status transition OFF -> RED")
}
