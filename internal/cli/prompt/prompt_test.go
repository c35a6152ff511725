package prompt

import (
	"fmt"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
)

func TestValidateISCSIName(t *testing.T) {
	valid := []string{
		"iqn.2025-12.local:storage.memory-disk",
		"IQN.2025-12.test:python-client",
		"eui.02004567A425678D",
		"naa.52004567BA64678D",
	}
	for _, name := range valid {
		assert.NoError(t, ValidateISCSIName(name), name)
	}

	invalid := []string{"", "   ", "iqn.", "target", "iqn.a b", "iqn.a=b"}
	for _, name := range invalid {
		assert.Error(t, ValidateISCSIName(name), name)
	}
}

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(promptui.ErrInterrupt))
	assert.True(t, IsAborted(promptui.ErrEOF))
	assert.True(t, IsAborted(fmt.Errorf("wrapped: %w", ErrAborted)))
	assert.False(t, IsAborted(promptui.ErrAbort))
	assert.False(t, IsAborted(nil))

	assert.Equal(t, ErrAborted, wrapError(promptui.ErrInterrupt))
	assert.Nil(t, wrapError(nil))
}

func TestIsYes(t *testing.T) {
	assert.True(t, isYes("y"))
	assert.True(t, isYes(" YES "))
	assert.False(t, isYes("n"))
	assert.False(t, isYes(""))
}
