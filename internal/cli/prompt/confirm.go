// Package prompt provides the interactive terminal prompts of config init.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted returns true if the error indicates the user aborted.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Confirm prompts for yes/no. Empty input selects defaultYes.
func Confirm(label string, defaultYes bool) (bool, error) {
	defaultStr := "y/N"
	if defaultYes {
		defaultStr = "Y/n"
	}

	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, defaultStr),
		IsConfirm: true,
	}

	result, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, ErrAborted
		}
		// promptui reports "n" as ErrAbort
		if errors.Is(err, promptui.ErrAbort) {
			if result == "" {
				return defaultYes, nil
			}
			return false, nil
		}
		return false, err
	}

	return isYes(result), nil
}

// ConfirmWithForce returns true immediately if force is set, otherwise it
// asks.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}
