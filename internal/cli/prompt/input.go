package prompt

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// Input prompts for text, pre-filled with defaultValue. validate may be nil.
func Input(label, defaultValue string, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label:     label,
		Default:   defaultValue,
		AllowEdit: true,
		Validate:  validate,
	}

	result, err := p.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// Select prompts for one of items and returns it.
func Select(label string, items []string, current string) (string, error) {
	cursor := 0
	for i, item := range items {
		if item == current {
			cursor = i
		}
	}

	p := promptui.Select{
		Label:     label,
		Items:     items,
		CursorPos: cursor,
		Size:      len(items),
	}

	_, result, err := p.Run()
	return result, wrapError(err)
}

// ValidateISCSIName accepts the iqn., eui. and naa. name formats.
func ValidateISCSIName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(name, " =\x00") {
		return fmt.Errorf("name must not contain spaces, '=' or NUL")
	}
	lower := strings.ToLower(name)
	for _, prefix := range []string{"iqn.", "eui.", "naa."} {
		if strings.HasPrefix(lower, prefix) && len(name) > len(prefix) {
			return nil
		}
	}
	return fmt.Errorf("name must start with iqn., eui. or naa.")
}
