package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tags and the cross-field rules tags cannot
// express. The error lists every failing field as
// "<namespace>: failed '<tag>' validation".
func Validate(cfg *Config) error {
	var problems []string

	if err := getValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, formatFieldError(fe))
		}
	}

	seen := make(map[string]int, len(cfg.Scenarios))
	for i, s := range cfg.Scenarios {
		if j, dup := seen[s.Name]; dup && s.Name != "" {
			problems = append(problems, fmt.Sprintf("Config.Scenarios[%d].Name: duplicate of Scenarios[%d] (%q)", i, j, s.Name))
			continue
		}
		seen[s.Name] = i

		if _, _, err := s.ISIDBytes(); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if cfg.Probe.Suite == "custom" && len(cfg.Scenarios) == 0 {
		problems = append(problems, "Config.Probe.Suite: suite \"custom\" requires at least one entry under scenarios")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("%s: failed '%s' validation (%s=%s, got %v)", fe.Namespace(), fe.Tag(), fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s: failed '%s' validation", fe.Namespace(), fe.Tag())
}
