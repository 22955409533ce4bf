package conf

import (
	"errors"
	"fmt"
	"time"
	"unicode"
)

const (
	minUsernameLength = 4
	minPasswordLength = 8
	minInterval       = 100 * time.Millisecond
)

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.Username == "":
		errs = append(errs, errors.New("username is required"))
	case len(c.Username) < minUsernameLength:
		errs = append(errs, fmt.Errorf("username must be at least %d characters", minUsernameLength))
	}

	if c.Password == "" {
		errs = append(errs, errors.New("password is required"))
	} else if err := checkPassword(c.Password); err != nil {
		errs = append(errs, err)
	}

	if c.SessionDuration <= 0 {
		errs = append(errs, errors.New("session_duration must be positive"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.Port))
	}
	if c.MaxConnections < 1 {
		errs = append(errs, errors.New("max_connections must be at least 1"))
	}
	if c.Interval.Duration < minInterval {
		errs = append(errs, fmt.Errorf("interval must be at least %s", minInterval))
	}
	if c.SampleWindow.Duration < 0 {
		errs = append(errs, errors.New("sample_window must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// checkPassword enforces length plus upper, lower, digit and symbol classes.
func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	var missing []string
	if !upper {
		missing = append(missing, "an uppercase letter")
	}
	if !lower {
		missing = append(missing, "a lowercase letter")
	}
	if !digit {
		missing = append(missing, "a digit")
	}
	if !symbol {
		missing = append(missing, "a special character")
	}
	if len(missing) > 0 {
		return fmt.Errorf("password must contain %v", missing)
	}
	return nil
}
