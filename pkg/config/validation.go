package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing the first validation failure.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if n, err := ParseSize(cfg.Storage.MaxFileSize); err != nil {
		return fmt.Errorf("storage.max_file_size: %w", err)
	} else if n <= 0 {
		return fmt.Errorf("storage.max_file_size: must be positive")
	}

	if _, err := ParseSize(cfg.Users.FreeQuota); err != nil {
		return fmt.Errorf("users.free_quota: %w", err)
	}

	plans := make(map[string]bool, len(cfg.Users.Plans))
	for i, plan := range cfg.Users.Plans {
		if plans[plan.ID] {
			return fmt.Errorf("users.plans[%d]: duplicate plan id %q", i, plan.ID)
		}
		plans[plan.ID] = true

		if _, err := ParseSize(plan.Quota); err != nil {
			return fmt.Errorf("users.plans[%d].quota: %w", i, err)
		}
	}

	owners := make(map[string]bool, len(cfg.Users.Assignments))
	for i, a := range cfg.Users.Assignments {
		if !plans[a.Plan] {
			return fmt.Errorf("users.assignments[%d]: unknown plan %q", i, a.Plan)
		}
		if owners[a.Owner] {
			return fmt.Errorf("users.assignments[%d]: owner %s is assigned twice", i, a.Owner)
		}
		owners[a.Owner] = true

		if a.ExpiresAt != "" {
			if _, err := time.Parse(time.RFC3339, a.ExpiresAt); err != nil {
				return fmt.Errorf("users.assignments[%d].expires_at: %w", i, err)
			}
		}
	}

	if cfg.Storage.Content.Type == "memory" && cfg.Metadata.Type == "badger" {
		return fmt.Errorf("storage.content: memory content cannot back a persistent badger metadata store")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
