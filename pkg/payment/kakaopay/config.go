package kakaopay

import (
	"fmt"
	"time"
)

// Config holds merchant credentials and redirect URLs.
type Config struct {
	AdminKey    string
	CID         string // merchant code
	BaseURL     string
	ApprovalURL string
	FailURL     string
	CancelURL   string
	Timeout     time.Duration // per request, defaults to 10s
}

// Validate checks that every required field is set.
func (c *Config) Validate() error {
	required := map[string]string{
		"admin key":    c.AdminKey,
		"cid":          c.CID,
		"base url":     c.BaseURL,
		"approval url": c.ApprovalURL,
		"fail url":     c.FailURL,
		"cancel url":   c.CancelURL,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%w: missing %s", ErrInvalidRequest, name)
		}
	}
	return nil
}
