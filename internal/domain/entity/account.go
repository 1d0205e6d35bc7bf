package entity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Account is a named bucket journal lines are posted against
type Account struct {
	ID     uuid.UUID `json:"id"`
	Number int64     `json:"number"`
	Name   string    `json:"name"`
}

// NewAccount is the input of the account registry
type NewAccount struct {
	Name   string `json:"name"`
	Number int64  `json:"number"`
}

// Validate validates the account input
func (a *NewAccount) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAccount)
	}
	if a.Number <= 0 {
		return fmt.Errorf("%w: number must be positive", ErrInvalidAccount)
	}
	return nil
}
