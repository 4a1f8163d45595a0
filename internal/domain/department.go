package domain

import "time"

// Department is the registry entry behind a complaint category.
type Department struct {
	ID          string
	Code        string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
