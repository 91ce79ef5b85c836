package models

import "time"

type Tenant struct {
	ID        string
	Name      string
	Domain    string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
