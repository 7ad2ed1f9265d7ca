package models

import "time"

// Record is implemented by everything stored in the history database.
type Record interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Repository is the storage contract for one [Record] type. Deletes are soft.
type Repository[T Record] interface {
	Create(record T) error
	Get(id string) (T, error)
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}
