package student

import (
	"time"

	"github.com/Kingsman71/Binary-Learning/core"
)

// Student is the identity record of a registered student. ID matches the identity provider's subject.
type Student struct {
	ID        string    `json:"id" bson:"_id" db:"id"`
	FullName  string    `json:"full_name" bson:"fullName" db:"full_name"`
	Email     string    `json:"email" bson:"email" db:"email"`
	Phone     string    `json:"phone" bson:"phone" db:"phone"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt" db:"created_at"` // UTC
}

// NewStudent contains information needed to register a Student.
// Email defaults to the authenticated identity's email.
type NewStudent struct {
	FullName string `json:"full_name" validate:"required,notblank,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,phone"`
}

func (ns *NewStudent) Clean() {
	ns.FullName = core.CleanString(ns.FullName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
}

// GetFilter looks up one Student by ID, or else by Email (case-insensitive).
type GetFilter struct {
	ID    string
	Email string
}
