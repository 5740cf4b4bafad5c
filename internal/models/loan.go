package models

import "time"

// Loan records one holder borrowing one item. A loan is created open and closed
// exactly once, after which it never changes.
type Loan struct {
	ID             string     `bson:"_id" json:"id"`
	HolderID       string     `bson:"holderId" json:"holderId"`
	ItemID         string     `bson:"itemId" json:"itemId"`
	BorrowedAt     time.Time  `bson:"borrowedAt" json:"borrowedAt"`
	HardExpiresAt  *time.Time `bson:"hardExpiresAt,omitempty" json:"hardExpiresAt,omitempty"`
	PolicyReturnAt *time.Time `bson:"policyReturnAt,omitempty" json:"policyReturnAt,omitempty"`
	Open           bool       `bson:"open" json:"open"`
	ClosedAt       *time.Time `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
	ClosedBy       Actor      `bson:"closedBy,omitempty" json:"closedBy,omitempty"`
}

// Actor identifies who closed a loan.
type Actor string

const (
	ActorUser   Actor = "user"
	ActorSystem Actor = "system"
)

// NextDeadline returns the earlier of the two deadlines, or nil when neither is set.
func (l *Loan) NextDeadline() *time.Time {
	switch {
	case l.HardExpiresAt == nil:
		return l.PolicyReturnAt
	case l.PolicyReturnAt == nil:
		return l.HardExpiresAt
	case l.PolicyReturnAt.Before(*l.HardExpiresAt):
		return l.PolicyReturnAt
	}
	return l.HardExpiresAt
}
