package models

import "time"

type ExchangeStatus string

const (
	StatusPending   ExchangeStatus = "pending"
	StatusAccepted  ExchangeStatus = "accepted"
	StatusRejected  ExchangeStatus = "rejected"
	StatusCancelled ExchangeStatus = "cancelled"
	StatusConfirmed ExchangeStatus = "confirmed"
	StatusCompleted ExchangeStatus = "completed"
)

// Terminal reports whether no party action is legal from s.
func (s ExchangeStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusCancelled, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

func (s ExchangeStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCancelled, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

type Role string

const (
	RoleRequester Role = "requester"
	RoleHost      Role = "host"
)

// Other returns the counterpart role.
func (r Role) Other() Role {
	if r == RoleHost {
		return RoleRequester
	}
	return RoleHost
}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type VerificationStatus string

const (
	IdentityUnverified VerificationStatus = "unverified"
	IdentityPending    VerificationStatus = "pending"
	IdentityVerified   VerificationStatus = "verified"
)

// Replaces reports whether a provider update to v may overwrite cur. A late
// pending never undoes a verification; unverified (revocation) always wins.
func (v VerificationStatus) Replaces(cur VerificationStatus) bool {
	return !(cur == IdentityVerified && v == IdentityPending)
}

func (v VerificationStatus) Valid() bool {
	switch v {
	case IdentityUnverified, IdentityPending, IdentityVerified:
		return true
	}
	return false
}

// Exchange is a proposed or agreed home swap between a requester and a host.
// Each party owns its own slice of flags; see Party.
type Exchange struct {
	ID              string         `json:"id"`
	RequesterID     string         `json:"requester_id"`
	HostID          string         `json:"host_id"`
	RequesterHomeID string         `json:"requester_home_id"`
	HostHomeID      string         `json:"host_home_id"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
	Guests          int            `json:"guests"`
	Message         string         `json:"message"`
	Status          ExchangeStatus `json:"status"`

	RequesterConfirmed bool `json:"requester_confirmed"`
	HostConfirmed      bool `json:"host_confirmed"`

	RequesterPaymentStatus PaymentStatus `json:"requester_payment_status"`
	HostPaymentStatus      PaymentStatus `json:"host_payment_status"`

	RequesterIdentityStatus VerificationStatus `json:"requester_identity_verification_status"`
	HostIdentityStatus      VerificationStatus `json:"host_identity_verification_status"`

	RequesterPaymentSessionID *string `json:"-"`
	HostPaymentSessionID      *string `json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RoleOf returns the role userID plays in the exchange.
func (e *Exchange) RoleOf(userID string) (Role, bool) {
	switch userID {
	case e.RequesterID:
		return RoleRequester, true
	case e.HostID:
		return RoleHost, true
	}
	return "", false
}

func (e *Exchange) PartyID(r Role) string {
	if r == RoleHost {
		return e.HostID
	}
	return e.RequesterID
}

func (e *Exchange) Confirmed(r Role) bool {
	if r == RoleHost {
		return e.HostConfirmed
	}
	return e.RequesterConfirmed
}

func (e *Exchange) SetConfirmed(r Role) {
	if r == RoleHost {
		e.HostConfirmed = true
		return
	}
	e.RequesterConfirmed = true
}

func (e *Exchange) Payment(r Role) PaymentStatus {
	if r == RoleHost {
		return e.HostPaymentStatus
	}
	return e.RequesterPaymentStatus
}

func (e *Exchange) SetPayment(r Role, s PaymentStatus) {
	if r == RoleHost {
		e.HostPaymentStatus = s
		return
	}
	e.RequesterPaymentStatus = s
}

func (e *Exchange) Identity(r Role) VerificationStatus {
	if r == RoleHost {
		return e.HostIdentityStatus
	}
	return e.RequesterIdentityStatus
}

func (e *Exchange) SetIdentity(r Role, s VerificationStatus) {
	if r == RoleHost {
		e.HostIdentityStatus = s
		return
	}
	e.RequesterIdentityStatus = s
}

func (e *Exchange) PaymentSession(r Role) *string {
	if r == RoleHost {
		return e.HostPaymentSessionID
	}
	return e.RequesterPaymentSessionID
}

func (e *Exchange) SetPaymentSession(r Role, id string) {
	if r == RoleHost {
		e.HostPaymentSessionID = &id
		return
	}
	e.RequesterPaymentSessionID = &id
}

func (e *Exchange) BothConfirmed() bool { return e.RequesterConfirmed && e.HostConfirmed }
