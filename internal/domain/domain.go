package domain

import (
	"github.com/shopspring/decimal"

	"laborline/internal/geo"
)

type Role string

const (
	RoleContractor Role = "CONTRACTOR"
	RoleLabor      Role = "LABOR"
	RoleConsumer   Role = "CONSUMER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleContractor, RoleLabor, RoleConsumer:
		return true
	}
	return false
}

type Availability string

const (
	Available  Availability = "AVAILABLE"
	Offline    Availability = "OFFLINE"
	OnContract Availability = "ON_CONTRACT"
)

func (a Availability) Valid() bool {
	switch a {
	case Available, Offline, OnContract:
		return true
	}
	return false
}

type WageType string

const (
	WageDaily  WageType = "DAILY"
	WageHourly WageType = "HOURLY"
)

func (w WageType) Valid() bool {
	return w == WageDaily || w == WageHourly
}

type SessionStatus string

const (
	SessionActive          SessionStatus = "ACTIVE"
	SessionPendingApproval SessionStatus = "PENDING_APPROVAL"
	SessionApproved        SessionStatus = "APPROVED"
	SessionDisputed        SessionStatus = "DISPUTED"
)

type GigStatus string

const (
	GigRequested      GigStatus = "REQUESTED"
	GigAccepted       GigStatus = "ACCEPTED"
	GigInProgress     GigStatus = "IN_PROGRESS"
	GigPendingPayment GigStatus = "PENDING_PAYMENT"
	GigCompleted      GigStatus = "COMPLETED"
	GigCancelled      GigStatus = "CANCELLED"
)

// ActiveGigStatuses are the states in which a gig blocks its laborer and
// consumer from opening another one. PENDING_PAYMENT does not block: the
// worker is free again once the invoice is submitted.
func ActiveGigStatuses() []GigStatus {
	return []GigStatus{GigRequested, GigAccepted, GigInProgress}
}

func (s GigStatus) Terminal() bool {
	return s == GigCompleted || s == GigCancelled
}

type PaymentMethod string

const (
	PaymentPending PaymentMethod = "PENDING"
	PaymentCash    PaymentMethod = "CASH"
	PaymentOnline  PaymentMethod = "ONLINE"
)

// Actor is any party on the platform: contractor, laborer or consumer.
// Status and Position are only meaningful for laborers.
type Actor struct {
	ID           string        `json:"id"`
	Phone        string        `json:"phone"`
	PasswordHash string        `json:"-"`
	Role         Role          `json:"role"`
	FirstName    string        `json:"first_name,omitempty"`
	LastName     string        `json:"last_name,omitempty"`
	Rating       *float64      `json:"rating,omitempty"`
	Verified     bool          `json:"verified"`
	Status       Availability  `json:"status"`
	Position     *geo.Position `json:"position,omitempty"`
	Skills       []string      `json:"skills,omitempty"`
	CreatedAt    string        `json:"created_at" format:"date-time"`
}

// Project is a fixed job site owned by one contractor. Its position never
// changes after creation.
type Project struct {
	ID           string       `json:"id"`
	ContractorID string       `json:"contractor_id"`
	Name         string       `json:"name"`
	Address      string       `json:"address"`
	Position     geo.Position `json:"position"`
	CreatedAt    string       `json:"created_at" format:"date-time"`
}

// Assignment binds a laborer to a project with an agreed wage contract.
// At most one exists per (project, laborer) pair.
type Assignment struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	LaborerID string          `json:"laborer_id"`
	WageRate  decimal.Decimal `json:"wage_rate"`
	WageType  WageType        `json:"wage_type"`
	CreatedAt string          `json:"created_at" format:"date-time"`
}

// WorkSession is one attendance interval of a laborer at a project.
// CheckOutAt and WageEarned are nil while the session is open; a laborer
// has at most one open session at any time.
type WorkSession struct {
	ID         string           `json:"id"`
	ProjectID  string           `json:"project_id"`
	LaborerID  string           `json:"laborer_id"`
	CheckInAt  string           `json:"check_in_at" format:"date-time"`
	CheckOutAt *string          `json:"check_out_at,omitempty" format:"date-time"`
	WageEarned *decimal.Decimal `json:"wage_earned,omitempty"`
	Status     SessionStatus    `json:"status"`
}

// Open reports whether the session has not been checked out yet.
func (s WorkSession) Open() bool { return s.CheckOutAt == nil }

// Gig is a single-visit service transaction between one consumer and one
// laborer. PlatformFee + LaborerPayout == VisitingCharge; TotalAmount starts
// at VisitingCharge and may grow at invoicing.
type Gig struct {
	ID             string          `json:"id"`
	ConsumerID     string          `json:"consumer_id"`
	LaborerID      string          `json:"laborer_id"`
	Status         GigStatus       `json:"status"`
	Skill          string          `json:"skill"`
	Position       geo.Position    `json:"position"`
	Address        string          `json:"address"`
	VisitingCharge decimal.Decimal `json:"visiting_charge"`
	PlatformFee    decimal.Decimal `json:"platform_fee"`
	LaborerPayout  decimal.Decimal `json:"laborer_payout"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	Rating         *int            `json:"rating,omitempty"`
	CreatedAt      string          `json:"created_at" format:"date-time"`
	AcceptedAt     *string         `json:"accepted_at,omitempty" format:"date-time"`
	WorkStartedAt  *string         `json:"work_started_at,omitempty" format:"date-time"`
	CompletedAt    *string         `json:"completed_at,omitempty" format:"date-time"`
	PaidAt         *string         `json:"paid_at,omitempty" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
