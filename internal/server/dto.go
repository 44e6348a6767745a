package server

import (
	"laborline/internal/domain"
	"laborline/internal/geo"
)

// Request payloads

type RegisterRequest struct {
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Role      string `json:"role" enum:"CONTRACTOR,LABOR,CONSUMER"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name,omitempty"`
	Skills    []string `json:"skills,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" enum:"AVAILABLE,OFFLINE"`
}

type CreateProjectRequest struct {
	Name     string       `json:"name"`
	Address  string       `json:"address,omitempty"`
	Position geo.Position `json:"position"`
}

type CreateAssignmentRequest struct {
	ProjectID string `json:"project_id"`
	LaborerID string `json:"laborer_id"`
	WageRate  string `json:"wage_rate" example:"800.00"`
	WageType  string `json:"wage_type" enum:"DAILY,HOURLY"`
}

type CheckInRequest struct {
	ProjectID string       `json:"project_id"`
	Position  geo.Position `json:"position"`
}

type RequestGigRequest struct {
	LaborerID string       `json:"laborer_id"`
	Skill     string       `json:"skill"`
	Position  geo.Position `json:"position"`
	Address   string       `json:"address"`
}

type InvoiceGigRequest struct {
	AdditionalAmount string `json:"additional_amount" example:"25.00"`
}

type PayGigRequest struct {
	Method string `json:"method" enum:"CASH,ONLINE"`
}

type RateGigRequest struct {
	Rating int `json:"rating" minimum:"1" maximum:"5"`
}

// Response payloads

type TokenResponse struct {
	Token string       `json:"token"`
	Actor domain.Actor `json:"actor"`
}
