package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/awesome-pro/subtrack/pkg/db/models"
	"github.com/awesome-pro/subtrack/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID                 uuid.UUID                `json:"id"`
	Email              string                   `json:"email"`
	FirstName          string                   `json:"first_name"`
	LastName           string                   `json:"last_name"`
	Phone              *string                  `json:"phone,omitempty"`
	IsActive           bool                     `json:"is_active"`
	LastLoginAt        *time.Time               `json:"last_login_at,omitempty"`
	SubscriptionStatus enums.SubscriptionStatus `json:"subscription_status"`
	IsOnTrial          bool                     `json:"is_on_trial"`
	TrialStartDate     *time.Time               `json:"trial_start_date,omitempty"`
	TrialEndDate       *time.Time               `json:"trial_end_date,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	IsActive     *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:                 u.ID,
		Email:              u.Email,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		Phone:              u.Phone,
		IsActive:           u.IsActive,
		LastLoginAt:        u.LastLoginAt,
		SubscriptionStatus: u.SubscriptionStatus,
		IsOnTrial:          u.IsOnTrial,
		TrialStartDate:     u.TrialStartDate,
		TrialEndDate:       u.TrialEndDate,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	return &models.User{
		ID:                 uuid.New(),
		Email:              c.Email,
		PasswordHash:       c.PasswordHash,
		FirstName:          c.FirstName,
		LastName:           c.LastName,
		Phone:              c.Phone,
		IsActive:           isActive,
		SubscriptionStatus: enums.SubscriptionStatusInactive,
	}
}
