package httptransport

import (
	"time"

	"github.com/google/uuid"

	"github.com/miltonyano/gostack-gobarber/internal/domain"
)

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    *string   `json:"avatar"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *handler) toUser(u domain.User) userResponse {
	out := userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.Avatar != nil && *u.Avatar != "" {
		url := h.avatarURL(*u.Avatar)
		out.AvatarURL = &url
	}
	return out
}

func (h *handler) toUsers(us []domain.User) []userResponse {
	out := make([]userResponse, 0, len(us))
	for _, u := range us {
		out = append(out, h.toUser(u))
	}
	return out
}

type appointmentResponse struct {
	ID         uuid.UUID     `json:"id"`
	ProviderID uuid.UUID     `json:"provider_id"`
	UserID     uuid.UUID     `json:"user_id"`
	Date       time.Time     `json:"date"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	User       *userResponse `json:"user,omitempty"`
}

func (h *handler) toAppointment(a domain.Appointment) appointmentResponse {
	out := appointmentResponse{
		ID:         a.ID,
		ProviderID: a.ProviderID,
		UserID:     a.UserID,
		Date:       a.Date,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
	if a.User != nil {
		u := h.toUser(*a.User)
		out.User = &u
	}
	return out
}

type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

type sessionRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name                 string `json:"name" validate:"required,notblank"`
	Email                string `json:"email" validate:"required,email"`
	OldPassword          string `json:"old_password"`
	Password             string `json:"password" validate:"omitempty,max=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token                string `json:"token" validate:"required,uuid"`
	Password             string `json:"password" validate:"required,max=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

type createAppointmentRequest struct {
	ProviderID string    `json:"provider_id" validate:"required,uuid"`
	Date       time.Time `json:"date" validate:"required"`
}
