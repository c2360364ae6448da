package httptransport

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/miltonyano/gostack-gobarber/internal/apperror"
	"github.com/miltonyano/gostack-gobarber/internal/service/users"
	"github.com/miltonyano/gostack-gobarber/internal/storage"
)

const maxAvatarSize = 5 << 20

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "POST /users"))

	var req createUserRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(log, w, err)
		return
	}

	u, err := h.users.Create(r.Context(), users.CreateInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(log, w, err)
		return
	}

	log.Info("user created", zap.String("user_id", u.ID.String()))
	writeJSON(w, http.StatusOK, h.toUser(u))
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "POST /sessions"))

	var req sessionRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(log, w, err)
		return
	}

	u, token, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: h.toUser(u), Token: token})
}

func (h *handler) updateAvatar(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "PATCH /users/avatar"))

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Avatar file is too large.")
			return
		}
		writeError(log, w, apperror.Validation(`"avatar" is required`))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(log, w, apperror.Validation(`"avatar" is required`))
		return
	}
	defer file.Close()

	u, err := h.users.UpdateAvatar(r.Context(), userIDFrom(r.Context()), storage.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeError(log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toUser(u))
}

func (h *handler) showProfile(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "GET /profile"))

	u, err := h.users.ShowProfile(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toUser(u))
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "PUT /profile"))

	var req updateProfileRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(log, w, err)
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), users.UpdateProfileInput{
		UserID:      userIDFrom(r.Context()),
		Name:        req.Name,
		Email:       req.Email,
		OldPassword: req.OldPassword,
		Password:    req.Password,
	})
	if err != nil {
		writeError(log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toUser(u))
}

func (h *handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "POST /password/forgot"))

	var req forgotPasswordRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(log, w, err)
		return
	}
	if err := h.users.SendForgotPasswordEmail(r.Context(), req.Email); err != nil {
		writeError(log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("route", "POST /password/reset"))

	var req resetPasswordRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(log, w, err)
		return
	}
	token, err := uuid.Parse(req.Token)
	if err != nil {
		writeError(log, w, apperror.Validation(`"token" must be a valid GUID`))
		return
	}
	if err := h.users.ResetPassword(r.Context(), token, req.Password); err != nil {
		writeError(log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
