package handlers

import (
	"alumni-server/middleware"
	"alumni-server/services"
	"alumni-server/utils/errors"
	"encoding/json"
	stderrors "errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

type AuthHandler struct {
	userService    *services.UserService
	maxUploadBytes int64
}

func NewAuthHandler(userService *services.UserService, maxUploadBytes int64) *AuthHandler {
	return &AuthHandler{userService: userService, maxUploadBytes: maxUploadBytes}
}

func isJSON(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

// RegisterUser accepts multipart/form-data (with an optional "photo" file),
// a urlencoded form, or a JSON body without a photo.
func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var input services.RegisterInput
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			middleware.WriteError(w, r, errors.ErrValidation.WithMessage("Malformed JSON body"))
			return
		}
	} else {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case stderrors.As(err, &tooLarge):
				middleware.WriteError(w, r, errors.ErrValidation.WithMessage("Upload too large"))
				return
			case stderrors.Is(err, http.ErrNotMultipart):
				// ParseMultipartForm has already parsed a urlencoded body.
			default:
				middleware.WriteError(w, r, errors.ErrValidation.WithMessage("Malformed form body"))
				return
			}
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		input.Name = r.FormValue("name")
		input.Email = r.FormValue("email")
		input.Password = r.FormValue("password")
		if year := strings.TrimSpace(r.FormValue("graduationYear")); year != "" {
			n, err := strconv.Atoi(year)
			if err != nil {
				middleware.WriteError(w, r, errors.ErrValidation.WithMessage("graduationYear must be an integer"))
				return
			}
			input.GraduationYear = n
		}

		file, header, err := r.FormFile("photo")
		switch {
		case err == nil:
			defer file.Close()
			input.Photo = &services.PhotoUpload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Body:        file,
			}
		case stderrors.Is(err, http.ErrMissingFile), stderrors.Is(err, http.ErrNotMultipart):
		default:
			middleware.WriteError(w, r, errors.ErrValidation.WithMessage("Unreadable photo upload"))
			return
		}
	}

	result, err := h.userService.Register(r.Context(), input)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, result)
}

func (h *AuthHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, r, errors.ErrValidation.WithMessage("Malformed JSON body"))
		return
	}

	result, err := h.userService.Login(r.Context(), input)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}
