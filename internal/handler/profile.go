package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abp0107/whatsapp-clone/internal/apperr"
	"github.com/abp0107/whatsapp-clone/internal/middleware"
	"github.com/abp0107/whatsapp-clone/internal/model"
	"github.com/abp0107/whatsapp-clone/internal/service"
)

// multipartOverhead — запас на заголовки частей и границы multipart сверх размера фото.
const multipartOverhead = 16 << 10

type ProfileHandler struct {
	profiles      *service.ProfileService
	maxPhotoBytes int64
}

func NewProfileHandler(profiles *service.ProfileService, maxPhotoBytes int) *ProfileHandler {
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = service.DefaultMaxPhotoBytes
	}
	return &ProfileHandler{profiles: profiles, maxPhotoBytes: int64(maxPhotoBytes)}
}

type profileResponse struct {
	*service.ProfileForm
	Notice string `json:"notice,omitempty"`
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	form, err := h.profiles.Load(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, "profile.Get", err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{ProfileForm: form})
}

// Update сохраняет девять полей формы. Фото меняется только через PUT .../photo.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.ProfileUpdate
	if !decodeJSON(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	form, err := h.profiles.Save(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeAppError(w, "profile.Update", err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{ProfileForm: form, Notice: service.NoticeProfileUpdated})
}

// UploadPhoto принимает multipart (поле photo) или сырое тело с картинкой.
func (h *ProfileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	data, err := h.readPhoto(w, r)
	if tooLarge := new(http.MaxBytesError); errors.As(err, &tooLarge) {
		writeAppError(w, "profile.UploadPhoto", h.profiles.PhotoTooLarge())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}
	if err := h.profiles.ReplacePhoto(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), data); err != nil {
		writeAppError(w, "profile.UploadPhoto", err)
		return
	}
	writeJSON(w, http.StatusOK, noticeResponse{Notice: service.NoticePhotoUpdated})
}

// readPhoto читает не больше maxPhotoBytes+1 байт: превышение лимита отклонит сервис.
// Тело multipart целиком ограничено MaxBytesReader, иначе ParseMultipartForm сбрасывает остаток во временные файлы.
func (h *ProfileHandler) readPhoto(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := h.maxPhotoBytes + 1
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
		if err := r.ParseMultipartForm(limit); err != nil {
			return nil, err
		}
		file, _, err := r.FormFile("photo")
		if err == http.ErrMissingFile {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, limit))
	}
	return io.ReadAll(io.LimitReader(r.Body, limit))
}

func (h *ProfileHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.profiles.Photo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			writeError(w, http.StatusNotFound, "photo not found")
			return
		}
		writeAppError(w, "profile.GetPhoto", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=60")
	_, _ = w.Write(data)
}
