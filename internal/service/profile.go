package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abp0107/whatsapp-clone/internal/apperr"
	"github.com/abp0107/whatsapp-clone/internal/model"
)

const (
	NoticeProfileUpdated = "Profile updated successfully"
	NoticePhotoUpdated   = "Profile photo updated"

	// DefaultMaxPhotoBytes — фото хранится строкой внутри документа, поэтому размер ограничен.
	DefaultMaxPhotoBytes = 512 << 10
)

type ProfileService struct {
	store         ProfileStore
	maxPhotoBytes int
}

// NewProfileService: maxPhotoBytes <= 0 — DefaultMaxPhotoBytes.
func NewProfileService(store ProfileStore, maxPhotoBytes int) *ProfileService {
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = DefaultMaxPhotoBytes
	}
	return &ProfileService{store: store, maxPhotoBytes: maxPhotoBytes}
}

// ProfileForm — значения для формы редактирования.
type ProfileForm struct {
	ID string `json:"id"`
	model.ProfileUpdate
	PhotoBase64 string    `json:"profile_photo_base64,omitempty"`
	Editable    bool      `json:"editable"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Load читает профиль в форму. Пустой статус заменяется текстом по умолчанию.
func (s *ProfileService) Load(ctx context.Context, viewerID, id string) (*ProfileForm, error) {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("profile.Load: %w", err)
	}
	form := &ProfileForm{
		ID: p.ID,
		ProfileUpdate: model.ProfileUpdate{
			FirstName:   p.FirstName,
			LastName:    p.LastName,
			CompanyName: p.CompanyName,
			Phone:       p.Phone,
			Address:     p.Address,
			City:        p.City,
			State:       p.State,
			Zipcode:     p.Zipcode,
			Status:      p.Status,
		},
		PhotoBase64: p.PhotoBase64,
		Editable:    viewerID == p.ID,
		UpdatedAt:   p.UpdatedAt,
	}
	if strings.TrimSpace(form.Status) == "" {
		form.Status = model.DefaultStatus
	}
	return form, nil
}

// Validate возвращает *apperr.ValidationError с "Enter <Label>" для каждого пустого поля.
func Validate(u model.ProfileUpdate) error {
	ve := &apperr.ValidationError{}
	for _, f := range u.Fields() {
		if strings.TrimSpace(f.Value) == "" {
			ve.Add(f.Key, "Enter "+f.Label)
		}
	}
	return ve.OrNil()
}

// Save — частичное обновление: пишутся ровно девять полей формы, фото и прочее не трогаются.
// Редактировать может только владелец. При ошибке валидации записи нет.
func (s *ProfileService) Save(ctx context.Context, viewerID, id string, u model.ProfileUpdate) (*ProfileForm, error) {
	if viewerID != id {
		return nil, apperr.ErrPermissionDenied
	}
	u = u.Trimmed()
	if err := Validate(u); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProfile(ctx, id, u); err != nil {
		return nil, fmt.Errorf("profile.Save: %w", err)
	}
	return s.Load(ctx, viewerID, id)
}

// PhotoTooLarge — ошибка валидации для фото больше лимита.
func (s *ProfileService) PhotoTooLarge() error {
	ve := &apperr.ValidationError{}
	ve.Add("photo", fmt.Sprintf("Image must be at most %d KB", s.maxPhotoBytes>>10))
	return ve
}

// ReplacePhoto сразу сохраняет новое фото отдельной записью, независимо от Save.
func (s *ProfileService) ReplacePhoto(ctx context.Context, viewerID, id string, data []byte) error {
	if viewerID != id {
		return apperr.ErrPermissionDenied
	}
	ve := &apperr.ValidationError{}
	switch {
	case len(data) == 0:
		ve.Add("photo", "Select an image")
	case len(data) > s.maxPhotoBytes:
		return s.PhotoTooLarge()
	case !strings.HasPrefix(http.DetectContentType(data), "image/"):
		ve.Add("photo", "Selected file is not an image")
	}
	if err := ve.OrNil(); err != nil {
		return err
	}
	if err := s.store.SetProfilePhoto(ctx, id, base64.StdEncoding.EncodeToString(data)); err != nil {
		return fmt.Errorf("profile.ReplacePhoto: %w", err)
	}
	return nil
}

// Photo декодирует сохранённое фото. Нет фото — apperr.ErrNotFound.
func (s *ProfileService) Photo(ctx context.Context, id string) ([]byte, string, error) {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("profile.Photo: %w", err)
	}
	if p.PhotoBase64 == "" {
		return nil, "", apperr.ErrNotFound
	}
	data, err := base64.StdEncoding.DecodeString(p.PhotoBase64)
	if err != nil {
		return nil, "", fmt.Errorf("profile.Photo decode: %w", err)
	}
	return data, http.DetectContentType(data), nil
}
