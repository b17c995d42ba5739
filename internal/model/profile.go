package model

import (
	"strings"
	"time"
)

// DefaultStatus подставляется в форму, если пользователь ещё не задал статус.
const DefaultStatus = "Hey there! I am using the app."

// Profile — документ пользователя. Создаётся вне этого сервиса (регистрация).
type Profile struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	CompanyName string    `json:"company_name"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Zipcode     string    `json:"zipcode"`
	Status      string    `json:"status"`
	PhotoBase64 string    `json:"profile_photo_base64,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FullName — «Имя Фамилия» без лишних пробелов.
func (p *Profile) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// ProfileUpdate — набор редактируемых полей. Сохраняется только он, остальное в документе не трогается.
type ProfileUpdate struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zipcode     string `json:"zipcode"`
	Status      string `json:"status"`
}

// ProfileField описывает одно поле формы: ключ хранения, подпись и значение.
type ProfileField struct {
	Key   string
	Label string
	Value string
}

// Fields возвращает поля в порядке формы. Ключи совпадают с именами полей документа.
func (u ProfileUpdate) Fields() []ProfileField {
	return []ProfileField{
		{"first_name", "First Name", u.FirstName},
		{"last_name", "Last Name", u.LastName},
		{"company_name", "Company Name", u.CompanyName},
		{"phone", "Phone", u.Phone},
		{"address", "Address", u.Address},
		{"city", "City", u.City},
		{"state", "State", u.State},
		{"zipcode", "Zipcode", u.Zipcode},
		{"status", "Bio", u.Status},
	}
}

// Trimmed возвращает копию с обрезанными пробелами по краям.
func (u ProfileUpdate) Trimmed() ProfileUpdate {
	return ProfileUpdate{
		FirstName:   strings.TrimSpace(u.FirstName),
		LastName:    strings.TrimSpace(u.LastName),
		CompanyName: strings.TrimSpace(u.CompanyName),
		Phone:       strings.TrimSpace(u.Phone),
		Address:     strings.TrimSpace(u.Address),
		City:        strings.TrimSpace(u.City),
		State:       strings.TrimSpace(u.State),
		Zipcode:     strings.TrimSpace(u.Zipcode),
		Status:      strings.TrimSpace(u.Status),
	}
}

// Apply переносит отредактированные поля в профиль.
func (p *Profile) Apply(u ProfileUpdate) {
	p.FirstName = u.FirstName
	p.LastName = u.LastName
	p.CompanyName = u.CompanyName
	p.Phone = u.Phone
	p.Address = u.Address
	p.City = u.City
	p.State = u.State
	p.Zipcode = u.Zipcode
	p.Status = u.Status
}

// ContactOverride — имя, под которым владелец сохранил собеседника.
type ContactOverride struct {
	OwnerID string `json:"owner_id"`
	PeerID  string `json:"peer_id"`
	Name    string `json:"name"`
}
