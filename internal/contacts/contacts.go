// Package contacts сопоставляет собеседника с адресной книгой устройства по номеру телефона.
package contacts

import "strings"

// SignificantDigits — сколько последних цифр номера сравнивается (без кода страны).
const SignificantDigits = 10

// Contact — запись адресной книги устройства.
type Contact struct {
	DisplayName string   `json:"display_name"`
	Phones      []string `json:"phones"`
}

// AddressBook — контакты, переданные клиентом. Пустая книга = доступа к контактам нет.
type AddressBook []Contact

// Match — найденный контакт и номер в том виде, как он записан на устройстве.
type Match struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Normalize оставляет только цифры и обрезает номер до последних SignificantDigits.
func Normalize(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > SignificantDigits {
		digits = digits[len(digits)-SignificantDigits:]
	}
	return digits
}

// Lookup возвращает первый контакт, у которого хотя бы один номер совпадает с peerPhone.
func (b AddressBook) Lookup(peerPhone string) (Match, bool) {
	want := Normalize(peerPhone)
	if want == "" {
		return Match{}, false
	}
	for _, c := range b {
		for _, p := range c.Phones {
			if Normalize(p) == want {
				return Match{Name: c.DisplayName, Phone: p}, true
			}
		}
	}
	return Match{}, false
}
