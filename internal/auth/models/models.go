package models

import "strings"

// User is a registered account. PasswordHash is persisted as "password" so
// existing users.json files stay readable; it never leaves the service in an
// API response (see Public).
type User struct {
	ID              string           `json:"id"`
	Email           string           `json:"email"`
	Name            string           `json:"name"`
	Phone           string           `json:"phone,omitempty"`
	NotifyBySMS     bool             `json:"notifyBySMS,omitempty"`
	IsVerified      bool             `json:"isVerified"`
	PasswordHash    string           `json:"password"`
	TrustedContacts []TrustedContact `json:"trustedContacts"`
}

// TrustedContact is someone the user wants alerted. The list is always
// replaced wholesale.
type TrustedContact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// PublicUser is the user without credentials.
type PublicUser struct {
	ID              string           `json:"id"`
	Email           string           `json:"email"`
	Name            string           `json:"name"`
	Phone           string           `json:"phone,omitempty"`
	NotifyBySMS     bool             `json:"notifyBySMS,omitempty"`
	IsVerified      bool             `json:"isVerified"`
	TrustedContacts []TrustedContact `json:"trustedContacts"`
}

// Public strips the password hash.
func (u *User) Public() *PublicUser {
	contacts := u.TrustedContacts
	if contacts == nil {
		contacts = []TrustedContact{}
	}
	return &PublicUser{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Phone:           u.Phone,
		NotifyBySMS:     u.NotifyBySMS,
		IsVerified:      u.IsVerified,
		TrustedContacts: contacts,
	}
}

// NormalizeEmail is the form emails are compared and stored in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Clone returns a deep copy so stores never share contact slices with callers.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.TrustedContacts != nil {
		c.TrustedContacts = make([]TrustedContact, len(u.TrustedContacts))
		copy(c.TrustedContacts, u.TrustedContacts)
	}
	return &c
}
