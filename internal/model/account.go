package model

import (
	"context"
	"time"
)

// MaxEmailLength is the longest email an account may carry.
const MaxEmailLength = 254

// AccountStore defines persistence operations for accounts.
// Insert must enforce email uniqueness and report violations as ErrAlreadyExists.
// Update writes only the non-nil fields of update in one atomic step, so
// concurrent updates of different fields never overwrite each other.
type AccountStore interface {
	Insert(ctx context.Context, account Account) (Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	Update(ctx context.Context, id int64, update AccountUpdate, updatedAt time.Time) (Account, error)
}

// Account represents a stored user identity with its credential digest.
type Account struct {
	ID             int64
	Email          string
	CredentialHash string
	GivenName      string
	FamilyName     string
	Active         bool
	Verified       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLoginAt    *time.Time
}

// Profile holds optional account attributes supplied at registration.
type Profile struct {
	GivenName  string
	FamilyName string
}

// AccountUpdate lists the mutable account fields. Nil fields are left untouched.
type AccountUpdate struct {
	GivenName      *string
	FamilyName     *string
	Active         *bool
	Verified       *bool
	CredentialHash *string
	LastLoginAt    *time.Time
}

// AccountView is the account as shown outside the hashing boundary.
type AccountView struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	GivenName   string     `json:"given_name,omitempty"`
	FamilyName  string     `json:"family_name,omitempty"`
	Active      bool       `json:"active"`
	Verified    bool       `json:"verified"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// View strips the credential digest.
func (a Account) View() AccountView {
	return AccountView{
		ID:          a.ID,
		Email:       a.Email,
		GivenName:   a.GivenName,
		FamilyName:  a.FamilyName,
		Active:      a.Active,
		Verified:    a.Verified,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}

// Apply copies the non-nil fields of u onto a.
func (u AccountUpdate) Apply(a *Account) {
	if u.GivenName != nil {
		a.GivenName = *u.GivenName
	}
	if u.FamilyName != nil {
		a.FamilyName = *u.FamilyName
	}
	if u.Active != nil {
		a.Active = *u.Active
	}
	if u.Verified != nil {
		a.Verified = *u.Verified
	}
	if u.CredentialHash != nil {
		a.CredentialHash = *u.CredentialHash
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		a.LastLoginAt = &t
	}
}
