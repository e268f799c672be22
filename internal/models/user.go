package models

import "time"

// User is a school administrator stored in the users table.
type User struct {
	ID             string     `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	Role           Role       `db:"role" json:"role"`
	SchoolID       string     `db:"school_id" json:"schoolId"`
	ResetOTPHash   *string    `db:"reset_otp_hash" json:"-"`
	ResetOTPExpiry *time.Time `db:"reset_otp_expiry" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

// Identity is returned by a successful login. No token is issued.
type Identity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	SchoolID   string `json:"schoolId"`
	SchoolName string `json:"schoolName"`
}
