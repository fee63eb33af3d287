package models

import "time"

// User & profile related models
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"` // bcrypt hash
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CreatedAt time.Time `json:"date_created"`
	UpdatedAt time.Time `json:"date_changed"`
}

func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

const (
	MembershipFreelancer = "freelancer"
	MembershipHirer      = "hirer"
)

// Profile classifies a user as freelancer or hirer and holds contact data.
type Profile struct {
	UserID         uint       `gorm:"primaryKey" json:"user"`
	User           User       `gorm:"foreignKey:UserID" json:"-"`
	Membership     string     `gorm:"not null" json:"membership"` // freelancer | hirer
	Phone          string     `json:"phone"`
	Country        string     `json:"country"`
	Region         string     `json:"region"`
	DateOfBirth    *time.Time `gorm:"type:date" json:"date_of_birth"`
	ProfilePicture string     `json:"profile_picture"`
}

func (p *Profile) IsFreelancer() bool { return p.Membership == MembershipFreelancer }
func (p *Profile) IsHirer() bool      { return p.Membership == MembershipHirer }
