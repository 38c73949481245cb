package domain

import "time"

type UserType string

const (
	UserTypeCustomer UserType = "Cliente"
	UserTypeSeller   UserType = "Vendedor"
	UserTypeAdmin    UserType = "Administrador"
)

func (t UserType) Staff() bool {
	return t == UserTypeSeller || t == UserTypeAdmin
}

type User struct {
	ID                 string    `json:"id"`
	RUT                string    `json:"rut"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"passwordHash,omitempty"`
	Birthdate          string    `json:"birthdate"`
	UserType           UserType  `json:"userType"`
	Region             string    `json:"region"`
	Comuna             string    `json:"comuna"`
	Address            string    `json:"address"`
	DiscountPercentage *float64  `json:"discountPercentage,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	Version            int64     `json:"version"`
}

// Public strips the password hash before the user leaves the process.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
