package models

import "time"

// Roles a user can hold. Buyer and seller are selectable at registration;
// admin accounts are provisioned out-of-band.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

type User struct {
	ID                  string    `bson:"_id" json:"id"`
	Name                string    `bson:"name" json:"name"`
	Email               string    `bson:"email" json:"email"`
	Password            string    `bson:"password" json:"-"`
	Role                string    `bson:"role" json:"role"`
	Phone               string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Address             string    `bson:"address,omitempty" json:"address,omitempty"`
	IsBanned            bool      `bson:"is_banned" json:"isBanned"`
	ResetPasswordToken  string    `bson:"reset_password_token,omitempty" json:"-"`
	ResetPasswordExpire time.Time `bson:"reset_password_expire,omitempty" json:"-"`
	CreatedAt           time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `bson:"updated_at" json:"updatedAt"`
}

// PublicUser is the contact-level projection embedded in joined responses.
type PublicUser struct {
	ID       string `bson:"_id" json:"id"`
	Name     string `bson:"name" json:"name"`
	Email    string `bson:"email" json:"email"`
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
	Address  string `bson:"address,omitempty" json:"address,omitempty"`
	Role     string `bson:"role" json:"role"`
	IsBanned bool   `bson:"is_banned" json:"isBanned"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Phone:    u.Phone,
		Address:  u.Address,
		Role:     u.Role,
		IsBanned: u.IsBanned,
	}
}
