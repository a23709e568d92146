package models

import (
	"context"
	"errors"
	"strings"

	"github.com/buretifund/bursary_backend/config"
	"github.com/buretifund/bursary_backend/utils"
	"gorm.io/gorm"
)

// User is the authenticated principal. The allocation subsystem treats
// it as an opaque actor reference for audit fields; authorization is a
// role lookup, never a duck-typed attribute check.
type User struct {
	ID           int      `gorm:"primary_key" json:"id"`
	Username     string   `gorm:"size:150;uniqueIndex;not null" json:"username" binding:"required"`
	Email        string   `gorm:"size:254;uniqueIndex;not null" json:"email" binding:"required"`
	FirstName    string   `gorm:"size:150" json:"first_name"`
	LastName     string   `gorm:"size:150" json:"last_name"`
	Password     string   `gorm:"size:128;not null" json:"-"`
	Phone        string   `gorm:"size:20" json:"phone"`
	Role         UserRole `gorm:"size:20;not null;default:'public'" json:"role"`
	Ward         string   `gorm:"size:100" json:"ward"`
	County       string   `gorm:"size:100;default:'Kericho'" json:"county"`
	Constituency string   `gorm:"size:100;default:'Bureti'" json:"constituency"`
	IsActive     *bool    `gorm:"not null;default:true" json:"is_active"`
	IsVerified   *bool    `gorm:"not null;default:false" json:"is_verified"`
}

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

type NewUser struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password" binding:"required,min=8"`
	Phone     string `json:"phone"`
	Ward      string `json:"ward"`
}

func (input *NewUser) validate(ctx context.Context) error {
	if !utils.IsValidEmail(input.Email) {
		return utils.NewValidationError("email", "invalid email address")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return utils.NewValidationError("phone", "invalid phone number")
		}
	}
	if err := utils.ValidateUnique[User](ctx, "username", input.Username, 0); err != nil {
		return utils.NewValidationError("username", "username already taken")
	}
	if err := utils.ValidateUnique[User](ctx, "email", input.Email, 0); err != nil {
		return utils.NewValidationError("email", "email already registered")
	}
	return nil
}

// RegisterUser creates a public-role account. Elevated roles are
// granted out of band (seed-admin or an existing admin).
func RegisterUser(ctx context.Context, input *NewUser) (*User, error) {
	db := config.GetDB()

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Username:   input.Username,
		Email:      input.Email,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Password:   string(hashed),
		Phone:      input.Phone,
		Role:       UserRolePublic,
		Ward:       input.Ward,
		IsActive:   utils.NewTrue(),
		IsVerified: utils.NewFalse(),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// AuthenticateUser checks credentials against a username OR an email
// identifier and returns the active principal.
func AuthenticateUser(ctx context.Context, identifier string, password string) (*User, error) {
	db := config.GetDB()

	column := "username"
	if strings.Contains(identifier, "@") {
		column = "email"
	}

	var user User
	err := db.WithContext(ctx).Where(column+" = ?", identifier).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invalid credentials")
		}
		return nil, err
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, errors.New("invalid credentials")
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, errors.New("account is inactive")
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	return utils.FetchModel[User](ctx, id)
}

func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func ListUsers(ctx context.Context) ([]User, error) {
	db := config.GetDB()
	var users []User
	err := db.WithContext(ctx).Order("username").Find(&users).Error
	return users, err
}
