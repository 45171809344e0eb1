package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"type:char(36);not null;uniqueIndex:uniq_users_tenant_username,priority:1" json:"tenant_id"`
	Username  string    `gorm:"size:100;not null;uniqueIndex:uniq_users_tenant_username,priority:2" json:"username" binding:"required"`
	Name      string    `gorm:"size:255" json:"name"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      UserRole  `gorm:"type:char(1);not null;default:'C'" json:"role"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name"`
	Password string   `json:"password" binding:"required"`
	Role     UserRole `json:"role"`
}

func hashAdminPassword(plain string) (string, error) {
	hashed, err := utils.HashPassword(plain)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CreateUser(ctx context.Context, tenantId string, input *NewUser) (*User, error) {
	db := config.GetDB()

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	role := input.Role
	if role == "" {
		role = UserRoleCashier
	}

	user := User{
		TenantId: tenantId,
		Username: input.Username,
		Name:     input.Name,
		Password: string(hashed),
		Role:     role,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type LoginInput struct {
	TenantId string `json:"tenant_id" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Login verifies the credentials and issues a session token. The token is the
// redis key; the session middleware resolves it back to the user on every
// request.
func Login(ctx context.Context, input *LoginInput) (*LoginResult, error) {
	db := config.GetDB()

	var user User
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND username = ?", input.TenantId, input.Username).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if user.IsActive != nil && !*user.IsActive {
		return nil, errors.New("user is inactive")
	}
	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		return nil, errors.New("invalid credentials")
	}

	jwtToken, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	sessionKey := uuid.New().String()
	session := SessionInfo{
		TenantId: user.TenantId,
		UserId:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Jwt:      jwtToken,
	}
	if err := config.SetRedisObject("Token:"+sessionKey, &session, sessionTTL()); err != nil {
		return nil, err
	}

	return &LoginResult{Token: sessionKey, User: &user}, nil
}

type SessionInfo struct {
	TenantId string   `json:"tenant_id"`
	UserId   int      `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	Jwt      string   `json:"jwt"`
}

func sessionTTL() time.Duration {
	return 24 * time.Hour
}

func GetSession(token string) (*SessionInfo, error) {
	var session SessionInfo
	exists, err := config.GetRedisObject("Token:"+token, &session)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.New("session not found")
	}
	return &session, nil
}
