package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/Kyz7/requestdesk/internal/config"
	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSuspended          = errors.New("account suspended")
	ErrInvalidResetToken  = errors.New("invalid or expired token")
)

const ResetTokenTTL = time.Hour

// Mailer sends the password reset message.
type Mailer interface {
	Send(to, subject, body string) error
}

type smtpMailer struct {
	host, port, user, password, from string
}

func (m smtpMailer) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, []byte(msg))
}

var (
	settingsMu    sync.RWMutex
	mailer        Mailer
	resetLinkBase = "http://localhost:3000/reset-password"
)

// Configure wires the SMTP mailer and the Google OAuth client from cfg.
func Configure(cfg *config.Config) {
	settingsMu.Lock()
	if cfg.SMTPHost != "" {
		mailer = smtpMailer{
			host:     cfg.SMTPHost,
			port:     cfg.SMTPPort,
			user:     cfg.SMTPUser,
			password: cfg.SMTPPassword,
			from:     cfg.SMTPFrom,
		}
	}
	if cfg.PublicBaseURL != "" {
		resetLinkBase = strings.TrimRight(cfg.PublicBaseURL, "/") + "/reset-password"
	}
	settingsMu.Unlock()

	configureGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
}

// SetMailer replaces the mailer; nil disables reset mail.
func SetMailer(m Mailer) {
	settingsMu.Lock()
	mailer = m
	settingsMu.Unlock()
}

func currentMailer() Mailer {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return mailer
}

// RegisterUser creates a client account.
func RegisterUser(name, email, password string) (*models.User, error) {
	var count int64
	database.DB.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := models.User{
		Name:     name,
		Email:    email,
		Password: hashedPassword,
		Provider: "local",
		Role:     models.RoleClient,
		Status:   models.UserStatusActive,
	}

	if err := database.DB.Create(&u).Error; err != nil {
		return nil, err
	}

	return &u, nil
}

func LoginUser(email, password string) (*models.User, string, string, error) {
	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, "", "", ErrInvalidCredentials
	}
	if user.Status == models.UserStatusSuspended {
		return nil, "", "", ErrSuspended
	}

	accessToken, refreshToken, err := issueTokens(&user)
	if err != nil {
		return nil, "", "", err
	}
	return &user, accessToken, refreshToken, nil
}

func issueTokens(u *models.User) (string, string, error) {
	accessToken, err := utils.GenerateJWT(u.ID, u.Role)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := utils.GenerateRefreshToken(u.ID)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// RequestPasswordReset stores a hashed one-hour token and mails the plain token. Unknown
// emails succeed silently.
func RequestPasswordReset(email string) error {
	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil
	}

	plainToken, tokenHash, err := generateSecureToken(32)
	if err != nil {
		return err
	}

	reset := models.ResetToken{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(ResetTokenTTL),
	}
	if err := database.DB.Create(&reset).Error; err != nil {
		return err
	}

	m := currentMailer()
	if m == nil {
		logging.Component("auth").WithField("user_id", user.ID).Warn("SMTP not configured, reset mail not sent")
		return nil
	}

	settingsMu.RLock()
	link := fmt.Sprintf("%s?token=%s", resetLinkBase, plainToken)
	settingsMu.RUnlock()

	if err := m.Send(user.Email, "Password Reset", "Click here to reset: "+link); err != nil {
		logging.Component("auth").WithError(err).WithField("user_id", user.ID).Error("failed to send reset mail")
	}
	return nil
}

// ResetPassword consumes the token, sets the new password and revokes refresh tokens.
func ResetPassword(token, newPassword string) error {
	var reset models.ResetToken
	if err := database.DB.Where("token_hash = ?", hashResetToken(token)).First(&reset).Error; err != nil {
		return ErrInvalidResetToken
	}

	if reset.Expired(time.Now()) {
		database.DB.Delete(&reset)
		return ErrInvalidResetToken
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", reset.UserID).Update("password", hashedPassword)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidResetToken
		}
		return tx.Delete(&reset).Error
	})
	if err != nil {
		return err
	}

	return utils.RevokeRefreshTokens(reset.UserID)
}

func generateSecureToken(n int) (string, string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token := base64.URLEncoding.EncodeToString(b)
	return token, hashResetToken(token), nil
}

func hashResetToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(hash[:])
}
