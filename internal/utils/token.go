package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"time"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/pkg/errors"
)

const RefreshTokenTTL = 7 * 24 * time.Hour

var (
	ErrRefreshTokenInvalid = errors.New("invalid or expired refresh token")
	ErrAccountSuspended    = errors.New("account suspended")
)

// GenerateRefreshToken stores the hash of a fresh token for userID and returns the plain token.
func GenerateRefreshToken(userID uint) (string, error) {
	raw := RandomString(64)
	row := models.RefreshToken{
		UserID:    userID,
		TokenHash: HashToken(raw),
		ExpiresAt: time.Now().Add(RefreshTokenTTL),
	}
	if err := database.DB.Create(&row).Error; err != nil {
		return "", errors.Wrap(err, "store refresh token")
	}
	return raw, nil
}

// ValidateRefreshToken consumes the token: a valid token is revoked in the same statement.
func ValidateRefreshToken(userID uint, token string) bool {
	result := database.DB.Model(&models.RefreshToken{}).
		Where("user_id = ? AND token_hash = ? AND revoked = ? AND expires_at > ?",
			userID, HashToken(token), false, time.Now()).
		Update("revoked", true)

	return result.Error == nil && result.RowsAffected == 1
}

func RevokeRefreshTokens(userID uint) error {
	return database.DB.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

// RefreshTokenPair rotates oldToken into a new access and refresh token pair.
func RefreshTokenPair(userID uint, oldToken string) (*models.User, string, string, error) {
	if !ValidateRefreshToken(userID, oldToken) {
		return nil, "", "", ErrRefreshTokenInvalid
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return nil, "", "", ErrRefreshTokenInvalid
	}
	if user.Status == models.UserStatusSuspended {
		return nil, "", "", ErrAccountSuspended
	}

	access, err := GenerateJWT(user.ID, user.Role)
	if err != nil {
		return nil, "", "", errors.Wrap(err, "generate access token")
	}
	refresh, err := GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, "", "", err
	}
	return &user, access, refresh, nil
}

func RandomString(length int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	max := big.NewInt(int64(len(chars)))
	out := make([]byte, length)
	for i := range out {
		n, _ := rand.Int(rand.Reader, max)
		out[i] = chars[n.Int64()]
	}
	return string(out)
}

// HashToken is the hex sha256 used for refresh token lookups.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
