package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/Kyz7/requestdesk/internal/database"
	"github.com/Kyz7/requestdesk/internal/logging"
	"github.com/Kyz7/requestdesk/internal/models"
	"github.com/Kyz7/requestdesk/internal/response"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	googleMu          sync.RWMutex
	googleOauthConfig = &oauth2.Config{
		RedirectURL: "http://localhost:8080/v1/auth/google/callback",
		Scopes:      []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:    google.Endpoint,
	}
)

func configureGoogle(clientID, clientSecret, redirectURL string) {
	googleMu.Lock()
	defer googleMu.Unlock()
	googleOauthConfig.ClientID = clientID
	googleOauthConfig.ClientSecret = clientSecret
	if redirectURL != "" {
		googleOauthConfig.RedirectURL = redirectURL
	}
}

func oauthConfig() *oauth2.Config {
	googleMu.RLock()
	defer googleMu.RUnlock()
	cfg := *googleOauthConfig
	return &cfg
}

var (
	stateStore = make(map[string]time.Time)
	stateMutex sync.Mutex
)

func generateState() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

func storeState(state string) {
	stateMutex.Lock()
	defer stateMutex.Unlock()
	now := time.Now()
	stateStore[state] = now.Add(5 * time.Minute)

	for k, v := range stateStore {
		if now.After(v) {
			delete(stateStore, k)
		}
	}
}

func validateState(state string) bool {
	stateMutex.Lock()
	defer stateMutex.Unlock()

	expiry, exists := stateStore[state]
	if !exists || time.Now().After(expiry) {
		return false
	}
	delete(stateStore, state)
	return true
}

type googleProfile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func GoogleLogin(c *fiber.Ctx) error {
	cfg := oauthConfig()
	if cfg.ClientID == "" {
		return response.ServiceUnavailable(c, response.CodeServiceUnavailable, "Google login is not configured")
	}
	state := generateState()
	storeState(state)
	return c.Redirect(cfg.AuthCodeURL(state))
}

func GoogleCallback(c *fiber.Ctx) error {
	if !validateState(c.Query("state")) {
		return response.BadRequest(c, "Invalid state parameter", nil)
	}

	cfg := oauthConfig()
	ctx := context.Background()
	token, err := cfg.Exchange(ctx, c.Query("code"))
	if err != nil {
		logging.Component("auth").WithError(err).Warn("google token exchange failed")
		return response.InternalError(c, "Failed to exchange token")
	}

	resp, err := cfg.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return response.InternalError(c, "Failed to get user info")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response.InternalError(c, "Failed to get user info")
	}
	var profile googleProfile
	if err := json.Unmarshal(data, &profile); err != nil || profile.Email == "" {
		return response.InternalError(c, "Failed to get user info")
	}

	u, err := findOrCreateGoogleUser(profile)
	if err != nil {
		logging.Component("auth").WithError(err).Error("failed to create google user")
		return response.InternalError(c, "Failed to create user")
	}
	if u.Status == models.UserStatusSuspended {
		return response.Forbidden(c, "Account suspended")
	}

	accessToken, refreshToken, err := issueTokens(u)
	if err != nil {
		return response.InternalError(c, "Failed to generate tokens")
	}

	return response.Success(c, tokenResponse(u, accessToken, refreshToken), "Login successful")
}

// findOrCreateGoogleUser signs existing accounts in by email; first logins become clients.
func findOrCreateGoogleUser(p googleProfile) (*models.User, error) {
	var u models.User
	if err := database.DB.Where("email = ?", p.Email).First(&u).Error; err == nil {
		return &u, nil
	}

	u = models.User{
		Name:     p.Name,
		Email:    p.Email,
		Provider: "google",
		Role:     models.RoleClient,
		Status:   models.UserStatusActive,
	}
	if err := database.DB.Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
