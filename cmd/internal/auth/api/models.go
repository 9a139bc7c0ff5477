package authapi

import (
	"time"

	"finapp/cmd/internal/auth/authsvc"
	"finapp/cmd/internal/auth/session"
)

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceInfo string `json:"device_info"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceInfo string `json:"device_info"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPairResponse struct {
	SessionID        string    `json:"session_id"`
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type refreshResponse struct {
	SessionID       string    `json:"session_id"`
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	IP        string    `json:"ip"`
	Device    string    `json:"device"`
	IsCurrent bool      `json:"is_current"`
}

type sessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func toTokenPairResponse(p authsvc.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		SessionID:        p.SessionID,
		AccessToken:      p.AccessToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshToken:     p.RefreshToken,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

func toSessionsResponse(infos []session.Info) sessionsResponse {
	out := sessionsResponse{Sessions: make([]sessionResponse, 0, len(infos))}
	for _, in := range infos {
		out.Sessions = append(out.Sessions, sessionResponse{
			ID:        in.ID,
			CreatedAt: in.CreatedAt,
			IP:        in.IP,
			Device:    in.Device,
			IsCurrent: in.IsCurrent,
		})
	}
	return out
}
