package auth

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type workerTokenRequest struct {
	WorkerID     string `json:"worker_id"`
	WorkerSecret string `json:"worker_secret"`
}

type workerTokenResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt   string `json:"expires_at" example:"2026-01-15T11:00:00Z"`
}

const defaultWorkerTokenTTL = time.Hour

// WorkerTokenHandler issues a short-lived JWT to a Scrape Worker after
// validating its id/secret against WORKER_ID/WORKER_SECRET.
//
// @Summary      Worker token issuance
// @Description  ワーカーIDとシークレットを検証し、ワーカー用のJWTトークンを発行します
// @Tags         internal
// @Accept       json
// @Produce      json
// @Param        request body workerTokenRequest true "ワーカー認証情報"
// @Success      200 {object} workerTokenResponse
// @Failure      400 {string} string "リクエストが不正"
// @Failure      401 {string} string "認証失敗"
// @Router       /internal/workers/token [post]
func WorkerTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req workerTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if !validWorkerCredentials(req.WorkerID, req.WorkerSecret) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		secret := []byte(os.Getenv("JWT_SECRET"))
		expiresAt := time.Now().Add(workerTokenTTL()).UTC()

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  req.WorkerID,
			"role": "worker",
			"exp":  expiresAt.Unix(),
		})

		signed, err := token.SignedString(secret)
		if err != nil {
			http.Error(w, "token generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(workerTokenResponse{
			AccessToken: signed,
			ExpiresAt:   expiresAt.Format(time.RFC3339),
		}); err != nil {
			log.Printf("auth: failed to encode worker token response: %v", err)
		}
	}
}

// validWorkerCredentials compares against WORKER_ID/WORKER_SECRET in
// constant time.
func validWorkerCredentials(workerID, workerSecret string) bool {
	expectedID := os.Getenv("WORKER_ID")
	expectedSecret := os.Getenv("WORKER_SECRET")
	if expectedID == "" || expectedSecret == "" {
		return false
	}
	idMatch := subtle.ConstantTimeCompare([]byte(workerID), []byte(expectedID)) == 1
	secretMatch := subtle.ConstantTimeCompare([]byte(workerSecret), []byte(expectedSecret)) == 1
	return idMatch && secretMatch
}

func workerTokenTTL() time.Duration {
	raw := os.Getenv("WORKER_TOKEN_TTL_SECONDS")
	if raw == "" {
		return defaultWorkerTokenTTL
	}
	seconds, err := time.ParseDuration(raw + "s")
	if err != nil || seconds <= 0 {
		return defaultWorkerTokenTTL
	}
	return seconds
}
