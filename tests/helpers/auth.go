package helpers

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"testing"
)

func randInt(max int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	return int(n.Int64())
}

// GeneratePassword generates a 10 character password with a capital and special char
func GeneratePassword() string {
	const (
		lower   = "abcdefghijklmnopqrstuvwxyz"
		upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
		special = "!@#$%^&*"
		numbers = "0123456789"
		all     = lower + upper + special + numbers
	)

	password := make([]byte, 10)
	password[0] = upper[randInt(len(upper))]
	password[1] = special[randInt(len(special))]
	password[2] = numbers[randInt(len(numbers))]

	for i := 3; i < 10; i++ {
		password[i] = all[randInt(len(all))]
	}

	for i := range password {
		j := randInt(len(password))
		password[i], password[j] = password[j], password[i]
	}

	return string(password)
}

type authEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"_id"`
		} `json:"user"`
	} `json:"data"`
	Message string `json:"message"`
}

// AcquireAccount registers and logs in against a running server, returning
// the user id and a bearer token.
func AcquireAccount(t *testing.T, baseURL, username, password string) (userID, token string) {
	t.Helper()

	registerBody, _ := json.Marshal(map[string]interface{}{
		"username": username,
		"password": password,
		"name":     "Test User",
	})
	resp, err := http.Post(baseURL+"/api/auth/register", "application/json", bytes.NewReader(registerBody))
	if err != nil {
		t.Fatalf("Register request failed: %v", err)
	}
	// An existing account is fine; fall through to login
	resp.Body.Close()

	loginBody, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	resp, err = http.Post(baseURL+"/api/auth/login", "application/json", bytes.NewReader(loginBody))
	if err != nil {
		t.Fatalf("Login request failed: %v", err)
	}

	var envelope authEnvelope
	ParseJSON(t, resp, &envelope)
	if !envelope.Success || envelope.Data.Token == "" {
		t.Fatalf("Login failed: %s", envelope.Message)
	}

	return envelope.Data.User.ID, envelope.Data.Token
}

// AuthorizedRequest builds a request carrying the bearer token.
func AuthorizedRequest(t *testing.T, method, url, token string, body []byte) *http.Request {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}
