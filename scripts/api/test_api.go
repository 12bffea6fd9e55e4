// Minimal end-to-end smoke test for the VeriStake API.
//
// Needs a running API plus its MySQL/Redis. Auth is short-circuited by
// minting JWTs directly from JWT_SECRET, so no wallet keys are required.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	baseURL   = getenv("API_URL", "http://localhost:8080/v1")
	jwtSecret = getenv("JWT_SECRET", "")
	poster    = "5GrwvaEF5zXb26Fz9rcQpDWSnTJJEmbdr5rcQpDWSnTJ" // dev account
	voter     = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM6" // second dev account
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	posterTok := mintToken(poster)
	voterTok := mintToken(voter)

	claimID := createClaim(posterTok)
	getClaim(claimID)
	addEvidence(posterTok, claimID)

	// The claim sits in pending until the on-chain remark confirms it, so a
	// vote must be rejected here.
	castVoteExpect(voterTok, claimID, http.StatusConflict)

	// Finalizing an unconfirmed claim must also fail.
	finalizeExpect(posterTok, claimID, http.StatusConflict)

	fmt.Println("✓ all endpoints behaved")
}

func mintToken(addr string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"addr": addr,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	return signed
}

// ----------------------------- claims

func createClaim(token string) string {
	var resp struct {
		ClaimID string `json:"claimId"`
		Remark  string `json:"remark"`
	}
	doJSON("POST", "/claims", token, map[string]any{
		"title":    "The ISS completes roughly 16 orbits of Earth per day",
		"summary":  "Orbital period of about 92 minutes implies ~15.5 orbits daily.",
		"url":      "https://www.nasa.gov/international-space-station/",
		"category": "science",
	}, &resp, http.StatusCreated)
	if resp.ClaimID == "" || resp.Remark == "" {
		log.Fatal("create claim: missing claimId or remark")
	}
	fmt.Printf("claim %s (remark %s)\n", resp.ClaimID, resp.Remark)
	return resp.ClaimID
}

func getClaim(claimID string) {
	var resp struct {
		Status string `json:"Status"`
	}
	doJSON("GET", "/claims/"+claimID, "", nil, &resp, http.StatusOK)
	if resp.Status != "pending" {
		log.Fatalf("claim status = %q, want pending", resp.Status)
	}
}

func addEvidence(token, claimID string) {
	var resp struct {
		ID uint64 `json:"id"`
	}
	doJSON("POST", "/claims/"+claimID+"/evidence", token, map[string]any{
		"url": "https://www.nasa.gov/feature/facts-and-figures",
	}, &resp, http.StatusCreated)
}

// ----------------------------- votes & settlement

func castVoteExpect(token, claimID string, want int) {
	doJSON("POST", "/votes", token, map[string]any{
		"claimId":     claimID,
		"position":    "truth",
		"stake":       1.0,
		"stakePlanck": "10000000000",
		"evidence":    []string{"https://www.nasa.gov/feature/facts-and-figures"},
	}, nil, want)
}

func finalizeExpect(token, claimID string, want int) {
	doJSON("POST", "/claims/"+claimID+"/finalize", token, nil, nil, want)
}

// ----------------------------- plumbing

func doJSON(method, path, token string, payload, out any, wantStatus int) {
	var body *bytes.Buffer = bytes.NewBuffer(nil)
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		log.Fatalf("%s %s: status %d, want %d", method, path, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}
