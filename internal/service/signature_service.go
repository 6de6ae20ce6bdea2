package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign computes HMAC-SHA256 of payload using secretKey.
// Returns lowercase hex-encoded signature.
func (s *HMACSignatureService) Sign(secretKey string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks if signature matches HMAC-SHA256(secretKey, payload).
// Uses constant-time comparison.
func (s *HMACSignatureService) Verify(secretKey string, payload []byte, signature string) bool {
	expected := s.Sign(secretKey, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
