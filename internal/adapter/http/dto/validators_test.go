package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := CreateAccountRequest{
		Name:  "  Alice Smith  ",
		Email: " alice@example.com ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "Alice Smith", req.Name)
	assert.Equal(t, "alice@example.com", req.Email)
}

func TestSanitizeStruct_DropsControlCharacters(t *testing.T) {
	req := CreateAccountRequest{Name: "Al\x00ice\r\n", Email: "a@x.com"}
	SanitizeStruct(&req)

	assert.Equal(t, "Alice", req.Name)
}

func TestSanitizeStruct_KeepsPunctuation(t *testing.T) {
	req := CreateAccountRequest{Name: "O'Brien & Sons", Email: "o@x.com"}
	SanitizeStruct(&req)

	assert.Equal(t, "O'Brien & Sons", req.Name)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestWalletIDValidator(t *testing.T) {
	valid := []string{
		"wallet-1a2b3c4d",
		"WALLET_002",
		"a.b.c",
		"https://wallet.mockbank.dev/PK93ABPA123456789012",
		"http://localhost:8080/wallets/abc",
	}
	for _, tc := range valid {
		err := binding.Validator.ValidateStruct(RebindWalletRequest{ExternalRef: "PK93", WalletID: tc})
		assert.NoError(t, err, "expected valid: %s", tc)
	}

	invalid := []string{
		"wallet 001",
		"wallet<001>",
		"wallet;DROP",
		"ftp://files.example.com/x",
		"wallet\n001",
	}
	for _, tc := range invalid {
		err := binding.Validator.ValidateStruct(RebindWalletRequest{ExternalRef: "PK93", WalletID: tc})
		assert.Error(t, err, "expected invalid: %s", tc)
	}
}

func TestSafeURLValidator(t *testing.T) {
	assert.NoError(t, binding.Validator.ValidateStruct(SubscriberRequest{URL: "https://hooks.example.com/in"}))
	assert.Error(t, binding.Validator.ValidateStruct(SubscriberRequest{URL: "javascript:alert(1)"}))
	assert.Error(t, binding.Validator.ValidateStruct(SubscriberRequest{URL: "/relative/path"}))
	assert.Error(t, binding.Validator.ValidateStruct(SubscriberRequest{}))
}

func TestRequestValidation(t *testing.T) {
	amount := decimal.RequireFromString("10.00")

	assert.NoError(t, binding.Validator.ValidateStruct(TransferRequest{From: "a", To: "b", Amount: &amount}))
	assert.Error(t, binding.Validator.ValidateStruct(TransferRequest{From: "a", To: "b"}))
	assert.Error(t, binding.Validator.ValidateStruct(CreateAccountRequest{Name: "A", Email: "not-an-email"}))
	assert.Error(t, binding.Validator.ValidateStruct(WebhookToggleRequest{}))
}
