package sharelink

import (
	"testing"
	"time"
)

func TestSignParse_RoundTrip(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)

	token, err := signer.Sign("booking_1", "cust_1")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	bookingID, customerID, err := signer.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if bookingID != "booking_1" {
		t.Errorf("Expected booking_1, got %s", bookingID)
	}
	if customerID != "cust_1" {
		t.Errorf("Expected cust_1, got %s", customerID)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := NewSigner("secret-a", time.Hour).Sign("booking_1", "cust_1")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if _, _, err := NewSigner("secret-b", time.Hour).Parse(token); err == nil {
		t.Error("Expected verification failure with wrong secret")
	}
}

func TestParse_Expired(t *testing.T) {
	token, err := NewSigner("secret", -time.Minute).Sign("booking_1", "cust_1")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if _, _, err := NewSigner("secret", -time.Minute).Parse(token); err == nil {
		t.Error("Expected expired token to be rejected")
	}
}
