package auth

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-tests", "household-finance")
	memberID := uuid.New()
	householdID := uuid.New()

	token, err := svc.GenerateToken(memberID, householdID, "alice", "owner")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.MemberID != memberID {
		t.Errorf("MemberID = %s, want %s", claims.MemberID, memberID)
	}
	if claims.HouseholdID != householdID {
		t.Errorf("HouseholdID = %s, want %s", claims.HouseholdID, householdID)
	}
	if claims.Username != "alice" || claims.Role != "owner" {
		t.Errorf("claims = %s/%s, want alice/owner", claims.Username, claims.Role)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-tests", "household-finance")
	other := NewJWTService("a-different-secret-key", "household-finance")

	token, err := svc.GenerateToken(uuid.New(), uuid.New(), "alice", "member")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("ValidateToken() accepted a token signed with another secret")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-tests", "household-finance")
	if _, err := svc.ValidateToken("not-a-jwt"); err == nil {
		t.Error("ValidateToken() accepted garbage input")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !CheckPassword(hash, "correct horse battery") {
		t.Error("CheckPassword() rejected the original password")
	}
	if CheckPassword(hash, "wrong password") {
		t.Error("CheckPassword() accepted a wrong password")
	}
}

func TestHashPasswordRejectsShortPasswords(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("HashPassword() error = %v, want %v", err, ErrPasswordTooShort)
	}
}
