package utils

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/pencilbase-backend/internal/types"
)

func TestNormalizeUserFields(t *testing.T) {
	user := &types.User{
		Email:     "  Sam@Example.COM ",
		FirstName: " Sam ",
		LastName:  " Lee ",
	}
	NormalizeUserFields(user)
	if user.Email != "sam@example.com" {
		t.Fatalf("email = %q", user.Email)
	}
	if user.FirstName != "Sam" || user.LastName != "Lee" {
		t.Fatalf("names = %q %q", user.FirstName, user.LastName)
	}
	NormalizeUserFields(nil)
}

func TestValidateRegistration(t *testing.T) {
	noEmail := func(context.Context, string) (bool, error) { return false, nil }
	taken := func(context.Context, string) (bool, error) { return true, nil }

	ok := &types.User{Email: "a@b.c", Password: "pw", FirstName: "A", LastName: "B"}
	if err := ValidateRegistration(context.Background(), noEmail, nil, ok); err != nil {
		t.Fatalf("valid user rejected: %v", err)
	}
	if err := ValidateRegistration(context.Background(), taken, nil, ok); err == nil {
		t.Fatalf("expected taken-email rejection")
	}
	if err := ValidateRegistration(context.Background(), noEmail, nil, &types.User{Email: "a@b.c", Password: "pw", FirstName: "A"}); err == nil {
		t.Fatalf("expected missing-last-name rejection")
	}
	if err := ValidateRegistration(context.Background(), noEmail, nil, nil); err == nil {
		t.Fatalf("expected nil-user rejection")
	}
}

func TestValidateLogin(t *testing.T) {
	if err := ValidateLogin("a@b.c", "pw"); err != nil {
		t.Fatalf("valid login rejected: %v", err)
	}
	if err := ValidateLogin("", "pw"); err == nil {
		t.Fatalf("expected missing-email rejection")
	}
	if err := ValidateLogin("a@b.c", ""); err == nil {
		t.Fatalf("expected missing-password rejection")
	}
}

func TestHashPassword(t *testing.T) {
	user := &types.User{Password: "plain"}
	if err := HashPassword(nil, user); err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if user.Password == "plain" {
		t.Fatalf("password left unhashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("plain")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}
