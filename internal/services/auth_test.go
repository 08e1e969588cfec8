package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/pencilbase-backend/internal/repos"
	"github.com/yungbote/pencilbase-backend/internal/requestdata"
	"github.com/yungbote/pencilbase-backend/internal/types"
)

func newTestAuthService(t *testing.T) (AuthService, repos.UserTokenRepo) {
	t.Helper()
	db := openTestDB(t)
	log := newTestLogger(t)
	userRepo := repos.NewUserRepo(db, log)
	userTokenRepo := repos.NewUserTokenRepo(db, log)
	as := NewAuthService(db, log, userRepo, userTokenRepo, nil, "test-secret", time.Hour, 24*time.Hour)
	return as, userTokenRepo
}

func registerTestUser(t *testing.T, as AuthService) *types.User {
	t.Helper()
	user := &types.User{
		Email:     "Jamie@Example.com ",
		FirstName: "Jamie",
		LastName:  "Rivera",
		Password:  "hunter22",
	}
	if err := as.RegisterUser(context.Background(), user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	return user
}

func TestRegisterUser_NormalizesAndHashes(t *testing.T) {
	as, _ := newTestAuthService(t)
	user := registerTestUser(t, as)

	if user.Email != "jamie@example.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.Password == "hunter22" {
		t.Fatalf("password stored unhashed")
	}
	if user.ID == uuid.Nil {
		t.Fatalf("expected an assigned user id")
	}

	dup := &types.User{Email: "jamie@example.com", FirstName: "J", LastName: "R", Password: "x"}
	if err := as.RegisterUser(context.Background(), dup); err == nil {
		t.Fatalf("expected duplicate email rejection")
	}
}

func TestLoginUser_IssuesVerifiableToken(t *testing.T) {
	as, _ := newTestAuthService(t)
	user := registerTestUser(t, as)
	ctx := context.Background()

	accessToken, refreshToken, err := as.LoginUser(ctx, user.Email, "hunter22")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if accessToken == "" || refreshToken == "" {
		t.Fatalf("expected both tokens, got %q / %q", accessToken, refreshToken)
	}

	authedCtx, err := as.SetContextFromToken(ctx, accessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := requestdata.GetRequestData(authedCtx)
	if rd == nil || rd.UserID != user.ID {
		t.Fatalf("unexpected request data: %+v", rd)
	}
	if rd.IsAdmin {
		t.Fatalf("fresh user must not be admin")
	}

	if _, _, err := as.LoginUser(ctx, user.Email, "wrong"); err == nil {
		t.Fatalf("expected bad password rejection")
	}
}

func TestRefreshUser_RotatesTheRefreshToken(t *testing.T) {
	as, _ := newTestAuthService(t)
	user := registerTestUser(t, as)
	ctx := context.Background()

	_, refreshToken, err := as.LoginUser(ctx, user.Email, "hunter22")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	newAccess, newRefresh, err := as.RefreshUser(ctx, refreshToken)
	if err != nil {
		t.Fatalf("RefreshUser: %v", err)
	}
	if newAccess == "" || newRefresh == "" || newRefresh == refreshToken {
		t.Fatalf("expected a rotated token pair")
	}

	// The old refresh token is single-use.
	if _, _, err := as.RefreshUser(ctx, refreshToken); err == nil {
		t.Fatalf("expected old refresh token to be rejected")
	}
}

func TestLogoutUser_RemovesTheSession(t *testing.T) {
	as, userTokenRepo := newTestAuthService(t)
	user := registerTestUser(t, as)
	ctx := context.Background()

	accessToken, _, err := as.LoginUser(ctx, user.Email, "hunter22")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	authedCtx, err := as.SetContextFromToken(ctx, accessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}

	if err := as.LogoutUser(authedCtx); err != nil {
		t.Fatalf("LogoutUser: %v", err)
	}
	remaining, err := userTokenRepo.GetByAccessTokens(ctx, nil, []string{accessToken})
	if err != nil {
		t.Fatalf("GetByAccessTokens: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected session removed, found %d tokens", len(remaining))
	}

	if err := as.LogoutUser(ctx); err == nil {
		t.Fatalf("expected logout without request data to fail")
	}
}

func TestSetContextFromToken_RejectsGarbage(t *testing.T) {
	as, _ := newTestAuthService(t)

	if _, err := as.SetContextFromToken(context.Background(), "not-a-jwt"); err == nil {
		t.Fatalf("expected invalid token rejection")
	}
}
