package service_test

import (
	"context"
	"testing"
	"time"

	"magirls/internal/dto"
	"magirls/internal/model"
	"magirls/internal/repository"
	"magirls/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubUserRepo struct {
	users   map[string]*model.User
	touched map[uuid.UUID]time.Time
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*model.User), touched: make(map[uuid.UUID]time.Time)}
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := r.users[username]
	if !ok || !u.IsActive {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.touched[id] = at
	return nil
}

func (r *stubUserRepo) Upsert(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.Username] = u
	return nil
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

func seedUser(t *testing.T, repo *stubUserRepo, username, password string, active bool) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Username: username, FullName: "Store Owner", PasswordHash: string(hash), IsActive: active}
	require.NoError(t, repo.Upsert(context.Background(), u))
	return u
}

func TestLogin_IssuesToken(t *testing.T) {
	repo := newStubUserRepo()
	user := seedUser(t, repo, "owner", "s3cret", true)
	cfg := newTestCfg()
	svc := service.NewAuthService(repo, cfg)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "owner", Password: "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, user.ID.String(), resp.UserID)
	assert.Equal(t, "Store Owner", resp.FullName)

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, tok.Valid)
	sub, err := claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), sub)
	assert.Equal(t, "owner", claims["username"])

	assert.Contains(t, repo.touched, user.ID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "owner", "s3cret", true)
	seedUser(t, repo, "former", "s3cret", false)
	svc := service.NewAuthService(repo, newTestCfg())

	cases := []dto.LoginRequest{
		{Username: "owner", Password: "wrong"},
		{Username: "nobody", Password: "s3cret"},
		{Username: "former", Password: "s3cret"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		assert.ErrorIs(t, err, service.ErrInvalidCredentials, req.Username)
	}
	assert.Empty(t, repo.touched)
}

type stubReportRepo struct{ summary model.DashboardSummary }

func (r stubReportRepo) DashboardSummary(context.Context) (*model.DashboardSummary, error) {
	s := r.summary
	return &s, nil
}

func TestDashboardSummary_RoundsToCents(t *testing.T) {
	svc := service.NewReportService(stubReportRepo{summary: model.DashboardSummary{
		InvestedAmount:  decimal.RequireFromString("120.456"),
		GrossSales:      decimal.RequireFromString("300"),
		CostOfGoodsSold: decimal.RequireFromString("150.333"),
		Profit:          decimal.RequireFromString("149.667"),
	}})

	resp, err := svc.DashboardSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "120.46", resp.InvestedAmount.String())
	assert.Equal(t, "300", resp.GrossSales.String())
	assert.Equal(t, "150.33", resp.CostOfGoodsSold.String())
	assert.Equal(t, "149.67", resp.Profit.String())
}
