package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bher20/solarquote/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserExists         = errors.New("user already exists")
	ErrUnknownRole        = errors.New("unknown role")
)

const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
	RoleViewer  = "viewer"
)

// Objects and actions checked by the admin API.
const (
	ObjEstimates = "estimates"
	ObjSummary   = "summary"
	ObjStates    = "states"
	ObjSettings  = "settings"

	ActRead  = "read"
	ActWrite = "write"
)

// LoginTokenTTL is the lifetime of tokens issued by Login.
const LoginTokenTTL = 24 * time.Hour

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (r.obj == p.obj || p.obj == "*") && (r.act == p.act || p.act == "*")
`

var rolePolicies = [][]string{
	{RoleAdmin, "*", "*"},
	{RoleAnalyst, ObjEstimates, ActRead},
	{RoleAnalyst, ObjSummary, ActRead},
	{RoleAnalyst, ObjStates, ActRead},
	{RoleAnalyst, ObjStates, ActWrite},
	{RoleViewer, ObjEstimates, ActRead},
	{RoleViewer, ObjSummary, ActRead},
}

// Roles lists the built-in roles.
func Roles() []string {
	return []string{RoleAdmin, RoleAnalyst, RoleViewer}
}

type Service struct {
	storage  storage.Storage
	enforcer *casbin.Enforcer
	now      func() time.Time
}

// NewService loads the stored policies and seeds the built-in role policies
// that are missing.
func NewService(s storage.Storage) (*Service, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}
	e, err := casbin.NewEnforcer(m, NewAdapter(s))
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}
	for _, p := range rolePolicies {
		has, err := e.HasPolicy(p[0], p[1], p[2])
		if err != nil {
			return nil, err
		}
		if has {
			continue
		}
		if _, err := e.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, fmt.Errorf("seed policy %v: %w", p, err)
		}
	}
	return &Service{storage: s, enforcer: e, now: time.Now}, nil
}

func validRole(role string) bool {
	for _, r := range Roles() {
		if r == role {
			return true
		}
	}
	return false
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (*storage.User, error) {
	u, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Register creates a user and binds it to role.
func (s *Service) Register(ctx context.Context, username, email, password, role string) (*storage.User, error) {
	if !validRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	existing, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := storage.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	if _, err := s.enforcer.AddGroupingPolicy(u.ID, role); err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}
	return &u, nil
}

// CreateToken issues an opaque bearer token. Only its sha256 hash is stored;
// the raw value is returned once.
func (s *Service) CreateToken(ctx context.Context, user *storage.User, name string, expiresAt *time.Time) (*storage.Token, string, error) {
	raw := uuid.NewString() + uuid.NewString()
	t := storage.Token{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Name:      name,
		TokenHash: hashToken(raw),
		Role:      user.Role,
		CreatedAt: s.now(),
		ExpiresAt: expiresAt,
	}
	if err := s.storage.CreateToken(ctx, t); err != nil {
		return nil, "", err
	}
	return &t, raw, nil
}

// Login checks credentials and issues a token valid for LoginTokenTTL.
func (s *Service) Login(ctx context.Context, username, password string) (*storage.Token, string, error) {
	u, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, "", err
	}
	exp := s.now().Add(LoginTokenTTL)
	return s.CreateToken(ctx, u, "login", &exp)
}

func (s *Service) ValidateToken(ctx context.Context, raw string) (*storage.Token, error) {
	t, err := s.storage.GetTokenByHash(ctx, hashToken(raw))
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrInvalidToken
	}
	if t.ExpiresAt != nil && !t.ExpiresAt.After(s.now()) {
		return nil, ErrTokenExpired
	}

	go func(id string) {
		if err := s.storage.UpdateTokenLastUsed(context.Background(), id); err != nil {
			log.Printf("auth: update token last used: %v", err)
		}
	}(t.ID)

	return t, nil
}

func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	return s.enforcer.Enforce(sub, obj, act)
}
