// Package identity handles phone+password credentials and bearer tokens.
// Tokens are HS256 JWTs carrying the actor id as subject and the role as a
// custom claim; everything else about the actor is looked up fresh.
package identity

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"laborline/internal/domain"
	"laborline/internal/engine"
	"laborline/internal/repo"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

type Service struct {
	Repo   repo.Repo
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

func New(r repo.Repo, secret string, ttl time.Duration) *Service {
	return &Service{Repo: r, Secret: secret, TTL: ttl, Now: time.Now}
}

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Register creates an actor from phone credentials. Laborers start OFFLINE
// and opt into discovery by setting themselves AVAILABLE.
func (s *Service) Register(ctx context.Context, phone, password string, role domain.Role, firstName, lastName string) (domain.Actor, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return domain.Actor{}, engine.ValidationError{Msg: "phone must be 8 to 15 digits"}
	}
	if len(password) < 6 {
		return domain.Actor{}, engine.ValidationError{Msg: "password must be at least 6 characters"}
	}
	if !role.Valid() {
		return domain.Actor{}, engine.ValidationError{Msg: "role must be CONTRACTOR, LABOR or CONSUMER"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Actor{}, err
	}
	a := domain.Actor{
		ID:           uuid.NewString(),
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         role,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Status:       domain.Offline,
		CreatedAt:    s.Now().UTC().Format(time.RFC3339),
	}
	if err := s.Repo.InsertActor(ctx, a); err != nil {
		if repo.IsUniqueViolation(err) {
			return domain.Actor{}, engine.ConflictError{Msg: "phone is already registered"}
		}
		return domain.Actor{}, err
	}
	return a, nil
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, phone, password string) (string, domain.Actor, error) {
	a, err := s.Repo.GetActorByPhone(ctx, strings.TrimSpace(phone))
	if errors.Is(err, repo.ErrNotFound) {
		return "", domain.Actor{}, engine.AuthenticationError{Msg: "invalid phone or password"}
	}
	if err != nil {
		return "", domain.Actor{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return "", domain.Actor{}, engine.AuthenticationError{Msg: "invalid phone or password"}
	}
	token, err := s.issue(a)
	if err != nil {
		return "", domain.Actor{}, err
	}
	return token, a, nil
}

func (s *Service) issue(a domain.Actor) (string, error) {
	now := s.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
		Role: string(a.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
}

// Verify parses a bearer token and returns the subject actor id and role.
func (s *Service) Verify(token string) (actorID string, role domain.Role, err error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.Secret), nil
	})
	if err != nil {
		return "", "", engine.AuthenticationError{Msg: "invalid token"}
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", "", engine.AuthenticationError{Msg: "invalid token"}
	}
	return claims.Subject, domain.Role(claims.Role), nil
}
