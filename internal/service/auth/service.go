// Package auth autentica o operador do estande. A credencial é única e
// vem da provisão do equipamento, não há cadastro de usuários.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dgenny/conecta/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	ErrInvalidToken       = errors.New("token inválido")
)

type Service struct {
	operator config.OperatorConfig
	jwtCfg   config.JWTConfig
	log      *zap.Logger
}

func New(operator config.OperatorConfig, jwtCfg config.JWTConfig, log *zap.Logger) *Service {
	return &Service{operator: operator, jwtCfg: jwtCfg, log: log}
}

// Login valida email e senha contra a credencial provisionada e emite o
// token de sessão.
func (s *Service) Login(email, password string) (string, error) {
	if email != s.operator.Email || s.operator.PasswordHash == "" {
		// bcrypt com custo cheio mesmo sem match de email, para não
		// denunciar qual campo errou pelo tempo de resposta
		bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"), []byte(password))
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.operator.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("tentativa de login recusada", zap.String("email", email))
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.jwtCfg.ExpHours) * time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: assinar token: %w", err)
	}

	s.log.Info("operador autenticado", zap.String("email", email))
	return signed, nil
}

// Validate confere assinatura e validade do token e devolve o sujeito.
func (s *Service) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", t.Header["alg"])
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
