package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// requireAuth 写接口认证中间件：x-api-key 白名单或 Bearer JWT，
// 两者都不满足时拒绝，且不触发任何存储变更
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if apiKey := r.Header.Get("x-api-key"); apiKey != "" {
			for _, allowed := range s.config.APIKeys {
				if apiKey == allowed {
					next(w, r)
					return
				}
			}
		}

		if authorization := r.Header.Get("Authorization"); authorization != "" {
			scheme, token, found := strings.Cut(authorization, " ")
			if found && strings.EqualFold(scheme, "bearer") && token != "" {
				if _, err := s.parseToken(token); err == nil {
					next(w, r)
					return
				}
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
		}

		writeError(w, http.StatusUnauthorized, "Unauthorized")
	}
}

// parseToken 用配置的密钥和算法校验 JWT
func (s *Server) parseToken(token string) (*jwt.Token, error) {
	return jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{s.config.JWTAlgorithm}))
}
