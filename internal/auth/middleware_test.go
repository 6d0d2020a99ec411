package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	accountID string
	granted   bool
	err       error

	gotToken      string
	gotCapability Capability
}

func (s *stubChecker) ExchangeSessionAndCheckCapability(ctx context.Context, sessionToken string, capability Capability) (string, bool, error) {
	s.gotToken = sessionToken
	s.gotCapability = capability
	return s.accountID, s.granted, s.err
}

func setupRouter(checker CapabilityChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireCapability(checker, CapabilityPublish), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"account_id": AccountID(c)})
	})
	return r
}

func doRequest(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireCapabilityGranted(t *testing.T) {
	checker := &stubChecker{accountID: "account-42", granted: true}
	r := setupRouter(checker)

	w := doRequest(r, "Bearer session-token")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "account-42")
	assert.Equal(t, "session-token", checker.gotToken)
	assert.Equal(t, CapabilityPublish, checker.gotCapability)
}

func TestRequireCapabilityMissingToken(t *testing.T) {
	checker := &stubChecker{granted: true}
	r := setupRouter(checker)

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Basic abc").Code)
}

func TestRequireCapabilityInvalidSession(t *testing.T) {
	checker := &stubChecker{err: ErrInvalidSession}
	r := setupRouter(checker)

	w := doRequest(r, "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireCapabilityDenied(t *testing.T) {
	checker := &stubChecker{accountID: "account-42", granted: false}
	r := setupRouter(checker)

	w := doRequest(r, "Bearer session-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireCapabilityCheckerFailure(t *testing.T) {
	checker := &stubChecker{err: fmt.Errorf("auth service unreachable")}
	r := setupRouter(checker)

	w := doRequest(r, "Bearer session-token")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
