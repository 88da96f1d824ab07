package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyTable(t *testing.T) {
	tests := []struct {
		role string
		op   Op
		want bool
	}{
		{RoleSuperadmin, W(AdminUsers), true},
		{RoleSuperadmin, W(Receipts), true},
		{RoleStudentRegistrar, W(Students), true},
		{RoleStudentRegistrar, W(Events), true},
		{RoleStudentRegistrar, W(Attendance), true},
		{RoleStudentRegistrar, R(Fines), false},
		{RoleStudentRegistrar, R(AdminUsers), false},
		{RoleFineManager, R(Attendance), true},
		{RoleFineManager, W(Attendance), false},
		{RoleFineManager, W(Fines), true},
		{RoleFineManager, R(Receipts), true},
		{RoleFineManager, W(Receipts), false},
		{RoleFineManager, W(Students), false},
		{RoleReceiptManager, R(Fines), true},
		{RoleReceiptManager, W(Fines), false},
		{RoleReceiptManager, W(Receipts), true},
		{RoleReceiptManager, R(Events), true},
		{"janitor", R(Students), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Allowed(tt.role, tt.op), "%s %v", tt.role, tt.op)
	}
}

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("schoolportal", "secret", time.Hour)
	tok, exp, err := s.Issue(7, "registrar", "Reg Istrar", RoleStudentRegistrar)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.AdminID)
	assert.Equal(t, RoleStudentRegistrar, claims.Role)
	assert.NotEmpty(t, claims.ID)

	_, err = NewSigner("schoolportal", "other", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = NewSigner("elsewhere", "secret", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewSigner("schoolportal", "secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequire(t *testing.T) {
	gin.SetMode(gin.TestMode)
	signer := NewSigner("schoolportal", "secret", time.Hour)
	r := gin.New()
	r.Use(Session(signer))
	r.GET("/fines", Require(R(Fines)), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(setup func(*http.Request)) int {
		req := httptest.NewRequest(http.MethodGet, "/fines", nil)
		setup(req)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(func(*http.Request) {}))
	assert.Equal(t, http.StatusUnauthorized, do(func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer garbage")
	}))

	registrar, _, err := signer.Issue(1, "reg", "Reg", RoleStudentRegistrar)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: registrar})
	}))

	manager, _, err := signer.Issue(2, "fm", "Fine Manager", RoleFineManager)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: manager})
	}))
	assert.Equal(t, http.StatusOK, do(func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+manager)
	}))
}
