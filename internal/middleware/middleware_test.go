package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/assignhub/internal/app/models"
	"github.com/yigit/assignhub/internal/app/models/dto"
	"github.com/yigit/assignhub/internal/pkg/apperrors"
	"github.com/yigit/assignhub/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *dto.ErrorDetail `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func newJWT(accessExp time.Duration) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "middleware-secret",
		AccessTokenExp:  accessExp,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "test",
	})
}

func issue(t *testing.T, svc *auth.JWTService, role models.RoleType) (string, uuid.UUID) {
	t.Helper()
	user := &models.User{ID: uuid.New(), Email: "someone@university.edu", Role: role}
	pair, err := svc.GenerateTokenPair(user)
	require.NoError(t, err)
	return pair.AccessToken, user.ID
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		code    dto.ErrorCode
		message string
	}{
		{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
		{apperrors.ErrSubmissionExists, http.StatusConflict, dto.ErrorCodeConflict, "Resource already exists"},
		{apperrors.NewCustomError(apperrors.ErrAssignmentNotFound, "Assignment not found"), http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Assignment not found"},
		{apperrors.NewForbiddenError("You cannot reassign ownership"), http.StatusForbidden, dto.ErrorCodeForbidden, "You cannot reassign ownership"},
		{apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled, "Your account is not active"},
		{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
		{fmt.Errorf("rotate: %w", apperrors.ErrTokenRevoked), http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Token revoked"},
		{apperrors.NewBadRequestError("Assignment deadline has passed"), http.StatusBadRequest, dto.ErrorCodeBadRequest, "Assignment deadline has passed"},
		{errors.New("connection reset"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, detail := StatusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, detail.Code)
			assert.Equal(t, tt.message, detail.Message)
		})
	}
}

func TestHandleAPIError_WritesEnvelope(t *testing.T) {
	router := gin.New()
	router.GET("/x", func(c *gin.Context) {
		HandleAPIError(c, apperrors.NewCustomError(apperrors.ErrSubmissionNotFound, "Submission not found"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Submission not found", env.Error.Message)
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(Recovery())
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrorCodeInternalServer, decode(t, w).Error.Code)
}

func authRouter(svc *auth.JWTService, roles ...models.RoleType) *gin.Engine {
	m := NewAuthMiddleware(svc)
	router := gin.New()
	handlers := []gin.HandlerFunc{m.JWTAuth()}
	if len(roles) > 0 {
		handlers = append(handlers, m.RoleRequired(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		caller, ok := CurrentCaller(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(caller.UserID.String(), "ok"))
	})
	router.GET("/protected", handlers...)
	return router
}

func TestJWTAuth(t *testing.T) {
	svc := newJWT(time.Hour)
	token, userID := issue(t, svc, models.RoleStudent)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		authRouter(svc).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `"`+userID.String()+`"`, string(decode(t, w).Data))
	})

	t.Run("raw token header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", token)
		w := httptest.NewRecorder()
		authRouter(svc).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("query token", func(t *testing.T) {
		w := httptest.NewRecorder()
		authRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		authRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeUnauthorized, decode(t, w).Error.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired, _ := issue(t, newJWT(-time.Minute), models.RoleStudent)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		w := httptest.NewRecorder()
		authRouter(newJWT(time.Hour)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeExpiredToken, decode(t, w).Error.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		w := httptest.NewRecorder()
		authRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeInvalidToken, decode(t, w).Error.Code)
	})
}

func TestRoleRequired(t *testing.T) {
	svc := newJWT(time.Hour)
	studentToken, _ := issue(t, svc, models.RoleStudent)
	instructorToken, _ := issue(t, svc, models.RoleInstructor)
	router := authRouter(svc, models.RoleInstructor)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+studentToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied", decode(t, w).Error.Message)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+instructorToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

type bindTarget struct {
	Title string `json:"title" binding:"required,min=1,max=5"`
}

func TestBindJSON(t *testing.T) {
	router := gin.New()
	router.POST("/bind", func(c *gin.Context) {
		var body bindTarget
		if !BindJSON(c, &body) {
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(body.Title, "ok"))
	})

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, post(`{"title":"abc"}`).Code)

	w := post(`{"title":"too long"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, dto.ErrorCodeValidationFailed, env.Error.Code)
	assert.Equal(t, "title", env.Error.Field)

	w = post(`{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseUUIDParamAndQuery(t *testing.T) {
	router := gin.New()
	router.GET("/items/:id", func(c *gin.Context) {
		id, ok := ParseUUIDParam(c, "id")
		if !ok {
			return
		}
		filter, ok := ParseUUIDQuery(c, "studentId")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "hasFilter": filter != nil})
	})

	id := uuid.New()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hasFilter":false`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid id format", decode(t, w).Error.Message)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+id.String()+"?studentId=nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "studentId", decode(t, w).Error.Field)
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"http://localhost:3000"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
