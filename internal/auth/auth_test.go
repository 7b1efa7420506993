package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestStaticTokenValidate(t *testing.T) {
	v := StaticToken{Token: "sesame"}
	if err := v.Validate("sesame"); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if err := v.Validate("wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestStaticTokenEmptyAlwaysRejects(t *testing.T) {
	v := StaticToken{}
	if err := v.Validate(""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty shared token must reject everything, got %v", err)
	}
}

func TestMiddlewareTokenSources(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/guarded", Middleware(StaticToken{Token: "sesame"}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{name: "bearer", header: "Authorization", value: "Bearer sesame", want: http.StatusOK},
		{name: "token header", header: TokenHeader, value: "sesame", want: http.StatusOK},
		{name: "wrong token", header: TokenHeader, value: "open", want: http.StatusUnauthorized},
		{name: "missing token", want: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
		if tc.header != "" {
			req.Header.Set(tc.header, tc.value)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rr.Code)
		}
	}
}
