package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

func newMaker(t *testing.T, tokenType string) tokenpkg.Maker {
	t.Helper()

	maker, err := tokenpkg.NewMaker(tokenType, randompkg.String(32))
	if err != nil {
		t.Fatalf("tokenpkg.NewMaker(%q) returned error: %v", tokenType, err)
	}

	return maker
}

func TestAuthMiddleware(t *testing.T) {
	for _, tokenType := range []string{"paseto", "jwt"} {
		tokenMaker := newMaker(t, tokenType)
		otherMaker := newMaker(t, tokenType)
		userID := uuid.New()

		testCases := []struct {
			name           string
			header         func(t *testing.T, r *http.Request) error
			wantStatusCode int
			wantError      string
		}{
			{
				name:           "NoAuthorization",
				header:         func(t *testing.T, r *http.Request) error { return nil },
				wantStatusCode: http.StatusUnauthorized,
				wantError:      ErrAuthHeaderNotFound.Error(),
			},
			{
				name: "TokenWithoutType",
				header: func(t *testing.T, r *http.Request) error {
					r.Header.Set(AuthHeaderKey, "token-only")
					return nil
				},
				wantStatusCode: http.StatusUnauthorized,
				wantError:      ErrBadAuthHeaderFormat.Error(),
			},
			{
				name: "BasicAuthorization",
				header: func(t *testing.T, r *http.Request) error {
					return AddAuthorization(r, tokenMaker, "basic", userID, time.Minute)
				},
				wantStatusCode: http.StatusUnauthorized,
				wantError:      ErrUnsupportedAuthType.Error(),
			},
			{
				name: "ExpiredToken",
				header: func(t *testing.T, r *http.Request) error {
					return AddAuthorization(r, tokenMaker, AuthTypeBearer, userID, -time.Minute)
				},
				wantStatusCode: http.StatusUnauthorized,
				wantError:      tokenpkg.ErrExpiredToken.Error(),
			},
			{
				name: "TokenFromOtherKey",
				header: func(t *testing.T, r *http.Request) error {
					return AddAuthorization(r, otherMaker, AuthTypeBearer, userID, time.Minute)
				},
				wantStatusCode: http.StatusUnauthorized,
				wantError:      tokenpkg.ErrInvalidToken.Error(),
			},
			{
				name: "OK",
				header: func(t *testing.T, r *http.Request) error {
					return AddAuthorization(r, tokenMaker, AuthTypeBearer, userID, time.Minute)
				},
				wantStatusCode: http.StatusOK,
			},
		}

		gin.SetMode(gin.ReleaseMode)
		server := gin.New()
		server.GET("/whoami", AuthMiddleware(tokenMaker), func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, web.Response{Data: Payload(ctx).UserID})
		})

		for _, tc := range testCases {
			t.Run(tokenType+"/"+tc.name, func(t *testing.T) {
				request := httptest.NewRequest(http.MethodGet, "/whoami", nil)
				if err := tc.header(t, request); err != nil {
					t.Fatalf("setting authorization header returned error: %v", err)
				}

				recorder := httptest.NewRecorder()
				server.ServeHTTP(recorder, request)

				if recorder.Code != tc.wantStatusCode {
					t.Errorf("status code = %v, want %v", recorder.Code, tc.wantStatusCode)
				}

				var gotID uuid.UUID

				got := web.Response{Data: &gotID}
				if err := json.NewDecoder(recorder.Body).Decode(&got); err != nil {
					t.Fatalf("Decoding response body error: %v", err)
				}

				if got.Error != tc.wantError {
					t.Errorf("got.Error = %q, want %q", got.Error, tc.wantError)
				}

				if tc.wantStatusCode == http.StatusOK && gotID != userID {
					t.Errorf("payload user id = %v, want %v", gotID, userID)
				}
			})
		}
	}
}
