package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/pricetracker/internal/domain/preferences"
	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/geocoder89/pricetracker/internal/http/handlers"
	"github.com/geocoder89/pricetracker/internal/http/middlewares"
	"github.com/geocoder89/pricetracker/internal/validation"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                  `json:"json"`
			Field  string                  `json:"field"`
			Fields []validation.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindRouter[T any]() *gin.Engine {
	r := gin.New()
	r.Use(middlewares.MaxBodyBytes(256))
	r.POST("/bind", func(ctx *gin.Context) {
		var req T
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})
	return r
}

func postBind(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/bind", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	w := postBind(bindRouter[user.RegisterRequest](), `{"email":"not-an-email","username":"ab"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}

	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}

	wantRules := map[string]string{
		"email":    "email",
		"username": "min",
		"password": "required",
	}

	found := map[string]validation.FieldError{}
	for _, fieldErr := range resp.Error.Details.Fields {
		found[fieldErr.Field] = fieldErr
	}

	for field, rule := range wantRules {
		fieldErr, ok := found[field]
		if !ok {
			t.Fatalf("missing field error for %q: %+v", field, resp.Error.Details.Fields)
		}
		if fieldErr.Rule != rule {
			t.Fatalf("field %q rule mismatch: got %q want %q", field, fieldErr.Rule, rule)
		}
		if fieldErr.Message == "" {
			t.Fatalf("field %q should include a non-empty message", field)
		}
	}
}

func TestBindJSON_TypeMismatchUsesJSONFieldNames(t *testing.T) {
	body := `{"currency":"EUR","locale":"de-DE","timezone":"Europe/Berlin","priceAlertEmails":"yes","weeklyDigest":false}`
	w := postBind(bindRouter[preferences.UpdateRequest](), body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}

	if resp.Error.Details.JSON != "invalid_json_type" {
		t.Fatalf("expected invalid_json_type, got %q", resp.Error.Details.JSON)
	}
	if resp.Error.Details.Field != "priceAlertEmails" {
		t.Fatalf("expected detail field to be priceAlertEmails, got %q", resp.Error.Details.Field)
	}
	if len(resp.Error.Details.Fields) == 0 || resp.Error.Details.Fields[0].Rule != "type" {
		t.Fatalf("expected a type rule in details.fields, got %+v", resp.Error.Details.Fields)
	}
}

func TestBindJSON_SyntaxError(t *testing.T) {
	w := postBind(bindRouter[user.LoginRequest](), `{"email": }`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "invalid_json") {
		t.Fatalf("expected invalid_json detail, body=%s", w.Body.String())
	}
}

func TestBindJSON_BodyTooLarge(t *testing.T) {
	big := `{"email":"a@example.com","password":"` + strings.Repeat("x", 512) + `"}`
	r := bindRouter[user.LoginRequest]()

	// declared length: rejected before the body is read
	w := postBind(r, big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("declared: got status %d, want %d, body=%s", w.Code, http.StatusRequestEntityTooLarge, w.Body.String())
	}

	// unknown length: cut off while binding
	req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("streamed: got status %d, want %d, body=%s", w.Code, http.StatusRequestEntityTooLarge, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "payload_too_large") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestBindJSON_PasswordOverBcryptByteLimit(t *testing.T) {
	body := `{"email":"sam@example.com","username":"sam","password":"` + strings.Repeat("é", 40) + `"}`

	w := postBind(bindRouter[user.RegisterRequest](), body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}

	if len(resp.Error.Details.Fields) != 1 {
		t.Fatalf("expected one field error, got %+v", resp.Error.Details.Fields)
	}
	if f := resp.Error.Details.Fields[0]; f.Field != "password" || f.Rule != "bcrypt_len" {
		t.Fatalf("unexpected field error: %+v", f)
	}
}
