package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/geocoder89/pricetracker/internal/domain/preferences"
	"github.com/geocoder89/pricetracker/internal/domain/user"
)

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(user.RegisterRequest{Email: "not-an-email", Username: "a", Password: "short"})

	var fields Errors
	if !errors.As(err, &fields) {
		t.Fatalf("expected Errors, got %T %v", err, err)
	}

	want := map[string]string{
		"email":    "email",
		"username": "min",
		"password": "min",
	}

	got := map[string]string{}
	for _, f := range fields {
		got[f.Field] = f.Rule
		if f.Message == "" {
			t.Fatalf("field %q has no message", f.Field)
		}
	}

	for field, rule := range want {
		if got[field] != rule {
			t.Fatalf("field %q rule = %q, want %q (all: %+v)", field, got[field], rule, fields)
		}
	}
}

func TestStructPasses(t *testing.T) {
	if err := Struct(user.RegisterRequest{Email: "sam@example.com", Username: "sam", Password: "password123"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStructChangePasswordMustDiffer(t *testing.T) {
	err := Struct(user.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "password123"})

	var fields Errors
	if !errors.As(err, &fields) || len(fields) != 1 {
		t.Fatalf("expected one field error, got %v", err)
	}

	if fields[0].Field != "newPassword" || fields[0].Rule != "nefield" {
		t.Fatalf("unexpected field error: %+v", fields[0])
	}
}

func TestStructPreferences(t *testing.T) {
	yes := true

	err := Struct(preferences.UpdateRequest{
		Currency:         "usd",
		Locale:           "en-US",
		Timezone:         "Mars/Olympus",
		PriceAlertEmails: &yes,
	})

	var fields Errors
	if !errors.As(err, &fields) {
		t.Fatalf("expected Errors, got %v", err)
	}

	got := map[string]string{}
	for _, f := range fields {
		got[f.Field] = f.Rule
	}

	if got["currency"] != "uppercase" {
		t.Fatalf("currency rule = %q", got["currency"])
	}
	if got["timezone"] != "timezone" {
		t.Fatalf("timezone rule = %q", got["timezone"])
	}
	if got["weeklyDigest"] != "required" {
		t.Fatalf("weeklyDigest rule = %q", got["weeklyDigest"])
	}
}

func TestStructPasswordByteLimit(t *testing.T) {
	// 40 characters, 80 bytes: within max=72 runes but over bcrypt's limit
	accented := strings.Repeat("é", 40)

	err := Struct(user.RegisterRequest{Email: "sam@example.com", Username: "sam", Password: accented})

	var fields Errors
	if !errors.As(err, &fields) || len(fields) != 1 {
		t.Fatalf("expected one field error, got %v", err)
	}
	if fields[0].Field != "password" || fields[0].Rule != "bcrypt_len" {
		t.Fatalf("unexpected field error: %+v", fields[0])
	}

	err = Struct(user.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: accented})
	if !errors.As(err, &fields) || fields[0].Field != "newPassword" || fields[0].Rule != "bcrypt_len" {
		t.Fatalf("expected newPassword bcrypt_len error, got %v", err)
	}

	if err := Struct(user.RegisterRequest{Email: "sam@example.com", Username: "sam", Password: strings.Repeat("é", 36)}); err != nil {
		t.Fatalf("72 bytes must pass, got %v", err)
	}
}
