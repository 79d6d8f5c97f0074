package services

import (
	"context"
	"testing"

	"maflab-backend/internal/models"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		pw      string
		wantErr bool
	}{
		{"valid", "password1", false},
		{"too short", "pass1", true},
		{"no number", "passwordonly", true},
		{"exactly 8 with number", "abcdefg1", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.pw)
			if tc.wantErr && err == nil {
				t.Error("Expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestEmailRegex(t *testing.T) {
	valid := []string{"a@b.co", "user.name+tag@example.org"}
	invalid := []string{"", "plain", "a@b", "@example.com", "a @b.co"}

	for _, e := range valid {
		if !emailRegex.MatchString(e) {
			t.Errorf("Expected %q to be valid", e)
		}
	}
	for _, e := range invalid {
		if emailRegex.MatchString(e) {
			t.Errorf("Expected %q to be invalid", e)
		}
	}
}

// Field validation runs before any store access, so an AuthService with nil
// dependencies is enough to exercise the rejection paths.
func TestRegister_FieldValidation(t *testing.T) {
	s := &AuthService{}

	tests := []struct {
		name      string
		req       models.RegisterRequest
		wantField string
	}{
		{
			"student without study cycle",
			models.RegisterRequest{
				FullName: "Ana Costa", Email: "ana@example.com",
				Password: "password1", Role: models.RoleStudent,
			},
			"study_cycle",
		},
		{
			"unknown role",
			models.RegisterRequest{
				FullName: "Ana Costa", Email: "ana@example.com",
				Password: "password1", Role: "superuser",
			},
			"role",
		},
		{
			"bad email",
			models.RegisterRequest{
				FullName: "Ana Costa", Email: "not-an-email",
				Password: "password1", Role: models.RoleAdvisor,
			},
			"email",
		},
		{
			"weak password",
			models.RegisterRequest{
				FullName: "Ana Costa", Email: "ana@example.com",
				Password: "short", Role: models.RoleAdvisor,
			},
			"password",
		},
		{
			"missing name",
			models.RegisterRequest{
				Email: "ana@example.com", Password: "password1", Role: models.RoleAdvisor,
			},
			"full_name",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := s.Register(context.Background(), tc.req)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Expected *ValidationError, got %T: %v", err, err)
			}
			if _, ok := ve.Fields[tc.wantField]; !ok {
				t.Errorf("Expected field error on %q, got %v", tc.wantField, ve.Fields)
			}
		})
	}
}

// Advisors have no study cycle, so its absence must not fail validation.
// The service then moves on to the uniqueness check, which needs a store;
// a ValidationError here would be a regression.
func TestRegister_AdvisorWithoutCycleIsNotAFieldError(t *testing.T) {
	defer func() {
		// The nil repo panics on the uniqueness lookup; reaching it means
		// field validation passed.
		recover()
	}()

	s := &AuthService{}
	_, _, err := s.Register(context.Background(), models.RegisterRequest{
		FullName: "Rui Alves", Email: "rui@example.com",
		Password: "password1", Role: models.RoleAdvisor,
	})
	if _, ok := err.(*ValidationError); ok {
		t.Errorf("Advisor without study cycle should not be a field error, got %v", err)
	}
}
