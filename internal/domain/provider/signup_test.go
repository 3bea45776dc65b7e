package provider

import (
	"errors"
	"reflect"
	"testing"

	"github.com/autonoos/intake-gateway/internal/apierr"
)

func validInput() SignupInput {
	return SignupInput{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PracticeName: "Clinic A",
		NPI:          "123-45-6789",
		Email:        "ada@clinic-a.test",
		Phone:        "(915) 474-6142",
		Password:     "hunter22",
	}
}

func TestNormalizeStripsNonDigits(t *testing.T) {
	in, err := validInput().Normalize()
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if in.Phone != "9154746142" {
		t.Errorf("phone = %q, want 9154746142", in.Phone)
	}
	if in.NPI != "123456789" {
		t.Errorf("npi = %q, want 123456789", in.NPI)
	}
}

func TestNormalizeTrims(t *testing.T) {
	raw := validInput()
	raw.FirstName = "  Ada "
	raw.PracticeName = " Clinic A  "

	in, err := raw.Normalize()
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if in.FirstName != "Ada" || in.PracticeName != "Clinic A" {
		t.Errorf("fields not trimmed: %+v", in)
	}
}

func TestNormalizeReportsExactMissingFields(t *testing.T) {
	raw := validInput()
	raw.LastName = "   "
	raw.Phone = "ext."
	raw.Password = ""

	_, err := raw.Normalize()
	if err == nil {
		t.Fatal("expected validation error")
	}

	var e *apierr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *apierr.Error, got %T", err)
	}
	if e.Status != 400 || e.Code != apierr.CodeValidation {
		t.Errorf("unexpected error shape: %+v", e)
	}
	want := []string{"lastName", "phone", "password"}
	if !reflect.DeepEqual(e.Fields, want) {
		t.Errorf("fields = %v, want %v", e.Fields, want)
	}
}

func TestDigitsOnly(t *testing.T) {
	if got := DigitsOnly("(915) 474-6142"); got != "9154746142" {
		t.Errorf("DigitsOnly = %q", got)
	}
	if got := DigitsOnly("no digits"); got != "" {
		t.Errorf("DigitsOnly = %q, want empty", got)
	}
}

func TestNormalizePracticeName(t *testing.T) {
	if NormalizePracticeName("Autonoos LLC ") != NormalizePracticeName("autonoos llc") {
		t.Error("practice name normalization should be case- and whitespace-insensitive")
	}
}
