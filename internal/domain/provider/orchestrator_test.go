package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/autonoos/intake-gateway/internal/apierr"
	"github.com/autonoos/intake-gateway/internal/upstream/authorizer"
	"github.com/autonoos/intake-gateway/internal/upstream/healthie"
	"github.com/autonoos/intake-gateway/pkg/circuitbreaker"
)

type fakeClinical struct {
	result *healthie.Result
	err    error
	calls  int
	gotIn  healthie.ProviderInput
}

func (f *fakeClinical) CreateReferringProvider(ctx context.Context, in healthie.ProviderInput) (*healthie.Result, error) {
	f.calls++
	f.gotIn = in
	return f.result, f.err
}

type fakeIdentity struct {
	result    *authorizer.SignupResult
	err       error
	calls     int
	gotParams authorizer.SignupParams
	// order records whether the clinical client had already been called
	clinicalCallsAtInvoke int
	clinical              *fakeClinical
}

func (f *fakeIdentity) Signup(ctx context.Context, params authorizer.SignupParams) (*authorizer.SignupResult, error) {
	f.calls++
	f.gotParams = params
	if f.clinical != nil {
		f.clinicalCallsAtInvoke = f.clinical.calls
	}
	return f.result, f.err
}

func newOrchestrator(clinical *fakeClinical, identity *fakeIdentity) *Orchestrator {
	return NewOrchestrator(clinical, identity, nil, nil, nil, nil, nil)
}

func TestSignUpSequencesClinicalFirst(t *testing.T) {
	clinical := &fakeClinical{result: &healthie.Result{ID: "77"}}
	identity := &fakeIdentity{result: &authorizer.SignupResult{}, clinical: clinical}
	o := newOrchestrator(clinical, identity)

	result, err := o.SignUp(context.Background(), validInput())
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	if clinical.calls != 1 || identity.calls != 1 {
		t.Fatalf("calls: clinical=%d identity=%d", clinical.calls, identity.calls)
	}
	if identity.clinicalCallsAtInvoke != 1 {
		t.Error("identity client invoked before clinical client completed")
	}
	if result.Healthie.ID != "77" {
		t.Errorf("healthie id = %q, want 77", result.Healthie.ID)
	}
	if identity.gotParams.Nickname != "77" {
		t.Errorf("nickname = %q, want the clinical id 77", identity.gotParams.Nickname)
	}
	if identity.gotParams.AppData["healthie_provider_id"] != "77" {
		t.Errorf("app_data missing provider id: %v", identity.gotParams.AppData)
	}
	if identity.gotParams.AppData["practice_name"] != "Clinic A" {
		t.Errorf("app_data missing practice name: %v", identity.gotParams.AppData)
	}
	if clinical.gotIn.NPI != "123456789" {
		t.Errorf("clinical npi = %q, want normalized digits", clinical.gotIn.NPI)
	}
}

func TestSignUpAbortsWhenClinicalFails(t *testing.T) {
	clinical := &fakeClinical{err: apierr.Upstream(apierr.CodeHealthieError, "healthie call failed")}
	identity := &fakeIdentity{result: &authorizer.SignupResult{}}
	o := newOrchestrator(clinical, identity)

	_, err := o.SignUp(context.Background(), validInput())
	if err == nil {
		t.Fatal("expected error")
	}
	if identity.calls != 0 {
		t.Error("identity client must never be invoked when the clinical call fails")
	}

	var e *apierr.Error
	if !errors.As(err, &e) || e.Code != apierr.CodeHealthieError {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSignUpForwardsDuplicateClinicalID(t *testing.T) {
	clinical := &fakeClinical{result: &healthie.Result{Duplicated: true, ID: "42", Message: "NPI already registered"}}
	identity := &fakeIdentity{result: &authorizer.SignupResult{}}
	o := newOrchestrator(clinical, identity)

	result, err := o.SignUp(context.Background(), validInput())
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if !result.Healthie.Duplicated {
		t.Error("duplicate should be reported, not hidden")
	}
	if identity.gotParams.Nickname != "42" {
		t.Errorf("duplicate id must still reach the identity step, got nickname %q", identity.gotParams.Nickname)
	}
	if result.Healthie.Message != "NPI already registered" {
		t.Errorf("message = %q", result.Healthie.Message)
	}
}

func TestSignUpReportsIdentityDuplicate(t *testing.T) {
	clinical := &fakeClinical{result: &healthie.Result{ID: "77"}}
	identity := &fakeIdentity{result: &authorizer.SignupResult{Duplicated: true}}
	o := newOrchestrator(clinical, identity)

	result, err := o.SignUp(context.Background(), validInput())
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if !result.Authorizer.Duplicated {
		t.Error("authorizer duplicate not reported")
	}
}

func TestSignUpRejectsMissingFieldsBeforeAnyCall(t *testing.T) {
	clinical := &fakeClinical{result: &healthie.Result{ID: "77"}}
	identity := &fakeIdentity{result: &authorizer.SignupResult{}}
	o := newOrchestrator(clinical, identity)

	raw := validInput()
	raw.Email = ""

	_, err := o.SignUp(context.Background(), raw)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if clinical.calls != 0 || identity.calls != 0 {
		t.Error("no upstream call may happen on invalid input")
	}
}

// trippedBreaker returns a breaker already in the open state.
func trippedBreaker(t *testing.T, name string) *circuitbreaker.CircuitBreaker {
	t.Helper()
	cfg := circuitbreaker.DefaultConfig(name)
	cfg.FailureThreshold = 1
	cb, err := circuitbreaker.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = cb.Execute(context.Background(), func() (interface{}, error) {
		return nil, errors.New("connection refused")
	})
	return cb
}

func TestSignUpOpenClinicalBreakerYields502(t *testing.T) {
	clinical := &fakeClinical{result: &healthie.Result{ID: "77"}}
	identity := &fakeIdentity{result: &authorizer.SignupResult{}}
	o := NewOrchestrator(clinical, identity, trippedBreaker(t, "healthie"), nil, nil, nil, nil)

	_, err := o.SignUp(context.Background(), validInput())
	var e *apierr.Error
	if !errors.As(err, &e) || e.Code != apierr.CodeHealthieError || e.Status != 502 {
		t.Fatalf("expected HEALTHIE_ERROR 502 from the open breaker, got %v", err)
	}
	if clinical.calls != 0 {
		t.Errorf("open breaker must not invoke the upstream, calls = %d", clinical.calls)
	}
	if identity.calls != 0 {
		t.Error("identity client must never be invoked when the clinical step is rejected")
	}
}

func TestSignUpOpenIdentityBreakerYields502(t *testing.T) {
	clinical := &fakeClinical{result: &healthie.Result{ID: "77"}}
	identity := &fakeIdentity{result: &authorizer.SignupResult{}}
	o := NewOrchestrator(clinical, identity, nil, trippedBreaker(t, "authorizer"), nil, nil, nil)

	_, err := o.SignUp(context.Background(), validInput())
	var e *apierr.Error
	if !errors.As(err, &e) || e.Code != apierr.CodeAuthorizerError || e.Status != 502 {
		t.Fatalf("expected AUTHORIZER_ERROR 502 from the open breaker, got %v", err)
	}
	if identity.calls != 0 {
		t.Errorf("open breaker must not invoke the upstream, calls = %d", identity.calls)
	}
}

func TestSignUpPropagatesIdentityFailure(t *testing.T) {
	clinical := &fakeClinical{result: &healthie.Result{ID: "77"}}
	identity := &fakeIdentity{err: apierr.Upstream(apierr.CodeAuthorizerError, "authorizer call failed")}
	o := newOrchestrator(clinical, identity)

	_, err := o.SignUp(context.Background(), validInput())
	var e *apierr.Error
	if !errors.As(err, &e) || e.Code != apierr.CodeAuthorizerError || e.Status != 502 {
		t.Errorf("unexpected error: %v", err)
	}
}
