package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/letwise/onboarding/internal/core/domain"
	"github.com/letwise/onboarding/internal/core/ports"
)

type authFixture struct {
	users    *stubUserRepo
	sessions *stubSessionStore
	hasher   *stubHasher
	events   *stubPublisher
	clock    *fakeClock
	svc      *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:    newStubUserRepo(),
		sessions: newStubSessionStore(),
		hasher:   &stubHasher{},
		events:   &stubPublisher{},
		clock:    newFakeClock(),
	}
	f.svc = NewAuthService(f.users, f.sessions, f.hasher, 0,
		WithClock(f.clock.Now),
		WithEventPublisher(f.events),
	)
	return f
}

func tenantSignUp(email string) ports.SignUpInput {
	return ports.SignUpInput{
		Email:    email,
		Password: "pass123",
		Role:     "Tenant",
		Profile: map[string]any{
			"fullName":       "Alice Smith",
			"currentAddress": "1 High St",
			"currentIncome":  "42000",
			"pets":           1.0,
		},
	}
}

func TestAuthService_SignUp_Success(t *testing.T) {
	f := newAuthFixture()

	sid, err := f.svc.SignUp(context.Background(), tenantSignUp("  Alice@Example.com "))
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}
	if sid == "" {
		t.Fatalf("expected session id")
	}

	sess, ok := f.sessions.get(sid)
	if !ok {
		t.Fatalf("session %s not stored", sid)
	}
	wantExp := f.clock.Now().Add(30 * 24 * time.Hour).UnixMilli()
	if sess.ExpirationTime != wantExp {
		t.Fatalf("expiration = %d, want %d", sess.ExpirationTime, wantExp)
	}

	user, _ := f.users.Get(context.Background(), sess.UserID)
	if user == nil {
		t.Fatalf("user not stored")
	}
	if user.Email != "alice@example.com" || user.UserKey != "alice@example.com" {
		t.Fatalf("email not normalized: %+v", user)
	}
	if user.PasswordHash == "pass123" {
		t.Fatalf("expected password to be hashed")
	}
	if user.Role != domain.RoleTenant {
		t.Fatalf("unexpected role: %s", user.Role)
	}
	profile, ok := user.Profile.(domain.TenantProfile)
	if !ok {
		t.Fatalf("expected TenantProfile, got %T", user.Profile)
	}
	if profile.CurrentIncome != 42000 || profile.Pets != 1 || profile.Smoker != "no" {
		t.Fatalf("profile not normalized: %+v", profile)
	}

	if len(f.events.events) != 1 || f.events.events[0].UserID != sess.UserID {
		t.Fatalf("expected one UserRegistered event, got %+v", f.events.events)
	}
}

func TestAuthService_SignUp_StoredProfilePerRole(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		profile map[string]any
		want    domain.Profile
	}{
		{
			name:    "landlord",
			role:    "Landlord",
			profile: map[string]any{"fullName": "Lena Lord", "numberOfProperties": 3.0},
			want:    domain.LandlordProfile{FullName: "Lena Lord", NumberOfProperties: 3},
		},
		{
			name:    "landlord count as string",
			role:    "Landlord",
			profile: map[string]any{"numberOfProperties": "3"},
			want:    domain.LandlordProfile{NumberOfProperties: 3},
		},
		{
			name: "cleaner in details envelope",
			role: "Cleaner",
			profile: map[string]any{"details": map[string]any{
				"availability": []any{"Sat", "Sun"},
				"miles":        "5",
			}},
			want: domain.ServiceProfile{
				Availability: []string{"Sat", "Sun"},
				KeySkills:    []string{},
				Miles:        5,
				Images:       []string{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			sid, err := f.svc.SignUp(context.Background(), ports.SignUpInput{
				Email:    "owner@example.com",
				Password: "pass123",
				Role:     tt.role,
				Profile:  tt.profile,
			})
			if err != nil {
				t.Fatalf("SignUp returned error: %v", err)
			}

			sess, _ := f.sessions.get(sid)
			user, _ := f.users.Get(context.Background(), sess.UserID)
			if user == nil {
				t.Fatalf("user not stored")
			}
			if string(user.Role) != tt.role {
				t.Fatalf("role = %s, want %s", user.Role, tt.role)
			}
			if !reflect.DeepEqual(user.Profile, tt.want) {
				t.Fatalf("stored profile %#v\nwant %#v", user.Profile, tt.want)
			}
		})
	}
}

func TestAuthService_SignUp_Duplicate(t *testing.T) {
	f := newAuthFixture()

	if _, err := f.svc.SignUp(context.Background(), tenantSignUp("bob@example.com")); err != nil {
		t.Fatalf("first SignUp failed: %v", err)
	}
	sessionsBefore := f.sessions.count()

	_, err := f.svc.SignUp(context.Background(), tenantSignUp("BOB@example.com"))
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if f.sessions.count() != sessionsBefore {
		t.Fatalf("no session must be created on conflict")
	}
	if f.users.count() != 1 {
		t.Fatalf("expected 1 user, got %d", f.users.count())
	}
}

func TestAuthService_SignUp_LateDuplicateFromStore(t *testing.T) {
	f := newAuthFixture()
	f.users.insertErr = domain.ErrDuplicateEmail

	_, err := f.svc.SignUp(context.Background(), tenantSignUp("carol@example.com"))
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if f.sessions.count() != 0 {
		t.Fatalf("no session must be created on conflict")
	}
}

func TestAuthService_SignUp_ConcurrentSameEmail(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newAuthFixture()
	const n = 2
	f.users.findBarrier = &sync.WaitGroup{}
	f.users.findBarrier.Add(n)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.SignUp(context.Background(), tenantSignUp("race@example.com"))
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrUserExists):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("expected one success and one conflict, got %d/%d", ok, conflicts)
	}
	if f.users.count() != 1 {
		t.Fatalf("expected 1 user, got %d", f.users.count())
	}
	if f.sessions.count() != 1 {
		t.Fatalf("expected 1 session, got %d", f.sessions.count())
	}
}

func TestAuthService_SignUp_ValidationBeforeStore(t *testing.T) {
	tests := []struct {
		name  string
		in    ports.SignUpInput
		field string
	}{
		{
			name:  "unknown role",
			in:    ports.SignUpInput{Email: "a@b.c", Password: "p", Role: "Admin", Profile: map[string]any{"currentAddress": "x"}},
			field: "role",
		},
		{
			name:  "missing email",
			in:    ports.SignUpInput{Email: "  ", Password: "p", Role: "Tenant", Profile: map[string]any{"currentAddress": "x"}},
			field: "email",
		},
		{
			name:  "missing password",
			in:    ports.SignUpInput{Email: "a@b.c", Role: "Tenant", Profile: map[string]any{"currentAddress": "x"}},
			field: "password",
		},
		{
			name:  "profile missing discriminating field",
			in:    ports.SignUpInput{Email: "a@b.c", Password: "p", Role: "Landlord", Profile: map[string]any{"fullName": "L"}},
			field: "numberOfProperties",
		},
		{
			name:  "profile of another role",
			in:    ports.SignUpInput{Email: "a@b.c", Password: "p", Role: "Cleaner", Profile: map[string]any{"currentAddress": "x"}},
			field: "availability",
		},
		{
			name:  "bad smoker value",
			in:    ports.SignUpInput{Email: "a@b.c", Password: "p", Role: "Tenant", Profile: map[string]any{"currentAddress": "x", "smoker": "sometimes"}},
			field: "smoker",
		},
		{
			name:  "missing profile",
			in:    ports.SignUpInput{Email: "a@b.c", Password: "p", Role: "Maintenance"},
			field: "profile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			f.users.findErr = errors.New("store must not be reached")

			_, err := f.svc.SignUp(context.Background(), tt.in)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Fatalf("field = %q, want %q", ve.Field, tt.field)
			}
			if f.users.count() != 0 || f.sessions.count() != 0 {
				t.Fatalf("nothing may be written on validation failure")
			}
		})
	}
}

func TestAuthService_SignUp_PublishFailureIsNotFatal(t *testing.T) {
	f := newAuthFixture()
	f.events.err = errors.New("broker down")

	if _, err := f.svc.SignUp(context.Background(), tenantSignUp("dave@example.com")); err != nil {
		t.Fatalf("SignUp must succeed when publishing fails: %v", err)
	}
}

func TestAuthService_SignUp_WithoutPublisher(t *testing.T) {
	svc := NewAuthService(newStubUserRepo(), newStubSessionStore(), &stubHasher{}, time.Hour)
	if _, err := svc.SignUp(context.Background(), tenantSignUp("erin@example.com")); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
}

func TestAuthService_SignIn_Success(t *testing.T) {
	f := newAuthFixture()
	first, err := f.svc.SignUp(context.Background(), tenantSignUp("carol@example.com"))
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	sid, err := f.svc.SignIn(context.Background(), "Carol@Example.com", "pass123")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if sid == "" || sid == first {
		t.Fatalf("expected a fresh session id, got %q", sid)
	}
	if _, ok := f.sessions.get(first); !ok {
		t.Fatalf("existing sessions must survive a new sign-in")
	}
	if f.users.patches != 0 {
		t.Fatalf("current hashes must not be rewritten")
	}
}

func TestAuthService_SignIn_Failures(t *testing.T) {
	f := newAuthFixture()
	if _, err := f.svc.SignUp(context.Background(), tenantSignUp("dave@example.com")); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	_, err := f.svc.SignIn(context.Background(), "ghost@example.com", "pass123")
	if !errors.Is(err, domain.ErrEmailNotFound) {
		t.Fatalf("expected ErrEmailNotFound, got %v", err)
	}

	_, err = f.svc.SignIn(context.Background(), "dave@example.com", "badpass")
	if !errors.Is(err, domain.ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}
	var ae *domain.AuthError
	if !errors.As(err, &ae) || ae.Message != "Incorrect password" {
		t.Fatalf("expected AuthError message, got %v", err)
	}

	_, err = f.svc.SignIn(context.Background(), "", "pass123")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAuthService_SignIn_UnreadableHash(t *testing.T) {
	f := newAuthFixture()
	f.users.users["u1"] = &domain.User{ID: "u1", Email: "frank@example.com", PasswordHash: "garbage", Role: domain.RoleLandlord}

	_, err := f.svc.SignIn(context.Background(), "frank@example.com", "pass123")
	if !errors.Is(err, domain.ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}
}

func TestAuthService_SignIn_UpgradesLegacyHash(t *testing.T) {
	f := newAuthFixture()
	f.users.users["u1"] = &domain.User{ID: "u1", Email: "gina@example.com", PasswordHash: legacyPrefix + "oldpass", Role: domain.RoleCleaner}

	if _, err := f.svc.SignIn(context.Background(), "gina@example.com", "oldpass"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	u, _ := f.users.Get(context.Background(), "u1")
	if u.PasswordHash != stubPrefix+"oldpass" {
		t.Fatalf("hash not upgraded: %q", u.PasswordHash)
	}

	if _, err := f.svc.SignIn(context.Background(), "gina@example.com", "oldpass"); err != nil {
		t.Fatalf("SignIn with upgraded hash failed: %v", err)
	}
}

func TestAuthService_SignIn_UpgradeFailureIsNotFatal(t *testing.T) {
	f := newAuthFixture()
	f.users.users["u1"] = &domain.User{ID: "u1", Email: "hal@example.com", PasswordHash: legacyPrefix + "oldpass", Role: domain.RoleTenant}
	f.users.patchErr = errors.New("write failed")

	if _, err := f.svc.SignIn(context.Background(), "hal@example.com", "oldpass"); err != nil {
		t.Fatalf("SignIn must succeed when the upgrade fails: %v", err)
	}
}

func TestAuthService_SignOut(t *testing.T) {
	f := newAuthFixture()
	sid, err := f.svc.SignUp(context.Background(), tenantSignUp("ivy@example.com"))
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	if err := f.svc.SignOut(context.Background(), sid); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if _, ok := f.sessions.get(sid); ok {
		t.Fatalf("session must be deleted")
	}
	if err := f.svc.SignOut(context.Background(), sid); err != nil {
		t.Fatalf("second SignOut must be a no-op: %v", err)
	}

	deletes := f.sessions.deletes
	if err := f.svc.SignOut(context.Background(), ""); err != nil {
		t.Fatalf("empty SignOut failed: %v", err)
	}
	if f.sessions.deletes != deletes {
		t.Fatalf("empty id must not reach the store")
	}

	if _, err := f.svc.VerifyAndRefresh(context.Background(), sid); !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("signed-out session must be invalid, got %v", err)
	}
}

func TestAuthService_VerifyAndRefresh_Slides(t *testing.T) {
	f := newAuthFixture()
	sid, err := f.svc.SignUp(context.Background(), tenantSignUp("jack@example.com"))
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	owner, _ := f.sessions.get(sid)

	f.clock.Advance(29 * 24 * time.Hour)
	userID, err := f.svc.VerifyAndRefresh(context.Background(), sid)
	if err != nil {
		t.Fatalf("VerifyAndRefresh failed: %v", err)
	}
	if userID != owner.UserID {
		t.Fatalf("userID = %q, want %q", userID, owner.UserID)
	}

	sess, _ := f.sessions.get(sid)
	want := f.clock.Now().Add(30 * 24 * time.Hour).UnixMilli()
	if sess.ExpirationTime != want {
		t.Fatalf("expiration not slid: got %d want %d", sess.ExpirationTime, want)
	}

	// Twenty-nine more days: still valid because of the slide.
	f.clock.Advance(29 * 24 * time.Hour)
	if _, err := f.svc.VerifyAndRefresh(context.Background(), sid); err != nil {
		t.Fatalf("refreshed session must stay valid: %v", err)
	}
}

func TestAuthService_VerifyAndRefresh_Boundary(t *testing.T) {
	f := newAuthFixture()
	sid, err := f.svc.SignUp(context.Background(), tenantSignUp("kate@example.com"))
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	f.clock.Advance(30 * 24 * time.Hour)
	if _, err := f.svc.VerifyAndRefresh(context.Background(), sid); err != nil {
		t.Fatalf("session expiring exactly now must be valid: %v", err)
	}

	f.clock.Advance(30*24*time.Hour + time.Millisecond)
	if _, err := f.svc.VerifyAndRefresh(context.Background(), sid); !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, ok := f.sessions.get(sid); ok {
		t.Fatalf("expired session must be removed")
	}
}

func TestAuthService_VerifyAndRefresh_Invalid(t *testing.T) {
	f := newAuthFixture()

	for _, sid := range []string{"", "unknown"} {
		if _, err := f.svc.VerifyAndRefresh(context.Background(), sid); !errors.Is(err, domain.ErrInvalidSession) {
			t.Fatalf("%q: expected ErrInvalidSession, got %v", sid, err)
		}
	}
}

func TestAuthService_VerifyAndRefresh_SessionVanishes(t *testing.T) {
	f := newAuthFixture()
	sid, err := f.svc.SignUp(context.Background(), tenantSignUp("liam@example.com"))
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	f.sessions.patchErr = domain.ErrSessionNotFound

	if _, err := f.svc.VerifyAndRefresh(context.Background(), sid); !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestAuthService_VerifyAndRefresh_StoreFailure(t *testing.T) {
	f := newAuthFixture()
	sid, err := f.svc.SignUp(context.Background(), tenantSignUp("mia@example.com"))
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	boom := errors.New("redis down")
	f.sessions.patchErr = boom

	_, err = f.svc.VerifyAndRefresh(context.Background(), sid)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("store faults must not look like an invalid session")
	}
}

func TestAuthService_CurrentUser(t *testing.T) {
	f := newAuthFixture()
	if _, err := f.svc.SignUp(context.Background(), tenantSignUp("noah@example.com")); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	u, err := f.svc.CurrentUser(context.Background(), "noah@example.com")
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if u.Role != domain.RoleTenant {
		t.Fatalf("unexpected role %s", u.Role)
	}

	if _, err := f.svc.CurrentUser(context.Background(), "ghost@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
