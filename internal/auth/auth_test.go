package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/areyoudear/stageside-sub001/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	userID, err := svc.Register(ctx, "casey", "correct horse battery staple")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if userID == "" {
		t.Fatal("Register returned empty user ID")
	}

	token, err := svc.Login(ctx, "casey", "correct horse battery staple")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	gotID, err := svc.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if gotID != userID {
		t.Errorf("session user = %q, want %q", gotID, userID)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	if _, err := svc.Register(ctx, "casey", "pw one"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "casey", "pw two"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	if _, err := svc.Register(ctx, "casey", "right"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, "casey", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody", "right"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLongPassword(t *testing.T) {
	// bcrypt truncates at 72 bytes; the SHA-256 prehash keeps long passwords
	// fully significant.
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	long := strings.Repeat("a", 100)
	if _, err := svc.Register(ctx, "casey", long); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, "casey", long); err != nil {
		t.Fatalf("Login with long password: %v", err)
	}
	if _, err := svc.Login(ctx, "casey", long+"b"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials past the bcrypt limit", err)
	}
}

func TestLogout(t *testing.T) {
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	if _, err := svc.Register(ctx, "casey", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, err := svc.Login(ctx, "casey", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ValidateSession(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials after logout", err)
	}
}
