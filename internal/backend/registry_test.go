package backend

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
)

type stubDriver struct{ kind Kind }

func (d stubDriver) Kind() Kind                 { return d.kind }
func (d stubDriver) Capabilities() Capabilities { return Capabilities{} }
func (d stubDriver) Open(context.Context, Target) (Conn, error) {
	return nil, errors.New("stub")
}

func registryWith(kinds ...Kind) *Registry {
	r := NewRegistry()
	for _, k := range kinds {
		r.Register(stubDriver{kind: k})
	}
	return r
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		kinds   []Kind
		token   string
		want    Kind
		wantErr error
	}{
		{name: "mysql prefers enhanced", kinds: []Kind{KindMySQLLegacy, KindMySQLEnhanced}, token: "mysql", want: KindMySQLEnhanced},
		{name: "mysql falls back to legacy", kinds: []Kind{KindMySQLLegacy}, token: "mysql", want: KindMySQLLegacy},
		{name: "mysql with nothing registered", token: "mysql", wantErr: ErrDriverUnavailable},
		{name: "mysqli enhanced only", kinds: []Kind{KindMySQLEnhanced}, token: "mysqli", want: KindMySQLEnhanced},
		{name: "mysqli never falls back", kinds: []Kind{KindMySQLLegacy}, token: "mysqli", wantErr: ErrDriverUnavailable},
		{name: "postgresql", kinds: []Kind{KindPostgreSQL}, token: "postgresql", want: KindPostgreSQL},
		{name: "postgresql missing", kinds: []Kind{KindMySQLEnhanced}, token: "postgresql", wantErr: ErrDriverUnavailable},
		{name: "token is case-insensitive", kinds: []Kind{KindMySQLEnhanced}, token: "MySQL", want: KindMySQLEnhanced},
		{name: "unknown token", kinds: []Kind{KindPostgreSQL}, token: "oracle", wantErr: ErrUnsupportedDriver},
		{name: "postgres alias not recognized", kinds: []Kind{KindPostgreSQL}, token: "postgres", wantErr: ErrUnsupportedDriver},
		{name: "empty token", token: "", wantErr: ErrUnsupportedDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := registryWith(tt.kinds...).Resolve(tt.token)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%q) error = %v, want %v", tt.token, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.token, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.token, got, tt.want)
			}
		})
	}
}

func TestAvailable(t *testing.T) {
	got := registryWith(KindMySQLLegacy, KindPostgreSQL).Available()
	want := []string{"mysql", "postgresql"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}

	got = registryWith(KindMySQLEnhanced).Available()
	want = []string{"mysql", "mysqli"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	r := registryWith(KindPostgreSQL)
	defer func() {
		if recover() == nil {
			t.Error("second Register did not panic")
		}
	}()
	r.Register(stubDriver{kind: KindPostgreSQL})
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindMySQLLegacy:   "mysql",
		KindMySQLEnhanced: "mysqli",
		KindPostgreSQL:    "postgresql",
		Kind(42):          "kind(42)",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}

func TestStrings(t *testing.T) {
	got, err := Strings([]any{[]byte("abc"), int64(5), nil, "x", 1.5})
	if err != nil {
		t.Fatalf("Strings: %v", err)
	}
	want := []sql.NullString{
		{String: "abc", Valid: true},
		{String: "5", Valid: true},
		{},
		{String: "x", Valid: true},
		{String: "1.5", Valid: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Strings = %#v, want %#v", got, want)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, nil) != nil {
		t.Error("Wrap(nil) != nil")
	}

	inner := &Error{Code: "1045", Message: "Access denied"}
	if got := Wrap(inner, nil); got != error(inner) {
		t.Errorf("Wrap re-wrapped an *Error: %v", got)
	}

	var be *Error
	if !errors.As(Wrap(errors.New("boom"), nil), &be) || be.Code != CodeGeneral || be.Message != "boom" {
		t.Errorf("Wrap(plain) = %+v, want general code", be)
	}
	if got := inner.Error(); got != "1045 : Access denied" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCheckPort(t *testing.T) {
	for _, port := range []int{1, 3307, 65535} {
		if err := CheckPort(port); err != nil {
			t.Errorf("CheckPort(%d) = %v", port, err)
		}
	}
	for _, port := range []int{0, -1, 65536, 1 << 20} {
		if err := CheckPort(port); !errors.Is(err, ErrInvalidPort) {
			t.Errorf("CheckPort(%d) = %v, want ErrInvalidPort", port, err)
		}
	}
}
