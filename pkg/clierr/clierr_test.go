package clierr

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/phynance/phyn/client"
)

func TestError_ErrorAndUnwrap(t *testing.T) {
	root := errors.New("connection reset")
	tests := []struct {
		name    string
		err     *Error
		wantMsg string
		wantNil bool
	}{
		{"simple", New(Validation, "invalid symbol", nil), "invalid symbol", true},
		{"wrapped", New(Network, "api unreachable", root), "api unreachable", false},
		{"empty message", New(Internal, "", nil), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if (tt.err.Unwrap() == nil) != tt.wantNil {
				t.Errorf("Unwrap() nil = %v, want %v", tt.err.Unwrap() == nil, tt.wantNil)
			}
		})
	}

	if !errors.Is(New(Network, "x", root), root) {
		t.Error("errors.Is should find the underlying error")
	}
}

func TestType_ExitCode(t *testing.T) {
	tests := map[Type]int{
		Validation: 2,
		Auth:       3,
		Network:    4,
		NotFound:   5,
		Remote:     6,
		Internal:   1,
		Type("?"):  1,
	}
	for typ, want := range tests {
		if got := typ.ExitCode(); got != want {
			t.Errorf("%s.ExitCode() = %d, want %d", typ, got, want)
		}
	}
}

func TestFromAPI(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType Type
		contains string
	}{
		{"authentication", &client.Error{Kind: client.KindAuthentication, Status: 401}, Auth, "phyn login"},
		{"authorization", &client.Error{Kind: client.KindAuthorization, Status: 403}, Auth, "not allowed"},
		{"network", &client.Error{Kind: client.KindNetwork}, Network, "unreachable"},
		{"server", &client.Error{Kind: client.KindServer, Status: 503}, Remote, "status 503"},
		{"not found", &client.Error{Kind: client.KindRequest, Status: 404, Message: "No historical data found for symbol: XYZ"}, NotFound, "XYZ"},
		{"bad request", &client.Error{Kind: client.KindRequest, Status: 400, Message: "Symbol is required"}, Validation, "Symbol is required"},
		{"rate limited", &client.Error{Kind: client.KindRequest, Status: 429, Message: "Rate limit exceeded"}, Remote, "status 429"},
		{"wrapped", fmt.Errorf("outer: %w", &client.Error{Kind: client.KindNetwork}), Network, "unreachable"},
		{"plain", errors.New("disk full"), Internal, "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromAPI("fetch summary", tt.err)
			if got.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", got.Type, tt.wantType)
			}
			if !strings.HasPrefix(got.Message, "fetch summary failed") {
				t.Errorf("Message %q lacks action prefix", got.Message)
			}
			if !strings.Contains(got.Message, tt.contains) {
				t.Errorf("Message %q does not contain %q", got.Message, tt.contains)
			}
			if !errors.Is(got, tt.err) {
				t.Error("the original error must stay reachable")
			}
		})
	}
}

func TestFromAPI_PassThrough(t *testing.T) {
	if FromAPI("x", nil) != nil {
		t.Error("nil in, nil out")
	}
	orig := New(Validation, "bad flag", nil)
	if got := FromAPI("x", fmt.Errorf("wrap: %w", orig)); got != orig {
		t.Errorf("FromAPI should return the existing *Error, got %v", got)
	}
}
