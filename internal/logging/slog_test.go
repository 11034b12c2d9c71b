package logging

import (
	"log/slog"
	"strings"
	"testing"
)

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{name: "regular email", email: "user@example.com"},
		{name: "another email", email: "someone.else@example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnonymizeEmail(tt.email)
			if !strings.HasPrefix(got, "user:") {
				t.Errorf("AnonymizeEmail() = %v, want user: prefix", got)
			}
			if strings.Contains(got, tt.email) {
				t.Errorf("AnonymizeEmail() leaked the raw email: %v", got)
			}
			// Same input must hash to the same value for correlation
			if got != AnonymizeEmail(tt.email) {
				t.Error("AnonymizeEmail() is not deterministic")
			}
		})
	}
}

func TestAnonymizeEmailEmpty(t *testing.T) {
	if got := AnonymizeEmail(""); got != "" {
		t.Errorf("AnonymizeEmail(\"\") = %v, want empty", got)
	}
}

func TestErrNil(t *testing.T) {
	attr := Err(nil)
	if attr.Value.Kind() != slog.KindGroup {
		t.Errorf("Err(nil) kind = %v, want group", attr.Value.Kind())
	}
	if len(attr.Value.Group()) != 0 {
		t.Error("Err(nil) should produce an empty group")
	}
}

func TestAttributeKeys(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		key  string
		val  string
	}{
		{name: "operation", attr: Operation("lookup"), key: KeyOperation, val: "lookup"},
		{name: "service", attr: Service("gmail"), key: KeyService, val: "gmail"},
		{name: "status", attr: Status(StatusSuccess), key: KeyStatus, val: "success"},
		{name: "call id", attr: CallID("conv-123"), key: KeyCallID, val: "conv-123"},
		{name: "vendor", attr: Vendor("Acme"), key: KeyVendor, val: "Acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("key = %v, want %v", tt.attr.Key, tt.key)
			}
			if tt.attr.Value.String() != tt.val {
				t.Errorf("value = %v, want %v", tt.attr.Value.String(), tt.val)
			}
		})
	}
}
