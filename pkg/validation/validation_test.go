package validation

import (
	"strings"
	"testing"
)

func TestValidateRoomID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid id", "room-123", false},
		{"valid with underscore", "room_abc", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 101), true},
		{"invalid characters", "room 123", true},
		{"path traversal", "../etc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoomID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRoomID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRoomTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"valid title", "Friday flash sale", false},
		{"unicode title", "夏のセール", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"too long", strings.Repeat("x", 201), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoomTitle(tt.title)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRoomTitle() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid username", "seller123", false},
		{"valid with underscore", "live_seller", false},
		{"too short", "ab", true},
		{"empty", "", true},
		{"invalid characters", "user name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUserID(t *testing.T) {
	if err := ValidateUserID(42); err != nil {
		t.Errorf("ValidateUserID(42) = %v, want nil", err)
	}
	if err := ValidateUserID(0); err == nil {
		t.Error("ValidateUserID(0) should fail")
	}
	if err := ValidateUserID(-5); err == nil {
		t.Error("ValidateUserID(-5) should fail")
	}
}
