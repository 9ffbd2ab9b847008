package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// RoomIDRegex validates room identifier format.
	RoomIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// ProductIDRegex validates catalog item identifier format.
	ProductIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateRoomID validates a room identifier.
func ValidateRoomID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("room id is required")
	}
	if len(id) > 100 {
		return fmt.Errorf("room id is too long (max 100 characters)")
	}
	if !RoomIDRegex.MatchString(id) {
		return fmt.Errorf("room id contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidateRoomTitle validates a room title.
func ValidateRoomTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("room title is required")
	}
	if utf8.RuneCountInString(title) > 200 {
		return fmt.Errorf("room title is too long (max 200 characters)")
	}
	return nil
}

// ValidateUsername validates a username.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return fmt.Errorf("username is too long (max 50 characters)")
	}
	if !regexp.MustCompile(`^[a-zA-Z0-9_-]+$`).MatchString(username) {
		return fmt.Errorf("username contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidateProductID validates a catalog item identifier.
func ValidateProductID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("product id is required")
	}
	if len(id) > 100 {
		return fmt.Errorf("product id is too long (max 100 characters)")
	}
	if !ProductIDRegex.MatchString(id) {
		return fmt.Errorf("product id contains invalid characters")
	}
	return nil
}

// ValidateUserID validates a numeric participant identifier.
func ValidateUserID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("user id must be positive")
	}
	return nil
}
