package validation

import (
	"strings"
	"testing"

	"fittedin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "SecurePass12", false},
		{"Exactly Min Length", "Abcdef1g", false},
		{"Exactly Max Length", "A" + strings.Repeat("b", 126) + "1", false},
		{"Too Short", "Small1a", true},
		{"Too Long", "A" + strings.Repeat("b", 127) + "1", true},
		{"No Upper", "securepass12", true},
		{"No Lower", "SECUREPASS12", true},
		{"No Digit", "SecurePassword", true},
		{"Unicode Characters", "Ångstrom12x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDisplayName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Valid", "Jordan Lee", false},
		{"Trimmed Too Short", "  J  ", true},
		{"Two Runes", "Jo", false},
		{"Too Long", strings.Repeat("x", 101), true},
		{"Multibyte", "Zoë", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDisplayName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail("alice@fittedin-seeded.com"))
	assert.NoError(t, ValidateEmail("first.last+tag@example.co.uk"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@x.io"))

	assert.True(t, IsEmail("bob@test.com"))
	assert.False(t, IsEmail("bob@"))
	assert.Equal(t, "bob@test.com", NormalizeEmail("  Bob@Test.COM "))
}

type structInput struct {
	Email  string `json:"email" validate:"required,email"`
	Status string `json:"status" validate:"omitempty,oneof=active paused"`
	Count  int    `json:"count" validate:"gte=0"`
}

func TestStruct(t *testing.T) {
	t.Parallel()

	require.NoError(t, Struct(structInput{Email: "a@b.io", Status: "active"}))

	err := Struct(structInput{})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeValidation))
	assert.Equal(t, "email is required", err.Error())

	err = Struct(structInput{Email: "a@b.io", Status: "done"})
	require.Error(t, err)
	assert.Equal(t, "status must be one of: active paused", err.Error())

	err = Struct(structInput{Email: "a@b.io", Count: -1})
	require.Error(t, err)
	assert.Equal(t, "count must be at least 0", err.Error())
}
