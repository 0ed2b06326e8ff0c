package cache

import (
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{
			name:    "issuer URL",
			key:     "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_abc123",
			wantErr: nil,
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: ErrInvalidKey,
		},
		{
			name:    "whitespace only",
			key:     "   ",
			wantErr: ErrInvalidKey,
		},
		{
			name:    "embedded newline",
			key:     "issuer\nwith-newline",
			wantErr: ErrInvalidKey,
		},
		{
			name:    "carriage return",
			key:     "issuer\rwith-cr",
			wantErr: ErrInvalidKey,
		},
		{
			name:    "too long",
			key:     strings.Repeat("a", MaxKeyLength+1),
			wantErr: ErrKeyTooLong,
		},
		{
			name:    "at max length",
			key:     strings.Repeat("a", MaxKeyLength),
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateKey(tt.key); err != tt.wantErr {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}
