package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCredential(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Credential
		wantErr bool
	}{
		{
			name:  "simple type and username",
			input: "anonymous:abc123",
			want:  Credential{Type: "anonymous", Username: "abc123"},
		},
		{
			name:  "username with embedded colon survives",
			input: "dev:user:with:colons",
			want:  Credential{Type: "dev", Username: "user:with:colons"},
		},
		{
			name:  "type with digits and underscore",
			input: "oauth_google:12345",
			want:  Credential{Type: "oauth_google", Username: "12345"},
		},
		{
			name:    "missing separator",
			input:   "anonymous",
			wantErr: true,
		},
		{
			name:    "empty username",
			input:   "anonymous:",
			wantErr: true,
		},
		{
			name:    "type starting with digit is invalid",
			input:   "1dev:abc",
			wantErr: true,
		},
		{
			name:    "type with uppercase is invalid",
			input:   "Dev:abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCredential(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCredentialString(t *testing.T) {
	c := Credential{Type: "dev", Username: "alice"}
	assert.Equal(t, "dev:alice", c.String())
}

func TestCredentialIsLocal(t *testing.T) {
	assert.True(t, Credential{Type: "anonymous", Username: "x"}.IsLocal())
	assert.True(t, Credential{Type: "dev", Username: "x"}.IsLocal())
	assert.False(t, Credential{Type: "oauth_google", Username: "x"}.IsLocal())
}

func TestCredentialRoundTrip(t *testing.T) {
	original := Credential{Type: "dev", Username: "bob"}
	parsed, err := ParseCredential(original.String())
	assert.NoError(t, err)
	assert.Equal(t, original, parsed)
}
