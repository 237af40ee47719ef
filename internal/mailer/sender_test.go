package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "enabled without smtp host",
			config: Config{
				Enabled:     true,
				FromAddress: "test@example.com",
			},
			wantErr: "SMTP host is required",
		},
		{
			name: "enabled without from address",
			config: Config{
				Enabled:  true,
				SMTPHost: "smtp.example.com",
			},
			wantErr: "from address is required",
		},
		{
			name: "disabled - no validation",
			config: Config{
				Enabled: false,
			},
			wantErr: "",
		},
		{
			name: "valid config",
			config: Config{
				Enabled:     true,
				SMTPHost:    "smtp.example.com",
				FromAddress: "test@example.com",
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewSender(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, sender)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, sender)
			}
		})
	}
}

func TestNewSender_Defaults(t *testing.T) {
	sender, err := NewSender(Config{
		Enabled:     true,
		SMTPHost:    "smtp.example.com",
		FromAddress: "test@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, 587, sender.config.SMTPPort)
}

func TestNewSender_AuthSetup(t *testing.T) {
	t.Run("with credentials", func(t *testing.T) {
		sender, err := NewSender(Config{
			Enabled:      true,
			SMTPHost:     "smtp.example.com",
			FromAddress:  "test@example.com",
			SMTPUser:     "user",
			SMTPPassword: "pass",
		})
		require.NoError(t, err)
		assert.NotNil(t, sender.auth)
	})

	t.Run("without credentials", func(t *testing.T) {
		sender, err := NewSender(Config{
			Enabled:     true,
			SMTPHost:    "smtp.example.com",
			FromAddress: "test@example.com",
		})
		require.NoError(t, err)
		assert.Nil(t, sender.auth)
	})
}

func TestSend_DisabledIsNoOp(t *testing.T) {
	sender, err := NewSender(Config{Enabled: false})
	require.NoError(t, err)

	err = sender.Send(context.Background(), "user@example.com", "Subject", "<p>body</p>")
	assert.NoError(t, err)
}

func TestSender_BuildMessage(t *testing.T) {
	sender := &Sender{
		config: Config{
			FromAddress: "Staffboard <noreply@example.com>",
		},
	}

	msg := sender.buildMessage("user@example.com", "Password recovery", "<p>Click here</p>")
	msgStr := string(msg)

	assert.Contains(t, msgStr, "From: Staffboard <noreply@example.com>\r\n")
	assert.Contains(t, msgStr, "To: user@example.com\r\n")
	assert.Contains(t, msgStr, "Subject: Password recovery\r\n")
	assert.Contains(t, msgStr, "MIME-Version: 1.0\r\n")
	assert.Contains(t, msgStr, "Content-Type: text/html; charset=\"utf-8\"\r\n")
	assert.Contains(t, msgStr, "\r\n\r\n")
	assert.Contains(t, msgStr, "<p>Click here</p>")
}

func TestExtractEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{
			input:    "user@example.com",
			expected: "user@example.com",
		},
		{
			input:    "Test User <user@example.com>",
			expected: "user@example.com",
		},
		{
			input:    "<user@example.com>",
			expected: "user@example.com",
		},
		{
			input:    "invalid<",
			expected: "invalid<",
		},
		{
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := extractEmail(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
