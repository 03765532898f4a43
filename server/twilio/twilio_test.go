package twilio

import (
	"testing"

	"github.com/Daskott/kavach/shared"
	"github.com/stretchr/testify/assert"
)

func TestSendMessageWithoutCredentialsIsLogged(t *testing.T) {
	client := NewClient(shared.TwilioConfig{}, false)
	assert.True(t, client.devMode)
	assert.Nil(t, client.SendMessage("+919999999999", OTPMessage("123456")))
}

func TestOTPMessage(t *testing.T) {
	assert.Contains(t, OTPMessage("042137"), "042137")
}
