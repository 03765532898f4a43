package twilio

import (
	"fmt"

	"github.com/Daskott/kavach/server/logger"
	"github.com/Daskott/kavach/shared"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var logg = logger.NewLogger()

type ClientWrapper struct {
	client  *twilio.RestClient
	config  shared.TwilioConfig
	devMode bool
}

// NewClient returns an SMS sender. Without credentials, or in dev mode,
// messages are written to the log instead of being sent.
func NewClient(config shared.TwilioConfig, devMode bool) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{
		client:  client,
		config:  config,
		devMode: devMode || config.AccountSid == "",
	}
}

func (cw *ClientWrapper) SendMessage(to, msg string) error {
	if cw.devMode {
		logg.Infof("SMS to %v: %v", to, msg)
		return nil
	}

	params := &openapi.CreateMessageParams{}
	params.SetMessagingServiceSid(cw.config.MessagingServiceSid)
	params.SetTo(to)
	params.SetBody(msg)

	resp, err := cw.client.ApiV2010.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio: unable to send message: %v", err)
	}

	if resp.ErrorMessage != nil {
		return fmt.Errorf("twilio: %v", *resp.ErrorMessage)
	}

	return nil
}

func OTPMessage(otp string) string {
	return fmt.Sprintf("Your Kavach verification code is %v. It expires in 5 minutes.", otp)
}
