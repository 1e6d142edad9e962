package sms

import (
	"context"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const providerTwilio = "twilio"

// messageCreator is the slice of the Twilio REST client used here.
type messageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// Twilio sends through the Twilio Messages API.
type Twilio struct {
	sid, token, from string
	api              messageCreator
}

func NewTwilio(sid, token, from string) *Twilio {
	t := &Twilio{sid: sid, token: token, from: from}
	if t.Configured() {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: sid,
			Password: token,
		})
		t.api = client.Api
	}
	return t
}

func (t *Twilio) Name() string { return providerTwilio }

func (t *Twilio) Configured() bool {
	return t.sid != "" && t.token != "" && t.from != ""
}

// TrySend does not observe ctx: the Twilio client has no context-aware call.
func (t *Twilio) TrySend(_ context.Context, to, message string) Outcome {
	if t.api == nil {
		return failed(providerTwilio, "twilio client not configured")
	}
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(message)

	msg, err := t.api.CreateMessage(params)
	if err != nil {
		return failed(providerTwilio, err.Error())
	}
	out := Outcome{OK: true, Provider: providerTwilio}
	if msg != nil && msg.Sid != nil {
		out.SID = *msg.Sid
	}
	return out
}
