// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client the mailer uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type Email struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

type Mailer struct {
	api  SESAPI
	from string
}

func LoadConfig(ctx context.Context, region string) (awssdk.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return awssdk.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	return cfg, nil
}

func NewMailer(cfg awssdk.Config, from string) *Mailer {
	return NewMailerWithAPI(ses.NewFromConfig(cfg), from)
}

func NewMailerWithAPI(api SESAPI, from string) *Mailer {
	return &Mailer{api: api, from: from}
}

// Send delivers one message and returns the SES message id.
func (m *Mailer) Send(ctx context.Context, email Email) (string, error) {
	if len(email.To) == 0 {
		return "", fmt.Errorf("email has no recipients")
	}

	body := &types.Body{}
	if email.TextBody != "" {
		body.Text = &types.Content{Data: awssdk.String(email.TextBody), Charset: awssdk.String("UTF-8")}
	}
	if email.HTMLBody != "" {
		body.Html = &types.Content{Data: awssdk.String(email.HTMLBody), Charset: awssdk.String("UTF-8")}
	}

	out, err := m.api.SendEmail(ctx, &ses.SendEmailInput{
		Source:      awssdk.String(m.from),
		Destination: &types.Destination{ToAddresses: email.To},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(email.Subject), Charset: awssdk.String("UTF-8")},
			Body:    body,
		},
	})
	if err != nil {
		return "", fmt.Errorf("ses send email: %w", err)
	}
	return awssdk.ToString(out.MessageId), nil
}
