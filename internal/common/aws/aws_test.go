package aws

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	got *ses.SendEmailInput
	err error
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.got = params
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{MessageId: awssdk.String("msg-1")}, nil
}

type mockSNS struct {
	got *sns.PublishInput
	err error
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.got = params
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{MessageId: awssdk.String("sns-1")}, nil
}

func TestMailer_Send(t *testing.T) {
	api := &mockSES{}
	m := NewMailerWithAPI(api, "reports@agritrust.example")

	id, err := m.Send(context.Background(), Email{
		To:       []string{"credit-desk@agritrust.example"},
		Subject:  "Weekly report",
		TextBody: "3 applications",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	assert.Equal(t, "reports@agritrust.example", awssdk.ToString(api.got.Source))
	assert.Equal(t, []string{"credit-desk@agritrust.example"}, api.got.Destination.ToAddresses)
	assert.Equal(t, "Weekly report", awssdk.ToString(api.got.Message.Subject.Data))
	assert.Equal(t, "3 applications", awssdk.ToString(api.got.Message.Body.Text.Data))
	assert.Nil(t, api.got.Message.Body.Html)
}

func TestMailer_Errors(t *testing.T) {
	_, err := NewMailerWithAPI(&mockSES{}, "a@b.c").Send(context.Background(), Email{Subject: "x"})
	assert.Error(t, err)

	_, err = NewMailerWithAPI(&mockSES{err: errors.New("throttled")}, "a@b.c").
		Send(context.Background(), Email{To: []string{"d@e.f"}, Subject: "x"})
	assert.ErrorContains(t, err, "throttled")
}

func TestPublisher_Publish(t *testing.T) {
	api := &mockSNS{}
	p := NewPublisherWithAPI(api, "arn:aws:sns:eu-west-1:123456789012:loan-decisions")

	id, err := p.Publish(context.Background(), "Loan decision", `{"approved":true}`, map[string]string{"riskCategory": "Low Risk"})
	require.NoError(t, err)
	assert.Equal(t, "sns-1", id)

	assert.Equal(t, "arn:aws:sns:eu-west-1:123456789012:loan-decisions", awssdk.ToString(api.got.TopicArn))
	assert.Equal(t, "Loan decision", awssdk.ToString(api.got.Subject))
	assert.Equal(t, "Low Risk", awssdk.ToString(api.got.MessageAttributes["riskCategory"].StringValue))

	_, err = NewPublisherWithAPI(&mockSNS{err: errors.New("denied")}, "arn").Publish(context.Background(), "", "m", nil)
	assert.ErrorContains(t, err, "denied")
}
