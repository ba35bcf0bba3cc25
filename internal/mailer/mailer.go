// Package mailer sends the 6-digit verification and reset codes over SES.
package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"mealsnap/pkg/logger"
)

type SES struct {
	client *ses.Client
	sender string
}

func NewSES(ctx context.Context, region, sender string) (*SES, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SES{client: ses.NewFromConfig(cfg), sender: sender}, nil
}

func (s *SES) SendVerificationCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf("Your verification code is: %s\n\nEnter it in the app to verify your email.", code)
	return s.send(ctx, to, "Your Verification Code", body)
}

func (s *SES) SendResetCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf("Your password reset code is: %s\n\nUse this in the app to set a new password.", code)
	return s.send(ctx, to, "Password Reset Code", body)
}

func (s *SES) send(ctx context.Context, to, subject, body string) error {
	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.sender),
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("email send failed: %w", err)
	}
	return nil
}

// Log is a mailer for local development: it logs the code instead of sending
// it. Selected automatically when no SES sender is configured.
type Log struct {
	Logger *logger.Logger
}

func (l Log) SendVerificationCode(_ context.Context, to, code string) error {
	l.Logger.Infow("verification code (mail disabled)", "to", to, "code", code)
	return nil
}

func (l Log) SendResetCode(_ context.Context, to, code string) error {
	l.Logger.Infow("reset code (mail disabled)", "to", to, "code", code)
	return nil
}
