package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const charsetUTF8 = "UTF-8"

// SESAPI is the subset of the SES v2 client used for delivery.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier delivers messages as plain-text email through Amazon SES.
type SESNotifier struct {
	client SESAPI
	from   string
}

// NewSESNotifier builds a notifier sending from a verified address.
func NewSESNotifier(client SESAPI, from string) *SESNotifier {
	return &SESNotifier{client: client, from: from}
}

// Send emails the message to its To recipients, copying Bcc.
func (n *SESNotifier) Send(ctx context.Context, message Message) error {
	if len(message.To) == 0 && len(message.Bcc) == 0 {
		return errors.New("notification has no recipients")
	}

	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination: &types.Destination{
			ToAddresses:  message.To,
			BccAddresses: message.Bcc,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(message.Subject), Charset: aws.String(charsetUTF8)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(message.Body), Charset: aws.String(charsetUTF8)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send %s: %w", message.Kind, err)
	}
	return nil
}
