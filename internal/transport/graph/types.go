package graph

import (
	"encoding/base64"
	"net/mail"
	"strings"

	"github.com/shineum/supermail/internal/compose"
)

// sendMailRequest is the top-level request body for the Graph API sendMail endpoint.
type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

// sendMailMessage represents the message portion of a sendMail request.
type sendMailMessage struct {
	Subject                string            `json:"subject"`
	Body                   messageBody       `json:"body"`
	ToRecipients           []recipient       `json:"toRecipients"`
	CcRecipients           []recipient       `json:"ccRecipients,omitempty"`
	BccRecipients          []recipient       `json:"bccRecipients,omitempty"`
	ReplyTo                []recipient       `json:"replyTo,omitempty"`
	InternetMessageHeaders []messageHeader   `json:"internetMessageHeaders,omitempty"`
	Attachments            []graphAttachment `json:"attachments,omitempty"`
}

// messageBody represents the body of an email message.
type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// recipient represents an email recipient.
type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

// emailAddress represents an email address in a Graph API request.
type emailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// messageHeader is a custom internet header. Graph only accepts names
// starting with "X-".
type messageHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// graphAttachment represents a file attachment in a Graph API request.
type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// graphErrorResponse represents an error response from the Graph API.
type graphErrorResponse struct {
	Error graphError `json:"error"`
}

// graphError represents the error detail in a Graph API error response.
type graphError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// buildSendMailRequest converts a composed message into a Graph API
// sendMail request body. Graph carries a single body, so the HTML
// alternative wins when present.
func buildSendMailRequest(msg *compose.Message) *sendMailRequest {
	body := messageBody{
		ContentType: "text",
		Content:     msg.Body.Text.Content,
	}
	if msg.Body.IsMultipart() {
		body.ContentType = "html"
		body.Content = msg.Body.HTML.Content
	}

	var headers []messageHeader
	for _, f := range msg.Header.Fields() {
		if strings.HasPrefix(strings.ToLower(f.Name), "x-") {
			headers = append(headers, messageHeader{Name: f.Name, Value: f.Value})
		}
	}

	attachments := make([]graphAttachment, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, graphAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Filename,
			ContentType:  att.ContentType,
			ContentBytes: base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	return &sendMailRequest{
		Message: sendMailMessage{
			Subject:                msg.Subject,
			Body:                   body,
			ToRecipients:           recipients(msg.To),
			CcRecipients:           recipients(msg.Cc),
			BccRecipients:          recipients(msg.Bcc),
			ReplyTo:                recipients(msg.ReplyTo),
			InternetMessageHeaders: headers,
			Attachments:            attachments,
		},
		SaveToSentItems: true,
	}
}

// recipients splits "Name <addr>" entries into Graph's name and address
// fields. Entries that do not parse are passed through as the address.
func recipients(addrs []string) []recipient {
	out := make([]recipient, 0, len(addrs))
	for _, a := range addrs {
		ea := emailAddress{Address: a}
		if parsed, err := mail.ParseAddress(a); err == nil {
			ea = emailAddress{Name: parsed.Name, Address: parsed.Address}
		}
		out = append(out, recipient{EmailAddress: ea})
	}
	return out
}
