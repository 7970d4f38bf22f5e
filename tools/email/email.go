// Package email provides the send_email tool.
package email

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/pkg/metricskey"
	"github.com/effective-security/toolagents/pkg/schema"
	"github.com/effective-security/toolagents/tools"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagents", "tools/email")

// ToolName is the name of the tool
const ToolName = "send_email"

// FormatError is returned for the delimited input with less than 3 fields.
const FormatError = "Error: Input format should be 'to_email|subject|body' or 'to_email|subject|body|attachment_path'"

const description = `Send an email using SMTP.
Provide the recipient address, subject and body, and optionally a path to a file to attach.
The input can also be formatted as a single string: "to_email|subject|body" or "to_email|subject|body|attachment_path".
Example: "user@example.com|Hello|This is the email body"`

// Request represents the tool input.
type Request struct {
	To             string `json:"to" yaml:"To" jsonschema:"title=To,description=The recipient email address."`
	Subject        string `json:"subject" yaml:"Subject" jsonschema:"title=Subject,description=The email subject."`
	Body           string `json:"body" yaml:"Body" jsonschema:"title=Body,description=The email body content."`
	AttachmentPath string `json:"attachment_path,omitempty" yaml:"AttachmentPath" jsonschema:"title=Attachment Path,description=Optional path to a file to attach."`
}

// Result of the sent email.
type Result struct {
	To string
}

func (r *Result) String() string {
	return "Email sent successfully to " + r.To
}

var paramsSchema = schema.MustFor[Request]().Parameters

// Tool is the send_email tool
type Tool struct {
	name        string
	description string
	from        string
	sender      Sender
}

var _ tools.Tool[Request, Result] = (*Tool)(nil)

// New returns the tool sending from the address with the sender.
func New(from string, sender Sender) *Tool {
	return &Tool{
		name:        ToolName,
		description: description,
		from:        from,
		sender:      sender,
	}
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return t.description
}

func (t *Tool) Parameters() *jsonschema.Schema {
	return paramsSchema
}

// Call accepts the structured JSON input,
// or the delimited "to_email|subject|body[|attachment_path]" string.
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "```") {
		return tools.Invoke(ctx, t, input)
	}

	req, err := ParseDelimited(trimmed)
	if err != nil {
		metricskey.StatsToolInputParseErrors.IncrCounter(1, t.name)
		return tools.Render[Result](ctx, t.name, nil, err)
	}
	out, err := t.Run(ctx, req)
	return tools.Render(ctx, t.name, out, err)
}

// ParseDelimited parses "to_email|subject|body[|attachment_path]".
func ParseDelimited(input string) (*Request, error) {
	parts := strings.Split(input, "|")
	if len(parts) < 3 {
		return nil, tools.Errorf(tools.KindValidation, FormatError)
	}
	req := &Request{
		To:      strings.TrimSpace(parts[0]),
		Subject: strings.TrimSpace(parts[1]),
		Body:    strings.TrimSpace(parts[2]),
	}
	if len(parts) > 3 {
		req.AttachmentPath = strings.TrimSpace(parts[3])
	}
	return req, nil
}

func (t *Tool) Run(ctx context.Context, req *Request) (*Result, error) {
	m := &Message{
		From:           t.from,
		To:             strings.TrimSpace(req.To),
		Subject:        strings.TrimSpace(req.Subject),
		Body:           strings.TrimSpace(req.Body),
		AttachmentPath: strings.TrimSpace(req.AttachmentPath),
	}
	if m.To == "" {
		return nil, tools.Errorf(tools.KindValidation, FormatError)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"to", m.To,
		"subject", m.Subject,
		"attachment", HasAttachment(m.AttachmentPath),
	)

	if err := t.sender.Send(ctx, m); err != nil {
		kind := tools.KindNetwork
		if errors.Is(err, ErrInvalidAddress) {
			kind = tools.KindValidation
		}
		return nil, tools.Wrap(kind, err, "Error sending email")
	}
	return &Result{To: m.To}, nil
}
