// Package notification delivers invitation messages over the configured channel.
package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

const invitationSubject = "You're invited to join %s"

var invitationBody = template.Must(template.New("invitation").Parse(`<p>Hello {{.FirstName}},</p>
<p>You have been invited to join <strong>{{.OrganizationName}}</strong>.</p>
<p>Complete your registration here: <a href="{{.Link}}">{{.Link}}</a></p>
<p>This link expires on {{.Expires}}.</p>
`))

// renderInvitation builds the subject and HTML body of an invitation email
func renderInvitation(msg domain.InvitationMessage) (string, string, error) {
	org := msg.OrganizationName
	if org == "" {
		org = "your organization"
	}
	var body bytes.Buffer
	err := invitationBody.Execute(&body, struct {
		FirstName        string
		OrganizationName string
		Link             string
		Expires          string
	}{
		FirstName:        msg.FirstName,
		OrganizationName: org,
		Link:             msg.Link,
		Expires:          msg.ExpiresAt.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to render invitation: %w", err)
	}
	return fmt.Sprintf(invitationSubject, org), body.String(), nil
}
