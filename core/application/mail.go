package application

import (
	"net/mail"

	"github.com/Kingsman71/Binary-Learning/core"
)

// Email templates
const (
	tmplReceived         = "application_received"
	tmplApproved         = "application_approved"
	tmplDenied           = "application_denied"
	tmplPaymentConfirmed = "payment_confirmed"
	tmplPaymentPlan      = "payment_plan"
)

// Email subjects
const (
	SubjectReceived         = "Application Received"
	SubjectApproved         = "Application Approved"
	SubjectDecision         = "Application Decision"
	SubjectPaymentConfirmed = "Payment Confirmation"
	SubjectPaymentPlan      = "Payment Plan Setup"
)

type (
	receivedData struct {
		FullName        string
		ProgramTitle    string
		ReferenceNumber string
	}

	decisionData struct {
		FullName                string
		ProgramTitle            string
		Reason                  string
		RecommendedProgramTitle string
	}
)

func applicantAddress(app Application) []mail.Address {
	return []mail.Address{{Name: app.Applicant.FullName, Address: app.Applicant.Email}}
}

func receivedMessage(app Application) *core.EmailMessage {
	return &core.EmailMessage{
		To:           applicantAddress(app),
		Subject:      SubjectReceived,
		TemplateName: tmplReceived,
		TemplateData: receivedData{
			FullName:        app.Applicant.FullName,
			ProgramTitle:    app.ProgramTitle,
			ReferenceNumber: app.ReferenceNumber,
		},
	}
}

func approvedMessage(app Application) *core.EmailMessage {
	return &core.EmailMessage{
		To:           applicantAddress(app),
		Subject:      SubjectApproved,
		TemplateName: tmplApproved,
		TemplateData: decisionData{FullName: app.Applicant.FullName, ProgramTitle: app.ProgramTitle},
	}
}

func deniedMessage(app Application, recommendedTitle string) *core.EmailMessage {
	return &core.EmailMessage{
		To:           applicantAddress(app),
		Subject:      SubjectDecision,
		TemplateName: tmplDenied,
		TemplateData: decisionData{
			FullName:                app.Applicant.FullName,
			ProgramTitle:            app.ProgramTitle,
			Reason:                  app.DenialReason,
			RecommendedProgramTitle: recommendedTitle,
		},
	}
}

func paymentMessage(app Application) *core.EmailMessage {
	msg := &core.EmailMessage{
		To:           applicantAddress(app),
		Subject:      SubjectPaymentConfirmed,
		TemplateName: tmplPaymentConfirmed,
		TemplateData: decisionData{FullName: app.Applicant.FullName, ProgramTitle: app.ProgramTitle},
	}
	if app.Payment != nil && app.Payment.Option == PaymentPlan {
		msg.Subject = SubjectPaymentPlan
		msg.TemplateName = tmplPaymentPlan
	}
	return msg
}
