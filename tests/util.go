package testutil

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/core/application"
	"github.com/Kingsman71/Binary-Learning/core/student"
	logsvc "github.com/Kingsman71/Binary-Learning/services/logger"
)

// ValidStatement is a statement of purpose long enough to pass validation.
var ValidStatement = strings.Repeat("I love building things. ", 3) // 72 chars

// NewLogger returns a logger that reports nothing to rollbar and discards its output.
func NewLogger() core.Logger {
	l := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
	l.Enable(false)
	return l
}

func CreateStudent(t *testing.T, repo student.Repository, id, name, email string, createdAt ...time.Time) student.Student {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	std, err := repo.CreateStudent(context.Background(), student.Student{
		ID:        id,
		FullName:  name,
		Email:     email,
		Phone:     "+1 555 010 0000",
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

// CreateApplication stores `app` as is, filling in the fields a valid application needs.
func CreateApplication(t *testing.T, repo application.Repository, app application.Application) application.Application {
	if app.ReferenceNumber == "" {
		app.ReferenceNumber = application.GenerateReferenceNumber()
	}
	if app.ProgramID == "" {
		app.ProgramID = "full-stack-odyssey"
		app.ProgramTitle = "Full-Stack Odyssey"
	}
	if app.Applicant.FullName == "" {
		app.Applicant.FullName = "Ada Lovelace"
	}
	if app.Applicant.Phone == "" {
		app.Applicant.Phone = "+1 555 010 0000"
	}
	if app.Status == "" {
		app.Status = application.StatusPending
	}
	if app.StatementOfPurpose == "" {
		app.StatementOfPurpose = ValidStatement
	}
	if app.ApplicationDate.IsZero() {
		app.ApplicationDate = time.Now().UTC()
	}
	app, err := repo.CreateApplication(context.Background(), app)
	if err != nil {
		t.Fatalf("CreateApplication() failed: %v", err)
	}
	return app
}

// NewApplication returns a submission that passes validation.
func NewApplication(programID, email string) application.NewApplication {
	return application.NewApplication{
		ProgramID: programID,
		Applicant: application.Applicant{
			FullName: "Ada Lovelace",
			Email:    email,
			Phone:    "+1 (555) 010-0000",
		},
		Education: application.Education{
			HighestQualification: "Bachelor",
			FieldOfStudy:         "Mathematics",
			Institution:          "University of London",
		},
		StatementOfPurpose: ValidStatement,
	}
}
