// Package notice decides what a member receives for a notice tier: the
// email subject, which template documents are filled and attached, and the
// placeholder values shared by the documents and the email body.
package notice

import (
	"fmt"
	"time"

	"github.com/bsc-coop/ops-admin/internal/downhours"
)

// DateLayout is how every date placeholder is written (MM/DD/YYYY).
const DateLayout = "01/02/2006"

// Document keys, matching the documents section of the config file.
const (
	DocConditionalContract = "conditional_contract"
	docPotentialPrefix     = "potential_termination_reinstatement_"
	docPendingPrefix       = "pending_termination_notice_reinstatement_"
)

// Subjects maps each tier to the subject line of its email template in the
// instruction document.
var Subjects = map[downhours.Action]string{
	downhours.ActionCourtesy:             "Down 10+ hours - Courtesy Notice",
	downhours.ActionPotentialTermination: "15-Day Notice of Potential Membership Termination",
	downhours.ActionPendingTermination:   "[URGENT] 15 Day Notice of Pending Contract and Membership Termination",
}

// Subject returns the email subject for an action.
func Subject(a downhours.Action) (string, error) {
	s, ok := Subjects[a]
	if !ok {
		return "", fmt.Errorf("no email subject for action %q", a)
	}
	return s, nil
}

// Attachment is one filled template sent with the email.
type Attachment struct {
	DocumentKey string
	FileName    string
}

// EligibilitySuffix is the document key suffix for reinstatement eligibility.
func EligibilitySuffix(eligible bool) string {
	if eligible {
		return "eligible"
	}
	return "ineligible"
}

// Attachments lists the documents to fill for a decision, in the order they
// are attached. Courtesy notices carry none.
func Attachments(d downhours.NoticeDecision, eligible bool) ([]Attachment, error) {
	name := d.FirstName + "_" + d.LastName
	switch d.Action {
	case downhours.ActionCourtesy:
		return nil, nil
	case downhours.ActionPotentialTermination:
		return []Attachment{
			{DocumentKey: DocConditionalContract, FileName: "cc_" + name + ".pdf"},
			{DocumentKey: docPotentialPrefix + EligibilitySuffix(eligible), FileName: "potential_termination_" + name + ".pdf"},
		}, nil
	case downhours.ActionPendingTermination:
		return []Attachment{
			{DocumentKey: docPendingPrefix + EligibilitySuffix(eligible), FileName: "pending_termination_" + name + ".pdf"},
		}, nil
	}
	return nil, fmt.Errorf("no attachments for action %q", d.Action)
}

// Placeholder keys.
const (
	KeyFirstName       = "<FIRST NAME>"
	KeyLastName        = "<LAST NAME>"
	KeyFullName        = "<FULL NAME>"
	KeyHouse           = "<HOUSE>"
	KeyDate            = "<DATE>"
	KeyDatePlusWeek    = "<DATE (+1 week)>"
	KeyDatePlus15      = "<DATE (+15 days)>"
	KeySemesterYear    = "<SEMESTER, YEAR>"
	KeyOpsSupervisor   = "<OPS_SUPERVISOR>"
	KeyEmail           = "<EMAIL>"
	KeyAction          = "<ACTION>"
	KeyPriorTermReason = "<PRIOR TERMINATION REASON>"
)

// FormInput collects what FormData needs beyond the decision.
type FormInput struct {
	Now           time.Time
	OpsSupervisor string
	// PriorTerminationReason is only set when the member is not eligible
	// for reinstatement.
	PriorTerminationReason string
}

// FormData builds the placeholder map used for both the documents and the
// email body.
func FormData(d downhours.NoticeDecision, in FormInput) map[string]string {
	data := map[string]string{
		KeyFirstName:     d.FirstName,
		KeyLastName:      d.LastName,
		KeyFullName:      d.FullName(),
		KeyHouse:         d.HouseCode,
		KeyDate:          in.Now.Format(DateLayout),
		KeyDatePlusWeek:  in.Now.AddDate(0, 0, 7).Format(DateLayout),
		KeyDatePlus15:    Deadline(in.Now).Format(DateLayout),
		KeySemesterYear:  SemesterYear(in.Now),
		KeyOpsSupervisor: in.OpsSupervisor,
		KeyEmail:         d.MemberEmail,
		KeyAction:        string(d.Action),
	}
	if in.PriorTerminationReason != "" {
		data[KeyPriorTermReason] = in.PriorTerminationReason
	}
	return data
}

// Deadline is the end of the 15-day notice period.
func Deadline(now time.Time) time.Time { return now.AddDate(0, 0, 15) }

// SemesterYear labels the academic term containing t: Spring from January 1,
// Summer from May 15 and Fall from August 15. Fall is labelled with the
// following year.
func SemesterYear(t time.Time) string {
	y := t.Year()
	summer := time.Date(y, time.May, 15, 0, 0, 0, 0, t.Location())
	fall := time.Date(y, time.August, 15, 0, 0, 0, 0, t.Location())

	switch {
	case t.Before(summer):
		return fmt.Sprintf("Spring %d", y)
	case t.Before(fall):
		return fmt.Sprintf("Summer %d", y)
	default:
		return fmt.Sprintf("Fall %d", y+1)
	}
}
