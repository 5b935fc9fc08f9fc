package migration

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/loan-crm/internal/models"
)

// Issue records a lead that was skipped, or migrated with a caveat.
type Issue struct {
	LeadID int64  `json:"lead_id"`
	Reason string `json:"reason"`
}

// Report summarises one run over the legacy lead snapshot.
type Report struct {
	LeadsSeen            int       `json:"leads_seen"`
	LeadsMigrated        int       `json:"leads_migrated"`
	UsersCreated         int       `json:"users_created"`
	UsersMerged          int       `json:"users_merged"`
	UsersUnchanged       int       `json:"users_unchanged"`
	ApplicationsCreated  int       `json:"applications_created"`
	ApplicationsExisting int       `json:"applications_existing"`
	DisbursalsRelinked   int64     `json:"disbursals_relinked"`
	PANConflicts         int       `json:"pan_conflicts"`
	Skipped              []Issue   `json:"skipped"`
	Warnings             []Issue   `json:"warnings,omitempty"`
	UnlinkedDisbursals   int       `json:"unlinked_disbursals"`
	StartedAt            time.Time `json:"started_at"`
	FinishedAt           time.Time `json:"finished_at"`
}

type outcome struct {
	userCreated bool
	userMerged  bool
	appCreated  bool
	panConflict bool
	relinked    int64

	// set when disbursals now hang off an application that is not approved
	unapprovedApp *models.LoanApplication
}

func (r *Report) record(o outcome) {
	r.LeadsMigrated++
	switch {
	case o.userCreated:
		r.UsersCreated++
	case o.userMerged:
		r.UsersMerged++
	default:
		r.UsersUnchanged++
	}
	if o.appCreated {
		r.ApplicationsCreated++
	} else {
		r.ApplicationsExisting++
	}
	if o.panConflict {
		r.PANConflicts++
	}
	r.DisbursalsRelinked += o.relinked
}

// Summary renders the report as plain text, one counter per line.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lead migration %s - %s\n\n", r.StartedAt.Format(time.RFC3339), r.FinishedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Leads seen:             %d\n", r.LeadsSeen)
	fmt.Fprintf(&b, "Leads migrated:         %d\n", r.LeadsMigrated)
	fmt.Fprintf(&b, "Leads skipped:          %d\n", len(r.Skipped))
	fmt.Fprintf(&b, "Users created:          %d\n", r.UsersCreated)
	fmt.Fprintf(&b, "Users merged:           %d\n", r.UsersMerged)
	fmt.Fprintf(&b, "Users unchanged:        %d\n", r.UsersUnchanged)
	fmt.Fprintf(&b, "Applications created:   %d\n", r.ApplicationsCreated)
	fmt.Fprintf(&b, "Applications existing:  %d\n", r.ApplicationsExisting)
	fmt.Fprintf(&b, "Disbursals relinked:    %d\n", r.DisbursalsRelinked)
	fmt.Fprintf(&b, "PAN conflicts:          %d\n", r.PANConflicts)
	fmt.Fprintf(&b, "Unlinked disbursals:    %d\n", r.UnlinkedDisbursals)
	if len(r.Skipped) > 0 {
		b.WriteString("\nSkipped leads:\n")
		for _, is := range r.Skipped {
			fmt.Fprintf(&b, "  lead %d: %s\n", is.LeadID, is.Reason)
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, is := range r.Warnings {
			fmt.Fprintf(&b, "  lead %d: %s\n", is.LeadID, is.Reason)
		}
	}
	return b.String()
}
