/*
approver.go - Approval capability interface

PURPOSE:
  Timesheets and assignments are signed off by different parties
  (agency agents, employer contacts). Rather than probing party types
  at runtime, approval capability is an explicit interface resolved
  once at the API boundary and passed into the operations that need it.
*/
package engine

// Approver is any party allowed to sign off on engine entities.
type Approver interface {
	ApproverID() string
	CanApproveTimesheets() bool
	CanApproveAssignments() bool
}

// AgencyAgent is an agency-side user with per-capability flags from
// their profile.
type AgencyAgent struct {
	ID                 string
	AgencyID           AgencyID
	TimesheetApproval  bool
	AssignmentApproval bool
}

func (a AgencyAgent) ApproverID() string          { return a.ID }
func (a AgencyAgent) CanApproveTimesheets() bool  { return a.TimesheetApproval }
func (a AgencyAgent) CanApproveAssignments() bool { return a.AssignmentApproval }

// EmployerContact is an employer-side user. Contacts approve timesheets
// (the employer-side sign-off) but never agency assignments.
type EmployerContact struct {
	ID                string
	EmployerID        EmployerID
	TimesheetApproval bool
}

func (c EmployerContact) ApproverID() string          { return c.ID }
func (c EmployerContact) CanApproveTimesheets() bool  { return c.TimesheetApproval }
func (c EmployerContact) CanApproveAssignments() bool { return false }
