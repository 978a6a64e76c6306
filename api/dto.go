/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - Create*, Submit*, Respond* DTOs: Request body types from clients

TYPES:
  Negotiation:
    ShiftRequestDTO, CreateShiftRequestDTO
    ResponseDTO, SubmitResponseDTO, DecisionDTO, CounterOfferDTO
    PlacementDTO, CreatePlacementDTO

  Assignment:
    AssignmentDTO, CreateAssignmentDTO, UpdateAssignmentDTO,
    ExtendAssignmentDTO

  Shift:
    ShiftDTO, GenerateShiftsDTO, GenerationResultDTO
    OfferDTO, OfferShiftDTO, RespondOfferDTO
    BulkOfferDTO, BulkAssignDTO, BulkResultDTO

  Timesheet:
    TimesheetDTO, ClockInDTO, ClockOutDTO, RecordClocksDTO,
    ApprovalDTO, RejectTimesheetDTO, DisputeDTO

DATE FORMATS:
  Calendar dates (assignment ranges, request ranges) use "2006-01-02".
  Instants (deadlines, clock events, shift windows) use RFC3339.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup
*/
package api

import (
	"time"

	"github.com/warp/staffing-engine/assignment"
	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/negotiation"
	"github.com/warp/staffing-engine/shift"
	"github.com/warp/staffing-engine/timesheet"
)

// =============================================================================
// NEGOTIATION TYPES
// =============================================================================

// ShiftRequestDTO represents a broadcast staffing request in API responses.
type ShiftRequestDTO struct {
	ID               string   `json:"id"`
	EmployerID       string   `json:"employer_id"`
	LocationID       string   `json:"location_id"`
	Role             string   `json:"role"`
	Qualifications   []string `json:"qualifications,omitempty"`
	StartDate        string   `json:"start_date"`
	EndDate          *string  `json:"end_date,omitempty"`
	MaxHourlyRate    string   `json:"max_hourly_rate"`
	TargetAgencies   []string `json:"target_agencies,omitempty"`
	ResponseDeadline string   `json:"response_deadline"`
	PositionsNeeded  int      `json:"positions_needed"`
	Status           string   `json:"status"`
	CreatedAt        string   `json:"created_at,omitempty"`
}

// CreateShiftRequestDTO is the request to create a staffing request.
// Requests are published immediately unless draft is set.
type CreateShiftRequestDTO struct {
	EmployerID       string   `json:"employer_id"`
	LocationID       string   `json:"location_id"`
	Role             string   `json:"role"`
	Qualifications   []string `json:"qualifications"`
	StartDate        string   `json:"start_date"`
	EndDate          *string  `json:"end_date"`
	MaxHourlyRate    string   `json:"max_hourly_rate"`
	TargetAgencies   []string `json:"target_agencies"`
	ResponseDeadline string   `json:"response_deadline"`
	PositionsNeeded  int      `json:"positions_needed"`
	Draft            bool     `json:"draft"`
}

// ResponseDTO represents an agency's proposal, to either a request or a
// placement.
type ResponseDTO struct {
	ID              string  `json:"id"`
	RequestID       string  `json:"request_id,omitempty"`
	PlacementID     string  `json:"placement_id,omitempty"`
	AgencyID        string  `json:"agency_id"`
	Status          string  `json:"status"`
	Rate            string  `json:"rate"`
	WorkerID        *string `json:"worker_id,omitempty"`
	StartDate       string  `json:"start_date"`
	EndDate         *string `json:"end_date,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	DecidedBy       *string `json:"decided_by,omitempty"`
	DecidedAt       *string `json:"decided_at,omitempty"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	AssignmentID    *string `json:"assignment_id,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

// SubmitResponseDTO is an agency's proposal body.
type SubmitResponseDTO struct {
	AgencyID  string  `json:"agency_id"`
	Rate      string  `json:"rate"`
	WorkerID  *string `json:"worker_id"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Notes     string  `json:"notes"`
}

// DecisionDTO accepts or rejects a response.
type DecisionDTO struct {
	DecidedBy string `json:"decided_by"`
	Reason    string `json:"reason,omitempty"`
}

// CounterOfferDTO revises the terms of a pending response.
type CounterOfferDTO struct {
	Rate      string  `json:"rate"`
	WorkerID  *string `json:"worker_id"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// PlacementDTO represents a recurring placement in API responses.
type PlacementDTO struct {
	ID                      string  `json:"id"`
	EmployerID              string  `json:"employer_id"`
	LocationID              string  `json:"location_id"`
	Role                    string  `json:"role"`
	StartDate               string  `json:"start_date"`
	EndDate                 *string `json:"end_date,omitempty"`
	ShiftPattern            string  `json:"shift_pattern,omitempty"`
	Recurrence              string  `json:"recurrence"`
	Weekday                 string  `json:"weekday"`
	DayStart                string  `json:"day_start"`
	DayEnd                  string  `json:"day_end"`
	BudgetType              string  `json:"budget_type"`
	BudgetAmount            string  `json:"budget_amount"`
	MaxHourlyRate           string  `json:"max_hourly_rate"`
	BackgroundCheckRequired bool    `json:"background_check_required"`
	Status                  string  `json:"status"`
	SelectedAgency          *string `json:"selected_agency,omitempty"`
	SelectedEmployee        *string `json:"selected_employee,omitempty"`
	CreatedAt               string  `json:"created_at,omitempty"`
}

// CreatePlacementDTO is the request to create a placement.
type CreatePlacementDTO struct {
	EmployerID              string  `json:"employer_id"`
	LocationID              string  `json:"location_id"`
	Role                    string  `json:"role"`
	StartDate               string  `json:"start_date"`
	EndDate                 *string `json:"end_date"`
	ShiftPattern            string  `json:"shift_pattern"`
	Recurrence              string  `json:"recurrence"`
	Weekday                 string  `json:"weekday"`
	DayStart                string  `json:"day_start"` // "09:00"
	DayEnd                  string  `json:"day_end"`   // "17:00"
	BudgetType              string  `json:"budget_type"`
	BudgetAmount            string  `json:"budget_amount"`
	MaxHourlyRate           string  `json:"max_hourly_rate"`
	BackgroundCheckRequired bool    `json:"background_check_required"`
	Draft                   bool    `json:"draft"`
}

// =============================================================================
// ASSIGNMENT TYPES
// =============================================================================

// AssignmentDTO represents a worker-employer binding in API responses.
type AssignmentDTO struct {
	ID            string  `json:"id"`
	ContractID    string  `json:"contract_id"`
	EmployerID    string  `json:"employer_id"`
	AgencyID      string  `json:"agency_id"`
	WorkerID      string  `json:"worker_id"`
	RequestID     *string `json:"request_id,omitempty"`
	ResponseID    *string `json:"response_id,omitempty"`
	LocationID    string  `json:"location_id"`
	Role          string  `json:"role"`
	StartDate     string  `json:"start_date"`
	EndDate       *string `json:"end_date,omitempty"`
	AgreedRate    string  `json:"agreed_rate"`
	PayRate       string  `json:"pay_rate"`
	MarkupAmount  string  `json:"markup_amount"`
	MarkupPercent string  `json:"markup_percent"`
	WeeklyHours   string  `json:"weekly_hours"`
	TotalHours    *string `json:"total_hours,omitempty"`
	Status        string  `json:"status"`
	Type          string  `json:"type"`
	Version       int     `json:"version"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// CreateAssignmentDTO is the request to create an assignment.
type CreateAssignmentDTO struct {
	ContractID  string  `json:"contract_id"`
	EmployerID  string  `json:"employer_id"`
	AgencyID    string  `json:"agency_id"`
	WorkerID    string  `json:"worker_id"`
	RequestID   *string `json:"request_id"`
	ResponseID  *string `json:"response_id"`
	LocationID  string  `json:"location_id"`
	Role        string  `json:"role"`
	StartDate   string  `json:"start_date"`
	EndDate     *string `json:"end_date"`
	AgreedRate  string  `json:"agreed_rate"`
	PayRate     string  `json:"pay_rate"`
	WeeklyHours string  `json:"weekly_hours"`
	Type        string  `json:"type"`
}

// UpdateAssignmentDTO edits an assignment. Nil fields are left unchanged.
type UpdateAssignmentDTO struct {
	AgreedRate  *string `json:"agreed_rate"`
	PayRate     *string `json:"pay_rate"`
	LocationID  *string `json:"location_id"`
	Role        *string `json:"role"`
	WeeklyHours *string `json:"weekly_hours"`
	Status      *string `json:"status"`
}

// ExtendAssignmentDTO pushes an assignment's end date out.
type ExtendAssignmentDTO struct {
	NewEndDate string `json:"new_end_date"`
	Reason     string `json:"reason"`
}

// =============================================================================
// SHIFT TYPES
// =============================================================================

// ShiftDTO represents a concrete work window in API responses.
type ShiftDTO struct {
	ID           string  `json:"id"`
	EmployerID   string  `json:"employer_id"`
	AgencyID     string  `json:"agency_id"`
	WorkerID     *string `json:"worker_id,omitempty"`
	AssignmentID *string `json:"assignment_id,omitempty"`
	TemplateID   *string `json:"template_id,omitempty"`
	PlacementID  *string `json:"placement_id,omitempty"`
	LocationID   string  `json:"location_id"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	HourlyRate   string  `json:"hourly_rate"`
	Status       string  `json:"status"`
	Version      int     `json:"version"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// GenerateShiftsDTO expands a recurrence template over a date range.
type GenerateShiftsDTO struct {
	EmployerID   string  `json:"employer_id"`
	AgencyID     string  `json:"agency_id"`
	WorkerID     *string `json:"worker_id"`
	AssignmentID *string `json:"assignment_id"`
	PlacementID  *string `json:"placement_id"`
	LocationID   string  `json:"location_id"`
	Recurrence   string  `json:"recurrence"`
	Weekday      string  `json:"weekday"`
	DayStart     string  `json:"day_start"`
	DayEnd       string  `json:"day_end"`
	HourlyRate   string  `json:"hourly_rate"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	// AnchorDate pins biweekly parity across separate generation calls.
	AnchorDate *string `json:"anchor_date,omitempty"`
}

// GenerationResultDTO reports what a template expansion produced.
type GenerationResultDTO struct {
	Created []ShiftDTO `json:"created"`
	Skipped []string   `json:"skipped,omitempty"`
}

// OfferDTO represents a shift offer in API responses.
type OfferDTO struct {
	ID          string  `json:"id"`
	ShiftID     string  `json:"shift_id"`
	WorkerID    string  `json:"worker_id"`
	OfferedBy   string  `json:"offered_by,omitempty"`
	Status      string  `json:"status"`
	ExpiresAt   string  `json:"expires_at"`
	RespondedAt *string `json:"responded_at,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// OfferShiftDTO offers a shift to a candidate.
type OfferShiftDTO struct {
	WorkerID  string `json:"worker_id"`
	ExpiresAt string `json:"expires_at"`
	OfferedBy string `json:"offered_by"`
}

// RespondOfferDTO records the candidate's answer.
type RespondOfferDTO struct {
	Accept bool   `json:"accept"`
	Notes  string `json:"notes"`
}

// BulkOfferDTO offers multiple (shift, candidate) pairs at once.
type BulkOfferDTO struct {
	Offers    []BulkOfferItemDTO `json:"offers"`
	OfferedBy string             `json:"offered_by"`
}

// BulkOfferItemDTO is one pair in a bulk offer.
type BulkOfferItemDTO struct {
	ShiftID   string `json:"shift_id"`
	WorkerID  string `json:"worker_id"`
	ExpiresAt string `json:"expires_at"`
}

// BulkAssignDTO staffs multiple shifts directly.
type BulkAssignDTO struct {
	Assignments []BulkAssignItemDTO `json:"assignments"`
}

// BulkAssignItemDTO is one pair in a bulk assign.
type BulkAssignItemDTO struct {
	ShiftID  string `json:"shift_id"`
	WorkerID string `json:"worker_id"`
}

// BulkResultDTO is the per-pair outcome of a bulk operation.
type BulkResultDTO struct {
	ShiftID  string    `json:"shift_id"`
	WorkerID string    `json:"worker_id"`
	Offer    *OfferDTO `json:"offer,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// =============================================================================
// TIMESHEET TYPES
// =============================================================================

// TimesheetDTO represents a shift's worked-hours record in API responses.
type TimesheetDTO struct {
	ID                 string  `json:"id"`
	ShiftID            string  `json:"shift_id"`
	WorkerID           string  `json:"worker_id"`
	ClockIn            *string `json:"clock_in,omitempty"`
	ClockOut           *string `json:"clock_out,omitempty"`
	BreakMinutes       int     `json:"break_minutes"`
	HoursWorked        string  `json:"hours_worked"`
	Status             string  `json:"status"`
	AgencyApproverID   *string `json:"agency_approver_id,omitempty"`
	AgencyApprovedAt   *string `json:"agency_approved_at,omitempty"`
	EmployerApproverID *string `json:"employer_approver_id,omitempty"`
	EmployerApprovedAt *string `json:"employer_approved_at,omitempty"`
	RejectionReason    *string `json:"rejection_reason,omitempty"`
	DisputeReason      *string `json:"dispute_reason,omitempty"`
	BillingEligible    bool    `json:"billing_eligible"`
	Version            int     `json:"version"`
	CreatedAt          string  `json:"created_at,omitempty"`
}

// ClockInDTO opens a timesheet for a shift.
type ClockInDTO struct {
	WorkerID string `json:"worker_id"`
}

// ClockOutDTO closes the open timesheet.
type ClockOutDTO struct {
	BreakMinutes int `json:"break_minutes"`
}

// RecordClocksDTO sets both clock events after the fact.
type RecordClocksDTO struct {
	ClockIn      string `json:"clock_in"`
	ClockOut     string `json:"clock_out"`
	BreakMinutes int    `json:"break_minutes"`
}

// ApprovalDTO identifies the approver for a timesheet decision. There is
// no authentication layer; callers pass the approver's profile flags.
type ApprovalDTO struct {
	ApproverID        string `json:"approver_id"`
	AgencyID          string `json:"agency_id,omitempty"`
	EmployerID        string `json:"employer_id,omitempty"`
	TimesheetApproval bool   `json:"timesheet_approval"`
}

// RejectTimesheetDTO rejects a timesheet with a reason.
type RejectTimesheetDTO struct {
	ApprovalDTO
	Reason string `json:"reason"`
}

// DisputeDTO opens a dispute on an agency-approved timesheet.
type DisputeDTO struct {
	By     string `json:"by"`
	Reason string `json:"reason"`
}

// =============================================================================
// MISC TYPES
// =============================================================================

// AvailabilityDTO answers an availability probe.
type AvailabilityDTO struct {
	WorkerID  string `json:"worker_id"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// SweepResultDTO reports how many offers an expiry sweep closed.
type SweepResultDTO struct {
	Expired int `json:"expired"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

const dateLayout = "2006-01-02"

func fmtDate(t time.Time) string { return t.Format(dateLayout) }

func fmtDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func fmtInstant(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func fmtInstantPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func fmtTimeOfDay(t engine.TimeOfDay) string {
	return time.Date(0, 1, 1, t.Hour(), t.Minute(), 0, 0, time.UTC).Format("15:04")
}

func idPtr[T ~string](id *T) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}

func toShiftRequestDTO(r *negotiation.ShiftRequest) ShiftRequestDTO {
	agencies := make([]string, 0, len(r.TargetAgencies))
	for _, a := range r.TargetAgencies {
		agencies = append(agencies, string(a))
	}
	return ShiftRequestDTO{
		ID:               string(r.ID),
		EmployerID:       string(r.EmployerID),
		LocationID:       string(r.LocationID),
		Role:             r.Role,
		Qualifications:   r.Qualifications,
		StartDate:        fmtDate(r.Dates.Start),
		EndDate:          fmtDatePtr(r.Dates.End),
		MaxHourlyRate:    r.MaxHourlyRate.String(),
		TargetAgencies:   agencies,
		ResponseDeadline: fmtInstant(r.ResponseDeadline),
		PositionsNeeded:  r.PositionsNeeded,
		Status:           string(r.Status),
		CreatedAt:        fmtInstant(r.CreatedAt),
	}
}

func toResponseCoreDTO(c *negotiation.ResponseCore) ResponseDTO {
	return ResponseDTO{
		ID:              string(c.ID),
		AgencyID:        string(c.AgencyID),
		Status:          string(c.Status),
		Rate:            c.Terms.Rate.String(),
		WorkerID:        idPtr(c.Terms.Worker),
		StartDate:       fmtDate(c.Terms.Dates.Start),
		EndDate:         fmtDatePtr(c.Terms.Dates.End),
		Notes:           c.Notes,
		DecidedBy:       c.DecidedBy,
		DecidedAt:       fmtInstantPtr(c.DecidedAt),
		RejectionReason: c.RejectionReason,
		AssignmentID:    idPtr(c.AssignmentID),
		CreatedAt:       fmtInstant(c.CreatedAt),
	}
}

func toResponseDTO(r *negotiation.AgencyResponse) ResponseDTO {
	dto := toResponseCoreDTO(&r.ResponseCore)
	dto.RequestID = string(r.RequestID)
	return dto
}

func toPlacementResponseDTO(r *negotiation.AgencyPlacementResponse) ResponseDTO {
	dto := toResponseCoreDTO(&r.ResponseCore)
	dto.PlacementID = string(r.PlacementID)
	return dto
}

func toPlacementDTO(p *negotiation.Placement) PlacementDTO {
	return PlacementDTO{
		ID:                      string(p.ID),
		EmployerID:              string(p.EmployerID),
		LocationID:              string(p.LocationID),
		Role:                    p.Role,
		StartDate:               fmtDate(p.Dates.Start),
		EndDate:                 fmtDatePtr(p.Dates.End),
		ShiftPattern:            p.ShiftPattern,
		Recurrence:              string(p.Recurrence),
		Weekday:                 p.Weekday.String(),
		DayStart:                fmtTimeOfDay(p.DayStart),
		DayEnd:                  fmtTimeOfDay(p.DayEnd),
		BudgetType:              string(p.BudgetType),
		BudgetAmount:            p.BudgetAmount.String(),
		MaxHourlyRate:           p.MaxHourlyRate.String(),
		BackgroundCheckRequired: p.BackgroundCheckRequired,
		Status:                  string(p.Status),
		SelectedAgency:          idPtr(p.SelectedAgency),
		SelectedEmployee:        idPtr(p.SelectedEmployee),
		CreatedAt:               fmtInstant(p.CreatedAt),
	}
}

func toAssignmentDTO(a *assignment.Assignment) AssignmentDTO {
	dto := AssignmentDTO{
		ID:            string(a.ID),
		ContractID:    string(a.ContractID),
		EmployerID:    string(a.EmployerID),
		AgencyID:      string(a.AgencyID),
		WorkerID:      string(a.WorkerID),
		RequestID:     idPtr(a.RequestID),
		ResponseID:    idPtr(a.ResponseID),
		LocationID:    string(a.LocationID),
		Role:          a.Role,
		StartDate:     fmtDate(a.Dates.Start),
		EndDate:       fmtDatePtr(a.Dates.End),
		AgreedRate:    a.AgreedRate.String(),
		PayRate:       a.PayRate.String(),
		MarkupAmount:  a.MarkupAmount.String(),
		MarkupPercent: a.MarkupPercent.StringFixed(2),
		WeeklyHours:   a.WeeklyHours.String(),
		Status:        string(a.Status),
		Type:          string(a.Type),
		Version:       a.Version,
		CreatedAt:     fmtInstant(a.CreatedAt),
	}
	if total := a.TotalExpectedHours(); total != nil {
		s := total.String()
		dto.TotalHours = &s
	}
	return dto
}

func toShiftDTO(sh *shift.Shift) ShiftDTO {
	return ShiftDTO{
		ID:           string(sh.ID),
		EmployerID:   string(sh.EmployerID),
		AgencyID:     string(sh.AgencyID),
		WorkerID:     idPtr(sh.WorkerID),
		AssignmentID: idPtr(sh.AssignmentID),
		TemplateID:   idPtr(sh.TemplateID),
		PlacementID:  idPtr(sh.PlacementID),
		LocationID:   string(sh.LocationID),
		StartTime:    fmtInstant(sh.Window.Start),
		EndTime:      fmtInstant(sh.Window.End),
		HourlyRate:   sh.HourlyRate.String(),
		Status:       string(sh.Status),
		Version:      sh.Version,
		CreatedAt:    fmtInstant(sh.CreatedAt),
	}
}

func toOfferDTO(o *shift.Offer) OfferDTO {
	return OfferDTO{
		ID:          string(o.ID),
		ShiftID:     string(o.ShiftID),
		WorkerID:    string(o.WorkerID),
		OfferedBy:   o.OfferedBy,
		Status:      string(o.Status),
		ExpiresAt:   fmtInstant(o.ExpiresAt),
		RespondedAt: fmtInstantPtr(o.RespondedAt),
		Notes:       o.Notes,
		CreatedAt:   fmtInstant(o.CreatedAt),
	}
}

func toTimesheetDTO(t *timesheet.Timesheet) TimesheetDTO {
	return TimesheetDTO{
		ID:                 string(t.ID),
		ShiftID:            string(t.ShiftID),
		WorkerID:           string(t.WorkerID),
		ClockIn:            fmtInstantPtr(t.ClockIn),
		ClockOut:           fmtInstantPtr(t.ClockOut),
		BreakMinutes:       t.BreakMinutes,
		HoursWorked:        t.HoursWorked.String(),
		Status:             string(t.Status),
		AgencyApproverID:   t.AgencyApproverID,
		AgencyApprovedAt:   fmtInstantPtr(t.AgencyApprovedAt),
		EmployerApproverID: t.EmployerApproverID,
		EmployerApprovedAt: fmtInstantPtr(t.EmployerApprovedAt),
		RejectionReason:    t.RejectionReason,
		DisputeReason:      t.DisputeReason,
		BillingEligible:    t.BillingEligible(),
		Version:            t.Version,
		CreatedAt:          fmtInstant(t.CreatedAt),
	}
}
