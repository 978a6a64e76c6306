/*
Package memory provides in-memory repository implementations for
testing and the dev server.

PURPOSE:
  Implements every repository interface the lifecycle packages consume,
  with the same optimistic-versioning contract as the SQLite store: a
  Save carrying a stale Version is rejected with a ConflictError, so
  concurrency races are observable in tests.

USAGE:
  st := memory.New()
  st.Contracts.SetActive("emp-1", "agency-1", true)
  svc := &assignment.Service{
      Contracts:     st.Contracts,
      Registrations: st.Registrations,
      Assignments:   st.Assignments,
      Events:        engine.NopPublisher{},
      Clock:         engine.SystemClock{},
  }

SEE ALSO:
  - store/sqlite: the persistent implementation of the same interfaces
*/
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/staffing-engine/assignment"
	"github.com/warp/staffing-engine/availability"
	"github.com/warp/staffing-engine/engine"
	"github.com/warp/staffing-engine/negotiation"
	"github.com/warp/staffing-engine/shift"
	"github.com/warp/staffing-engine/timesheet"
)

// Store bundles every repository over one in-memory dataset.
type Store struct {
	Requests           *RequestRepo
	Responses          *ResponseRepo
	Placements         *PlacementRepo
	PlacementResponses *PlacementResponseRepo
	Assignments        *AssignmentRepo
	Shifts             *ShiftRepo
	Offers             *OfferRepo
	Timesheets         *TimesheetRepo
	Contracts          *ContractDirectory
	Registrations      *RegistrationDirectory
	Availability       *AvailabilityStore
}

func New() *Store {
	shifts := &ShiftRepo{shifts: make(map[engine.ShiftID]*shift.Shift)}
	return &Store{
		Requests:           &RequestRepo{requests: make(map[engine.RequestID]*negotiation.ShiftRequest)},
		Responses:          &ResponseRepo{responses: make(map[engine.ResponseID]*negotiation.AgencyResponse)},
		Placements:         &PlacementRepo{placements: make(map[engine.PlacementID]*negotiation.Placement)},
		PlacementResponses: &PlacementResponseRepo{responses: make(map[engine.ResponseID]*negotiation.AgencyPlacementResponse)},
		Assignments:        &AssignmentRepo{assignments: make(map[engine.AssignmentID]*assignment.Assignment), shifts: shifts},
		Shifts:             shifts,
		Offers:             &OfferRepo{offers: make(map[engine.OfferID]*shift.Offer)},
		Timesheets:         &TimesheetRepo{timesheets: make(map[engine.TimesheetID]*timesheet.Timesheet)},
		Contracts:          &ContractDirectory{active: make(map[contractKey]bool)},
		Registrations:      &RegistrationDirectory{active: make(map[engine.WorkerID]bool)},
		Availability: &AvailabilityStore{
			windows: make(map[engine.WorkerID][]availability.Window),
			timeOff: make(map[engine.WorkerID][]engine.DateRange),
			shifts:  shifts,
		},
	}
}

// Checker wires the availability checker over this store's data.
func (s *Store) Checker() *availability.Checker {
	return &availability.Checker{
		TimeOff: s.Availability,
		Windows: s.Availability,
		Shifts:  s.Availability,
	}
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

type AssignmentRepo struct {
	mu          sync.RWMutex
	assignments map[engine.AssignmentID]*assignment.Assignment
	shifts      *ShiftRepo
}

var _ assignment.Repository = (*AssignmentRepo)(nil)

func (r *AssignmentRepo) Get(_ context.Context, id engine.AssignmentID) (*assignment.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assignments[id]
	if !ok {
		return nil, &engine.NotFoundError{Entity: "assignment", ID: string(id)}
	}
	cp := *a
	return &cp, nil
}

func (r *AssignmentRepo) Save(_ context.Context, a *assignment.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.assignments[a.ID]; ok && existing.Version != a.Version {
		return &engine.ConflictError{Entity: "assignment", ID: string(a.ID), Message: "stale version"}
	}
	a.Version++
	cp := *a
	r.assignments[a.ID] = &cp
	return nil
}

// CreateExclusive re-runs the overlap scan and inserts under one lock,
// closing the window between a caller's own check and its write.
func (r *AssignmentRepo) CreateExclusive(_ context.Context, a *assignment.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assignments[a.ID]; ok {
		return &engine.ConflictError{Entity: "assignment", ID: string(a.ID), Message: "already exists"}
	}
	for _, other := range r.assignments {
		if other.WorkerID != a.WorkerID || !other.Status.IsOpen() {
			continue
		}
		if other.Dates.Overlaps(a.Dates) {
			return &engine.ConflictError{
				Entity: "assignment", ID: string(a.ID),
				Message: fmt.Sprintf("assignment %s was created concurrently over the same dates", other.ID),
			}
		}
	}
	a.Version++
	cp := *a
	r.assignments[a.ID] = &cp
	return nil
}

func (r *AssignmentRepo) Delete(_ context.Context, id engine.AssignmentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assignments[id]; !ok {
		return &engine.NotFoundError{Entity: "assignment", ID: string(id)}
	}
	delete(r.assignments, id)
	return nil
}

func (r *AssignmentRepo) FindOverlapping(_ context.Context, worker engine.WorkerID, dates engine.DateRange, excludeID engine.AssignmentID) ([]*assignment.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*assignment.Assignment
	for _, a := range r.assignments {
		if a.WorkerID != worker || a.ID == excludeID || !a.Status.IsOpen() {
			continue
		}
		if a.Dates.Overlaps(dates) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *AssignmentRepo) CountShifts(ctx context.Context, id engine.AssignmentID) (int, error) {
	return r.shifts.countByAssignment(id), nil
}

// =============================================================================
// SHIFTS
// =============================================================================

type ShiftRepo struct {
	mu     sync.RWMutex
	shifts map[engine.ShiftID]*shift.Shift
}

var _ shift.Repository = (*ShiftRepo)(nil)

func (r *ShiftRepo) Get(_ context.Context, id engine.ShiftID) (*shift.Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shifts[id]
	if !ok {
		return nil, &engine.NotFoundError{Entity: "shift", ID: string(id)}
	}
	cp := *s
	return &cp, nil
}

func (r *ShiftRepo) Save(_ context.Context, s *shift.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.shifts[s.ID]; ok && existing.Version != s.Version {
		return &engine.ConflictError{Entity: "shift", ID: string(s.ID), Message: "stale version"}
	}
	s.Version++
	cp := *s
	r.shifts[s.ID] = &cp
	return nil
}

func (r *ShiftRepo) countByAssignment(id engine.AssignmentID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.shifts {
		if s.AssignmentID != nil && *s.AssignmentID == id {
			n++
		}
	}
	return n
}

// =============================================================================
// OFFERS
// =============================================================================

type OfferRepo struct {
	mu     sync.RWMutex
	offers map[engine.OfferID]*shift.Offer
}

var _ shift.OfferRepository = (*OfferRepo)(nil)

func (r *OfferRepo) Get(_ context.Context, id engine.OfferID) (*shift.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.offers[id]
	if !ok {
		return nil, &engine.NotFoundError{Entity: "offer", ID: string(id)}
	}
	cp := *o
	return &cp, nil
}

func (r *OfferRepo) Save(_ context.Context, o *shift.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.offers[o.ID]; ok && existing.Version != o.Version {
		return &engine.ConflictError{Entity: "offer", ID: string(o.ID), Message: "stale version"}
	}
	o.Version++
	cp := *o
	r.offers[o.ID] = &cp
	return nil
}

func (r *OfferRepo) ListByShift(_ context.Context, shiftID engine.ShiftID) ([]*shift.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*shift.Offer
	for _, o := range r.offers {
		if o.ShiftID == shiftID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *OfferRepo) ListExpiring(_ context.Context, before time.Time) ([]*shift.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*shift.Offer
	for _, o := range r.offers {
		if o.Status == shift.OfferPending && !o.ExpiresAt.After(before) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

// =============================================================================
// TIMESHEETS
// =============================================================================

type TimesheetRepo struct {
	mu         sync.RWMutex
	timesheets map[engine.TimesheetID]*timesheet.Timesheet
}

var _ timesheet.Repository = (*TimesheetRepo)(nil)

func (r *TimesheetRepo) Get(_ context.Context, id engine.TimesheetID) (*timesheet.Timesheet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.timesheets[id]
	if !ok {
		return nil, &engine.NotFoundError{Entity: "timesheet", ID: string(id)}
	}
	cp := *t
	return &cp, nil
}

func (r *TimesheetRepo) Save(_ context.Context, t *timesheet.Timesheet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.timesheets[t.ID]; ok && existing.Version != t.Version {
		return &engine.ConflictError{Entity: "timesheet", ID: string(t.ID), Message: "stale version"}
	}
	t.Version++
	cp := *t
	r.timesheets[t.ID] = &cp
	return nil
}

func (r *TimesheetRepo) FindByShift(_ context.Context, shiftID engine.ShiftID) (*timesheet.Timesheet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.timesheets {
		if t.ShiftID == shiftID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, &engine.NotFoundError{Entity: "timesheet", ID: "shift:" + string(shiftID)}
}

// =============================================================================
// NEGOTIATION
// =============================================================================

type RequestRepo struct {
	mu       sync.RWMutex
	requests map[engine.RequestID]*negotiation.ShiftRequest
}

var _ negotiation.RequestRepository = (*RequestRepo)(nil)

func (r *RequestRepo) Get(_ context.Context, id engine.RequestID) (*negotiation.ShiftRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, &engine.NotFoundError{Entity: "shift_request", ID: string(id)}
	}
	cp := *req
	return &cp, nil
}

func (r *RequestRepo) Save(_ context.Context, req *negotiation.ShiftRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

type ResponseRepo struct {
	mu        sync.RWMutex
	responses map[engine.ResponseID]*negotiation.AgencyResponse
}

var _ negotiation.ResponseRepository = (*ResponseRepo)(nil)

func (r *ResponseRepo) Get(_ context.Context, id engine.ResponseID) (*negotiation.AgencyResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resp, ok := r.responses[id]
	if !ok {
		return nil, &engine.NotFoundError{Entity: "agency_response", ID: string(id)}
	}
	cp := *resp
	return &cp, nil
}

func (r *ResponseRepo) Save(_ context.Context, resp *negotiation.AgencyResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *resp
	r.responses[resp.ID] = &cp
	return nil
}

func (r *ResponseRepo) CountAccepted(_ context.Context, request engine.RequestID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, resp := range r.responses {
		if resp.RequestID == request && resp.Status == negotiation.ResponseAccepted {
			n++
		}
	}
	return n, nil
}

type PlacementRepo struct {
	mu         sync.RWMutex
	placements map[engine.PlacementID]*negotiation.Placement
}

var _ negotiation.PlacementRepository = (*PlacementRepo)(nil)

func (r *PlacementRepo) Get(_ context.Context, id engine.PlacementID) (*negotiation.Placement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.placements[id]
	if !ok {
		return nil, &engine.NotFoundError{Entity: "placement", ID: string(id)}
	}
	cp := *p
	return &cp, nil
}

func (r *PlacementRepo) Save(_ context.Context, p *negotiation.Placement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.placements[p.ID] = &cp
	return nil
}

type PlacementResponseRepo struct {
	mu        sync.RWMutex
	responses map[engine.ResponseID]*negotiation.AgencyPlacementResponse
}

var _ negotiation.PlacementResponseRepository = (*PlacementResponseRepo)(nil)

func (r *PlacementResponseRepo) Get(_ context.Context, id engine.ResponseID) (*negotiation.AgencyPlacementResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resp, ok := r.responses[id]
	if !ok {
		return nil, &engine.NotFoundError{Entity: "agency_placement_response", ID: string(id)}
	}
	cp := *resp
	return &cp, nil
}

func (r *PlacementResponseRepo) Save(_ context.Context, resp *negotiation.AgencyPlacementResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *resp
	r.responses[resp.ID] = &cp
	return nil
}

// =============================================================================
// DIRECTORIES - Contract and registration lookups
// =============================================================================

type contractKey struct {
	Employer engine.EmployerID
	Agency   engine.AgencyID
}

type ContractDirectory struct {
	mu     sync.RWMutex
	active map[contractKey]bool
}

var _ assignment.ContractRepository = (*ContractDirectory)(nil)
var _ negotiation.ContractLookup = (*ContractDirectory)(nil)

func (d *ContractDirectory) IsActive(_ context.Context, employer engine.EmployerID, agency engine.AgencyID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active[contractKey{employer, agency}], nil
}

func (d *ContractDirectory) SetActive(employer engine.EmployerID, agency engine.AgencyID, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active[contractKey{employer, agency}] = active
}

type RegistrationDirectory struct {
	mu     sync.RWMutex
	active map[engine.WorkerID]bool
}

var _ assignment.WorkerRegistrationRepository = (*RegistrationDirectory)(nil)

func (d *RegistrationDirectory) IsActive(_ context.Context, worker engine.WorkerID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active[worker], nil
}

func (d *RegistrationDirectory) SetActive(worker engine.WorkerID, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active[worker] = active
}

// =============================================================================
// AVAILABILITY SOURCES
// =============================================================================

type AvailabilityStore struct {
	mu      sync.RWMutex
	windows map[engine.WorkerID][]availability.Window
	timeOff map[engine.WorkerID][]engine.DateRange
	shifts  *ShiftRepo
}

var _ availability.TimeOffSource = (*AvailabilityStore)(nil)
var _ availability.WindowSource = (*AvailabilityStore)(nil)
var _ availability.ShiftSource = (*AvailabilityStore)(nil)

func (s *AvailabilityStore) AddWindow(w availability.Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[w.WorkerID] = append(s.windows[w.WorkerID], w)
}

func (s *AvailabilityStore) AddTimeOff(worker engine.WorkerID, r engine.DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeOff[worker] = append(s.timeOff[worker], r)
}

func (s *AvailabilityStore) ApprovedTimeOff(_ context.Context, worker engine.WorkerID) ([]engine.DateRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]engine.DateRange(nil), s.timeOff[worker]...), nil
}

func (s *AvailabilityStore) Windows(_ context.Context, worker engine.WorkerID) ([]availability.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]availability.Window(nil), s.windows[worker]...), nil
}

func (s *AvailabilityStore) BookedWindows(_ context.Context, worker engine.WorkerID, around engine.TimeWindow) ([]engine.TimeWindow, error) {
	s.shifts.mu.RLock()
	defer s.shifts.mu.RUnlock()
	var out []engine.TimeWindow
	for _, sh := range s.shifts.shifts {
		if sh.WorkerID == nil || *sh.WorkerID != worker || !sh.Status.Conflicting() {
			continue
		}
		if sh.Window.Overlaps(around) {
			out = append(out, sh.Window)
		}
	}
	return out, nil
}
