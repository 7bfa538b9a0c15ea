package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/kesara/purple/internal/models"
)

// MockTxRunner is a mock implementation of repository.TxRunner. The
// callback receives a nil transaction; the mock repositories ignore it.
type MockTxRunner struct {
	BeginError error
	RunCalls   int
}

func (m *MockTxRunner) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	m.RunCalls++
	if m.BeginError != nil {
		return m.BeginError
	}
	return fn(nil)
}

// MockRfcRepository is a mock implementation of RfcRepository
type MockRfcRepository struct {
	Rfcs        map[int64]*models.RfcToBe
	Unusable    []*models.UnusableRfcNumber
	Authors     map[int64][]*models.RfcAuthor
	NextID      int64
	LockCalls   int
	LockErrors  map[int64]error
	CreateError error
}

func NewMockRfcRepository() *MockRfcRepository {
	return &MockRfcRepository{
		Rfcs:       make(map[int64]*models.RfcToBe),
		Authors:    make(map[int64][]*models.RfcAuthor),
		LockErrors: make(map[int64]error),
		NextID:     1,
	}
}

func (m *MockRfcRepository) Create(ctx context.Context, tx *sql.Tx, rfc *models.RfcToBe) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	if rfc.ID == 0 {
		rfc.ID = m.NextID
		m.NextID++
	}
	m.Rfcs[rfc.ID] = rfc
	return nil
}

func (m *MockRfcRepository) GetByID(ctx context.Context, id int64) (*models.RfcToBe, error) {
	rfc, ok := m.Rfcs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rfc, nil
}

func (m *MockRfcRepository) LockForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.RfcToBe, error) {
	m.LockCalls++
	if err := m.LockErrors[id]; err != nil {
		return nil, err
	}
	return m.GetByID(ctx, id)
}

func (m *MockRfcRepository) SetDisposition(ctx context.Context, tx *sql.Tx, id int64, d models.Disposition) error {
	rfc, ok := m.Rfcs[id]
	if !ok {
		return sql.ErrNoRows
	}
	rfc.Disposition = d
	return nil
}

func (m *MockRfcRepository) ListInProgressIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	for id, rfc := range m.Rfcs {
		if rfc.Disposition == models.DispositionInProgress {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MockRfcRepository) FilterInProgress(ctx context.Context, ids []int64) ([]int64, error) {
	var out []int64
	for _, id := range ids {
		if rfc, ok := m.Rfcs[id]; ok && rfc.Disposition == models.DispositionInProgress {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *MockRfcRepository) Labels(ctx context.Context, tx *sql.Tx, id int64) ([]string, error) {
	rfc, ok := m.Rfcs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rfc.Labels, nil
}

func (m *MockRfcRepository) AddLabel(ctx context.Context, tx *sql.Tx, id int64, slug string) error {
	rfc, ok := m.Rfcs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if !rfc.HasLabel(slug) {
		rfc.Labels = append(rfc.Labels, slug)
	}
	return nil
}

func (m *MockRfcRepository) RemoveLabel(ctx context.Context, tx *sql.Tx, id int64, slug string) error {
	rfc, ok := m.Rfcs[id]
	if !ok {
		return sql.ErrNoRows
	}
	labels := rfc.Labels[:0]
	for _, l := range rfc.Labels {
		if l != slug {
			labels = append(labels, l)
		}
	}
	rfc.Labels = labels
	return nil
}

func (m *MockRfcRepository) ListPublished(ctx context.Context) ([]*models.RfcToBe, error) {
	var out []*models.RfcToBe
	for _, rfc := range m.Rfcs {
		if rfc.Disposition == models.DispositionPublished && rfc.RfcNumber != nil {
			out = append(out, rfc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].RfcNumber < *out[j].RfcNumber })
	return out, nil
}

func (m *MockRfcRepository) ListUnusableNumbers(ctx context.Context) ([]*models.UnusableRfcNumber, error) {
	return m.Unusable, nil
}

func (m *MockRfcRepository) ListAuthors(ctx context.Context, rfcID int64) ([]*models.RfcAuthor, error) {
	return m.Authors[rfcID], nil
}

func (m *MockRfcRepository) CountByDisposition(ctx context.Context) (map[models.Disposition]int, error) {
	counts := make(map[models.Disposition]int)
	for _, rfc := range m.Rfcs {
		counts[rfc.Disposition]++
	}
	return counts, nil
}

// MockAssignmentRepository is a mock implementation of AssignmentRepository
type MockAssignmentRepository struct {
	Assignments map[string]*models.Assignment
	NextID      int
	CreateError error
	StateCalls  int
}

func NewMockAssignmentRepository() *MockAssignmentRepository {
	return &MockAssignmentRepository{
		Assignments: make(map[string]*models.Assignment),
	}
}

func (m *MockAssignmentRepository) Create(ctx context.Context, tx *sql.Tx, a *models.Assignment) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	// Mirrors the partial unique index: at most one active assignment
	// per (person, rfc, role).
	if a.State.Active() && a.PersonID != nil {
		for _, existing := range m.Assignments {
			if existing.RfcID == a.RfcID && existing.Role == a.Role && existing.State.Active() &&
				existing.PersonID != nil && *existing.PersonID == *a.PersonID {
				return fmt.Errorf("duplicate active assignment for person %d on rfc %d role %s",
					*a.PersonID, a.RfcID, a.Role)
			}
		}
	}
	if a.ID == "" {
		m.NextID++
		a.ID = fmt.Sprintf("assignment-%d", m.NextID)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.UpdatedAt = a.CreatedAt
	m.Assignments[a.ID] = a
	return nil
}

func (m *MockAssignmentRepository) ListByRfc(ctx context.Context, tx *sql.Tx, rfcID int64) ([]*models.Assignment, error) {
	var out []*models.Assignment
	for _, a := range m.Assignments {
		if a.RfcID == rfcID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockAssignmentRepository) SetState(ctx context.Context, tx *sql.Tx, id string, state models.AssignmentState, comment string) error {
	m.StateCalls++
	a, ok := m.Assignments[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.State = state
	if comment != "" {
		a.Comment = comment
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MockAssignmentRepository) PublisherDoneOrActive(ctx context.Context, tx *sql.Tx, rfcID int64) (bool, error) {
	for _, a := range m.Assignments {
		if a.RfcID != rfcID || a.Role != models.RolePublisher {
			continue
		}
		if a.State.Active() || a.State == models.AssignmentDone {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockAssignmentRepository) CountActiveBlocked(ctx context.Context) (int, error) {
	n := 0
	for _, a := range m.Assignments {
		if a.Role == models.RoleBlocked && a.State.Active() {
			n++
		}
	}
	return n, nil
}

// ActiveByRole returns the active assignments for a document and role,
// a convenience for test assertions.
func (m *MockAssignmentRepository) ActiveByRole(rfcID int64, role models.Role) []*models.Assignment {
	var out []*models.Assignment
	for _, a := range m.Assignments {
		if a.RfcID == rfcID && a.Role == role && a.State.Active() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MockBlockingRepository is a mock implementation of BlockingRepository.
// The constructor seeds the full catalog so evaluator output resolves
// without per-test setup.
type MockBlockingRepository struct {
	Reasons     map[models.BlockingReason]*models.BlockingReasonRecord
	Roles       map[models.Role]*models.RoleRecord
	Records     []*models.RfcBlockingReason
	NextID      int64
	CreateError error
}

func NewMockBlockingRepository() *MockBlockingRepository {
	m := &MockBlockingRepository{
		Reasons: make(map[models.BlockingReason]*models.BlockingReasonRecord),
		Roles:   make(map[models.Role]*models.RoleRecord),
	}
	for _, slug := range []models.BlockingReason{
		models.ReasonActionHolderActive,
		models.ReasonLabelStreamHold,
		models.ReasonLabelExtRefHold,
		models.ReasonLabelAuthorInputRequired,
		models.ReasonLabelIANAHold,
		models.ReasonReferenceNotReceived,
		models.ReasonReferenceNotReceived2G,
		models.ReasonReferenceNotReceived3G,
		models.ReasonRefqueueFirstEditIncomplete,
		models.ReasonRefqueueSecondEditIncomplete,
		models.ReasonRefqueuePublishIncomplete,
		models.ReasonFinalApprovalPending,
		models.ReasonToolsIssue,
	} {
		m.Reasons[slug] = &models.BlockingReasonRecord{Slug: slug, Name: string(slug)}
	}
	for _, slug := range append(append([]models.Role{}, models.EditorialSequence...), models.RoleBlocked) {
		m.Roles[slug] = &models.RoleRecord{Slug: slug, Name: string(slug)}
	}
	return m
}

func (m *MockBlockingRepository) GetReason(ctx context.Context, tx *sql.Tx, slug models.BlockingReason) (*models.BlockingReasonRecord, error) {
	return m.Reasons[slug], nil
}

func (m *MockBlockingRepository) GetRole(ctx context.Context, tx *sql.Tx, slug models.Role) (*models.RoleRecord, error) {
	return m.Roles[slug], nil
}

func (m *MockBlockingRepository) CreateRecord(ctx context.Context, tx *sql.Tx, rfcID int64, reason models.BlockingReason, since time.Time) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.NextID++
	m.Records = append(m.Records, &models.RfcBlockingReason{
		ID:     m.NextID,
		RfcID:  rfcID,
		Reason: reason,
		Since:  since,
	})
	return nil
}

func (m *MockBlockingRepository) ResolveAll(ctx context.Context, tx *sql.Tx, rfcID int64, at time.Time) (int64, error) {
	var n int64
	for _, r := range m.Records {
		if r.RfcID == rfcID && r.Resolved == nil {
			t := at
			r.Resolved = &t
			n++
		}
	}
	return n, nil
}

func (m *MockBlockingRepository) ListUnresolvedByRfc(ctx context.Context, rfcID int64) ([]*models.RfcBlockingReason, error) {
	var out []*models.RfcBlockingReason
	for _, r := range m.Records {
		if r.RfcID == rfcID && r.Resolved == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// MockRelatedRepository is a mock implementation of RelatedRepository
type MockRelatedRepository struct {
	Related      []*models.RelatedDocument
	ActionHolder map[int64]bool
	Approval     map[int64]bool
	NextID       int64
}

func NewMockRelatedRepository() *MockRelatedRepository {
	return &MockRelatedRepository{
		ActionHolder: make(map[int64]bool),
		Approval:     make(map[int64]bool),
	}
}

func (m *MockRelatedRepository) ListBySource(ctx context.Context, tx *sql.Tx, rfcID int64) ([]*models.RelatedDocument, error) {
	var out []*models.RelatedDocument
	for _, rel := range m.Related {
		if rel.SourceRfcID == rfcID {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (m *MockRelatedRepository) ListByRelationships(ctx context.Context, rels []models.Relationship) ([]*models.RelatedDocument, error) {
	want := make(map[models.Relationship]bool, len(rels))
	for _, rel := range rels {
		want[rel] = true
	}
	var out []*models.RelatedDocument
	for _, rel := range m.Related {
		if want[rel.Relationship] {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (m *MockRelatedRepository) Create(ctx context.Context, tx *sql.Tx, rel *models.RelatedDocument) error {
	m.NextID++
	rel.ID = m.NextID
	m.Related = append(m.Related, rel)
	return nil
}

func (m *MockRelatedRepository) HasActiveActionHolder(ctx context.Context, tx *sql.Tx, rfcID int64) (bool, error) {
	return m.ActionHolder[rfcID], nil
}

func (m *MockRelatedRepository) HasActiveFinalApproval(ctx context.Context, tx *sql.Tx, rfcID int64) (bool, error) {
	return m.Approval[rfcID], nil
}

// MockTaskRunRepository is a mock implementation of TaskRunRepository
type MockTaskRunRepository struct {
	Runs          map[string]*models.TaskRun
	TryStartError error
	FinishError   error
	TryStartCalls int
	FinishCalls   int
}

func NewMockTaskRunRepository() *MockTaskRunRepository {
	return &MockTaskRunRepository{
		Runs: make(map[string]*models.TaskRun),
	}
}

func (m *MockTaskRunRepository) TryStart(ctx context.Context, taskName string, now time.Time) (bool, time.Time, error) {
	m.TryStartCalls++
	if m.TryStartError != nil {
		return false, time.Time{}, m.TryStartError
	}
	run, ok := m.Runs[taskName]
	if !ok {
		m.Runs[taskName] = &models.TaskRun{TaskName: taskName, LastRunAt: now, IsRunning: true}
		return true, now, nil
	}
	if run.IsRunning {
		return false, time.Time{}, nil
	}
	run.IsRunning = true
	return true, run.LastRunAt, nil
}

func (m *MockTaskRunRepository) Finish(ctx context.Context, taskName string, advanceTo *time.Time) error {
	m.FinishCalls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FinishError != nil {
		return m.FinishError
	}
	run, ok := m.Runs[taskName]
	if !ok {
		return sql.ErrNoRows
	}
	run.IsRunning = false
	if advanceTo != nil {
		run.LastRunAt = *advanceTo
	}
	return nil
}

func (m *MockTaskRunRepository) Get(ctx context.Context, taskName string) (*models.TaskRun, error) {
	run, ok := m.Runs[taskName]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return run, nil
}

// MockHistoryRepository is a mock implementation of HistoryRepository.
// DraftNameToRfc resolves cluster-membership entries, which key on the
// draft name rather than a document id.
type MockHistoryRepository struct {
	Entries        []*models.HistoryEntry
	DraftNameToRfc map[string]int64
	AppendError    error
}

func NewMockHistoryRepository() *MockHistoryRepository {
	return &MockHistoryRepository{
		DraftNameToRfc: make(map[string]int64),
	}
}

func (m *MockHistoryRepository) Append(ctx context.Context, tx *sql.Tx, entry *models.HistoryEntry) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	if entry.HistoryDate.IsZero() {
		entry.HistoryDate = time.Now()
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockHistoryRepository) LatestDate(ctx context.Context, tx *sql.Tx, entityType models.HistoryEntityType, entityID string) (*time.Time, error) {
	var latest *time.Time
	for _, e := range m.Entries {
		if e.EntityType != entityType || e.EntityID != entityID {
			continue
		}
		if latest == nil || e.HistoryDate.After(*latest) {
			t := e.HistoryDate
			latest = &t
		}
	}
	return latest, nil
}

func (m *MockHistoryRepository) AnySince(ctx context.Context, threshold time.Time) (bool, error) {
	for _, e := range m.Entries {
		if tracked(e.EntityType) && e.HistoryDate.After(threshold) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockHistoryRepository) RfcIDsSince(ctx context.Context, since time.Time) ([]int64, error) {
	seen := make(map[int64]bool)
	for _, e := range m.Entries {
		if !tracked(e.EntityType) || !e.HistoryDate.After(since) {
			continue
		}
		if e.RfcID != nil {
			seen[*e.RfcID] = true
		} else if e.EntityType == models.HistoryClusterMember {
			if id, ok := m.DraftNameToRfc[e.EntityID]; ok {
				seen[id] = true
			}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func tracked(t models.HistoryEntityType) bool {
	for _, tt := range models.TrackedEntityTypes {
		if t == tt {
			return true
		}
	}
	return false
}

// Entries filtered by entity type, a convenience for test assertions.
func (m *MockHistoryRepository) ByType(t models.HistoryEntityType) []*models.HistoryEntry {
	var out []*models.HistoryEntry
	for _, e := range m.Entries {
		if e.EntityType == t {
			out = append(out, e)
		}
	}
	return out
}
