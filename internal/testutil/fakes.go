// Package testutil holds in-memory fakes for the financial core's
// repository interfaces, used by internal/service and internal/jobs tests
// in place of a real Postgres connection.
package testutil

import (
	"time"

	"github.com/dafibh/fortuna/fortuna-backend/internal/domain"
)

// FakeFundRepository is an in-memory domain.FundRepository.
type FakeFundRepository struct {
	Funds map[domain.ID]*domain.Fund
}

func NewFakeFundRepository() *FakeFundRepository {
	return &FakeFundRepository{Funds: make(map[domain.ID]*domain.Fund)}
}

func (r *FakeFundRepository) Create(f *domain.Fund) (*domain.Fund, error) {
	cp := *f
	cp.Version = 1
	r.Funds[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeFundRepository) GetByID(id domain.ID) (*domain.Fund, error) {
	f, ok := r.Funds[id]
	if !ok {
		return nil, domain.ErrFundNotFound
	}
	out := *f
	return &out, nil
}

func (r *FakeFundRepository) Update(f *domain.Fund, expectedVersion int64) (*domain.Fund, error) {
	existing, ok := r.Funds[f.ID]
	if !ok {
		return nil, domain.ErrFundNotFound
	}
	if existing.Version != expectedVersion {
		return nil, domain.ErrConflict
	}
	cp := *f
	cp.Version = existing.Version + 1
	r.Funds[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeFundRepository) ListByMember(userID domain.ID) ([]*domain.Fund, error) {
	var out []*domain.Fund
	for _, f := range r.Funds {
		cp := *f
		out = append(out, &cp)
	}
	return out, nil
}

func (r *FakeFundRepository) ListActive() ([]*domain.Fund, error) {
	var out []*domain.Fund
	for _, f := range r.Funds {
		if f.State == domain.FundStateActive {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

// FakeFundRoleRepository is an in-memory domain.FundRoleRepository.
type FakeFundRoleRepository struct {
	Assignments map[domain.ID]*domain.FundRoleAssignment // keyed by assignment ID
}

func NewFakeFundRoleRepository() *FakeFundRoleRepository {
	return &FakeFundRoleRepository{Assignments: make(map[domain.ID]*domain.FundRoleAssignment)}
}

func (r *FakeFundRoleRepository) Assign(a *domain.FundRoleAssignment) (*domain.FundRoleAssignment, error) {
	cp := *a
	r.Assignments[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeFundRoleRepository) Get(fundID, userID domain.ID) (*domain.FundRoleAssignment, error) {
	for _, a := range r.Assignments {
		if a.FundID == fundID && a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrRoleAssignmentNotFound
}

func (r *FakeFundRoleRepository) Update(a *domain.FundRoleAssignment) (*domain.FundRoleAssignment, error) {
	if _, ok := r.Assignments[a.ID]; !ok {
		return nil, domain.ErrRoleAssignmentNotFound
	}
	cp := *a
	r.Assignments[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeFundRoleRepository) Remove(fundID, userID domain.ID) error {
	for id, a := range r.Assignments {
		if a.FundID == fundID && a.UserID == userID {
			delete(r.Assignments, id)
			return nil
		}
	}
	return domain.ErrRoleAssignmentNotFound
}

func (r *FakeFundRoleRepository) ListByFund(fundID domain.ID) ([]*domain.FundRoleAssignment, error) {
	var out []*domain.FundRoleAssignment
	for _, a := range r.Assignments {
		if a.FundID == fundID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *FakeFundRoleRepository) CountByRole(fundID domain.ID, role domain.FundRole) (int, error) {
	count := 0
	for _, a := range r.Assignments {
		if a.FundID == fundID && a.Role == role {
			count++
		}
	}
	return count, nil
}

// FakeMemberPlanRepository is an in-memory domain.MemberPlanRepository.
type FakeMemberPlanRepository struct {
	Plans map[domain.ID]*domain.MemberContributionPlan
}

func NewFakeMemberPlanRepository() *FakeMemberPlanRepository {
	return &FakeMemberPlanRepository{Plans: make(map[domain.ID]*domain.MemberContributionPlan)}
}

func (r *FakeMemberPlanRepository) Create(p *domain.MemberContributionPlan) (*domain.MemberContributionPlan, error) {
	cp := *p
	r.Plans[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeMemberPlanRepository) Get(fundID, userID domain.ID) (*domain.MemberContributionPlan, error) {
	for _, p := range r.Plans {
		if p.FundID == fundID && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrMemberPlanNotFound
}

func (r *FakeMemberPlanRepository) Update(p *domain.MemberContributionPlan) (*domain.MemberContributionPlan, error) {
	if _, ok := r.Plans[p.ID]; !ok {
		return nil, domain.ErrMemberPlanNotFound
	}
	cp := *p
	r.Plans[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeMemberPlanRepository) ListActiveByFund(fundID domain.ID) ([]*domain.MemberContributionPlan, error) {
	var out []*domain.MemberContributionPlan
	for _, p := range r.Plans {
		if p.FundID == fundID && p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// FakeInvitationRepository is an in-memory domain.InvitationRepository.
type FakeInvitationRepository struct {
	Invitations map[domain.ID]*domain.Invitation
}

func NewFakeInvitationRepository() *FakeInvitationRepository {
	return &FakeInvitationRepository{Invitations: make(map[domain.ID]*domain.Invitation)}
}

func (r *FakeInvitationRepository) Create(inv *domain.Invitation) (*domain.Invitation, error) {
	cp := *inv
	r.Invitations[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeInvitationRepository) GetPending(fundID domain.ID, targetContact string) (*domain.Invitation, error) {
	for _, inv := range r.Invitations {
		if inv.FundID == fundID && inv.TargetContact == targetContact && inv.Status == domain.InvitationStatusPending {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrInvitationNotFound
}

func (r *FakeInvitationRepository) Update(inv *domain.Invitation) (*domain.Invitation, error) {
	if _, ok := r.Invitations[inv.ID]; !ok {
		return nil, domain.ErrInvitationNotFound
	}
	cp := *inv
	r.Invitations[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeInvitationRepository) ListPendingExpiring(before time.Time) ([]*domain.Invitation, error) {
	var out []*domain.Invitation
	for _, inv := range r.Invitations {
		if inv.Status == domain.InvitationStatusPending && inv.ExpiresAt.Before(before) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

// FakeFundProjectionRepository is an in-memory domain.FundProjectionRepository.
type FakeFundProjectionRepository struct {
	Projections map[domain.ID]*domain.FundProjection
}

func NewFakeFundProjectionRepository() *FakeFundProjectionRepository {
	return &FakeFundProjectionRepository{Projections: make(map[domain.ID]*domain.FundProjection)}
}

func (r *FakeFundProjectionRepository) Get(fundID domain.ID) (*domain.FundProjection, error) {
	p, ok := r.Projections[fundID]
	if !ok {
		return nil, domain.ErrFundNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *FakeFundProjectionRepository) Upsert(p *domain.FundProjection) (*domain.FundProjection, error) {
	cp := *p
	r.Projections[cp.FundID] = &cp
	out := cp
	return &out, nil
}

// FakeContributionDueRepository is an in-memory domain.ContributionDueRepository.
type FakeContributionDueRepository struct {
	Dues map[domain.ID]*domain.ContributionDue
}

func NewFakeContributionDueRepository() *FakeContributionDueRepository {
	return &FakeContributionDueRepository{Dues: make(map[domain.ID]*domain.ContributionDue)}
}

func (r *FakeContributionDueRepository) Create(d *domain.ContributionDue) (*domain.ContributionDue, error) {
	for _, existing := range r.Dues {
		if existing.FundID == d.FundID && existing.UserID == d.UserID && existing.MonthYear == d.MonthYear {
			return nil, domain.ErrAlreadyExists
		}
	}
	cp := *d
	cp.Version = 1
	r.Dues[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeContributionDueRepository) Get(fundID, userID domain.ID, monthYear domain.MonthYear) (*domain.ContributionDue, error) {
	for _, d := range r.Dues {
		if d.FundID == fundID && d.UserID == userID && d.MonthYear == monthYear {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domain.ErrContributionDueNotFound
}

func (r *FakeContributionDueRepository) GetByID(id domain.ID) (*domain.ContributionDue, error) {
	d, ok := r.Dues[id]
	if !ok {
		return nil, domain.ErrContributionDueNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *FakeContributionDueRepository) Update(d *domain.ContributionDue, expectedVersion int64) (*domain.ContributionDue, error) {
	existing, ok := r.Dues[d.ID]
	if !ok {
		return nil, domain.ErrContributionDueNotFound
	}
	if existing.Version != expectedVersion {
		return nil, domain.ErrConflict
	}
	cp := *d
	cp.Version = existing.Version + 1
	r.Dues[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeContributionDueRepository) ListOverdueCandidates(fundID domain.ID, asOf time.Time) ([]*domain.ContributionDue, error) {
	var out []*domain.ContributionDue
	for _, d := range r.Dues {
		if d.FundID != fundID {
			continue
		}
		if d.Status != domain.ContributionDueStatusPending && d.Status != domain.ContributionDueStatusPartial && d.Status != domain.ContributionDueStatusLate {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (r *FakeContributionDueRepository) ListByFundAndMonth(fundID domain.ID, monthYear domain.MonthYear) ([]*domain.ContributionDue, error) {
	var out []*domain.ContributionDue
	for _, d := range r.Dues {
		if d.FundID == fundID && d.MonthYear == monthYear {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *FakeContributionDueRepository) ListByUser(fundID, userID domain.ID) ([]*domain.ContributionDue, error) {
	var out []*domain.ContributionDue
	for _, d := range r.Dues {
		if d.FundID == fundID && d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// FakeTransactionRepository is an in-memory domain.TransactionRepository.
type FakeTransactionRepository struct {
	Transactions map[domain.ID]*domain.Transaction
}

func NewFakeTransactionRepository() *FakeTransactionRepository {
	return &FakeTransactionRepository{Transactions: make(map[domain.ID]*domain.Transaction)}
}

func (r *FakeTransactionRepository) Append(tx *domain.Transaction) (*domain.Transaction, error) {
	for _, existing := range r.Transactions {
		if existing.FundID == tx.FundID && existing.IdempotencyKey == tx.IdempotencyKey {
			return nil, domain.ErrAlreadyExists
		}
	}
	cp := *tx
	r.Transactions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeTransactionRepository) GetByIdempotencyKey(fundID domain.ID, key string) (*domain.Transaction, error) {
	for _, tx := range r.Transactions {
		if tx.FundID == fundID && tx.IdempotencyKey == key {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *FakeTransactionRepository) SumByType(fundID domain.ID, t domain.TransactionType) (domain.Money, error) {
	sum := domain.ZeroMoney
	for _, tx := range r.Transactions {
		if tx.FundID == fundID && tx.Type == t {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

func (r *FakeTransactionRepository) SumByTypeAndUser(fundID, userID domain.ID, t domain.TransactionType) (domain.Money, error) {
	sum := domain.ZeroMoney
	for _, tx := range r.Transactions {
		if tx.FundID == fundID && tx.Type == t && tx.UserID != nil && *tx.UserID == userID {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

func (r *FakeTransactionRepository) ListByFund(fundID domain.ID, t *domain.TransactionType, from, to *time.Time) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, tx := range r.Transactions {
		if tx.FundID != fundID {
			continue
		}
		if t != nil && tx.Type != *t {
			continue
		}
		if from != nil && tx.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && tx.CreatedAt.After(*to) {
			continue
		}
		cp := *tx
		out = append(out, &cp)
	}
	return out, nil
}

// FakeIdempotencyRepository is an in-memory domain.IdempotencyRepository.
type FakeIdempotencyRepository struct {
	Records map[string]*domain.IdempotencyRecord
}

func NewFakeIdempotencyRepository() *FakeIdempotencyRepository {
	return &FakeIdempotencyRepository{Records: make(map[string]*domain.IdempotencyRecord)}
}

func idemKey(fundID domain.ID, endpoint, key string) string {
	return fundID.String() + "|" + endpoint + "|" + key
}

func (r *FakeIdempotencyRepository) Get(fundID domain.ID, endpoint, key string) (*domain.IdempotencyRecord, error) {
	rec, ok := r.Records[idemKey(fundID, endpoint, key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *FakeIdempotencyRepository) Create(rec *domain.IdempotencyRecord) (*domain.IdempotencyRecord, error) {
	k := idemKey(rec.FundID, rec.Endpoint, rec.IdempotencyKey)
	if _, ok := r.Records[k]; ok {
		return nil, domain.ErrAlreadyExists
	}
	cp := *rec
	r.Records[k] = &cp
	out := cp
	return &out, nil
}

// FakeLoanRepository is an in-memory domain.LoanRepository.
type FakeLoanRepository struct {
	Loans map[domain.ID]*domain.Loan
}

func NewFakeLoanRepository() *FakeLoanRepository {
	return &FakeLoanRepository{Loans: make(map[domain.ID]*domain.Loan)}
}

func (r *FakeLoanRepository) Create(l *domain.Loan) (*domain.Loan, error) {
	cp := *l
	cp.Version = 1
	r.Loans[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeLoanRepository) GetByID(id domain.ID) (*domain.Loan, error) {
	l, ok := r.Loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *FakeLoanRepository) Update(l *domain.Loan, expectedVersion int64) (*domain.Loan, error) {
	existing, ok := r.Loans[l.ID]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	if existing.Version != expectedVersion {
		return nil, domain.ErrConflict
	}
	cp := *l
	cp.Version = existing.Version + 1
	r.Loans[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeLoanRepository) CountNonTerminalByBorrower(fundID, borrowerID domain.ID) (int, error) {
	count := 0
	for _, l := range r.Loans {
		if l.FundID == fundID && l.BorrowerID == borrowerID && l.IsNonTerminal() {
			count++
		}
	}
	return count, nil
}

func (r *FakeLoanRepository) ListActiveByFund(fundID domain.ID) ([]*domain.Loan, error) {
	var out []*domain.Loan
	for _, l := range r.Loans {
		if l.FundID == fundID && l.Status == domain.LoanStatusActive {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *FakeLoanRepository) ListByBorrower(fundID, borrowerID domain.ID) ([]*domain.Loan, error) {
	var out []*domain.Loan
	for _, l := range r.Loans {
		if l.FundID == fundID && l.BorrowerID == borrowerID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

// FakeRepaymentEntryRepository is an in-memory domain.RepaymentEntryRepository.
type FakeRepaymentEntryRepository struct {
	Entries map[domain.ID]*domain.RepaymentEntry
}

func NewFakeRepaymentEntryRepository() *FakeRepaymentEntryRepository {
	return &FakeRepaymentEntryRepository{Entries: make(map[domain.ID]*domain.RepaymentEntry)}
}

func (r *FakeRepaymentEntryRepository) Create(e *domain.RepaymentEntry) (*domain.RepaymentEntry, error) {
	for _, existing := range r.Entries {
		if existing.LoanID == e.LoanID && existing.MonthYear == e.MonthYear {
			return nil, domain.ErrAlreadyExists
		}
	}
	cp := *e
	cp.Version = 1
	r.Entries[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeRepaymentEntryRepository) Get(loanID domain.ID, monthYear domain.MonthYear) (*domain.RepaymentEntry, error) {
	for _, e := range r.Entries {
		if e.LoanID == loanID && e.MonthYear == monthYear {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domain.ErrRepaymentEntryNotFound
}

func (r *FakeRepaymentEntryRepository) GetByID(id domain.ID) (*domain.RepaymentEntry, error) {
	e, ok := r.Entries[id]
	if !ok {
		return nil, domain.ErrRepaymentEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *FakeRepaymentEntryRepository) Update(e *domain.RepaymentEntry, expectedVersion int64) (*domain.RepaymentEntry, error) {
	existing, ok := r.Entries[e.ID]
	if !ok {
		return nil, domain.ErrRepaymentEntryNotFound
	}
	if existing.Version != expectedVersion {
		return nil, domain.ErrConflict
	}
	cp := *e
	cp.Version = existing.Version + 1
	r.Entries[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeRepaymentEntryRepository) ListByLoan(loanID domain.ID) ([]*domain.RepaymentEntry, error) {
	var out []*domain.RepaymentEntry
	for _, e := range r.Entries {
		if e.LoanID == loanID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListOverdueCandidates returns entries past their dueDate that are still
// Pending/Partial (for the repayment job's Overdue transition) or already
// Overdue with an outstanding balance (for the penalty job). fundID is
// unused here, mirroring that RepaymentEntry has no direct fund column in
// this model; a real join goes through the owning loan.
func (r *FakeRepaymentEntryRepository) ListOverdueCandidates(fundID domain.ID, asOf time.Time) ([]*domain.RepaymentEntry, error) {
	var out []*domain.RepaymentEntry
	for _, e := range r.Entries {
		switch e.Status {
		case domain.RepaymentEntryStatusPending, domain.RepaymentEntryStatusPartial, domain.RepaymentEntryStatusOverdue:
		default:
			continue
		}
		if asOf.Before(e.DueDate) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *FakeRepaymentEntryRepository) DeleteAllForLoan(loanID domain.ID) error {
	for id, e := range r.Entries {
		if e.LoanID == loanID {
			delete(r.Entries, id)
		}
	}
	return nil
}

// FakeVotingSessionRepository is an in-memory domain.VotingSessionRepository.
type FakeVotingSessionRepository struct {
	Sessions map[domain.ID]*domain.VotingSession
}

func NewFakeVotingSessionRepository() *FakeVotingSessionRepository {
	return &FakeVotingSessionRepository{Sessions: make(map[domain.ID]*domain.VotingSession)}
}

func (r *FakeVotingSessionRepository) Create(s *domain.VotingSession) (*domain.VotingSession, error) {
	for _, existing := range r.Sessions {
		if existing.LoanID == s.LoanID {
			return nil, domain.ErrAlreadyExists
		}
	}
	cp := *s
	r.Sessions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeVotingSessionRepository) GetByLoan(loanID domain.ID) (*domain.VotingSession, error) {
	for _, s := range r.Sessions {
		if s.LoanID == loanID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrVotingSessionNotFound
}

func (r *FakeVotingSessionRepository) GetByID(id domain.ID) (*domain.VotingSession, error) {
	s, ok := r.Sessions[id]
	if !ok {
		return nil, domain.ErrVotingSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *FakeVotingSessionRepository) Update(s *domain.VotingSession) (*domain.VotingSession, error) {
	if _, ok := r.Sessions[s.ID]; !ok {
		return nil, domain.ErrVotingSessionNotFound
	}
	cp := *s
	r.Sessions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeVotingSessionRepository) ListExpiringOpen(before time.Time) ([]*domain.VotingSession, error) {
	var out []*domain.VotingSession
	for _, s := range r.Sessions {
		if s.Result == domain.VotingResultPending && s.WindowEnd.Before(before) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// FakeVoteRepository is an in-memory domain.VoteRepository.
type FakeVoteRepository struct {
	Votes map[domain.ID]*domain.Vote
}

func NewFakeVoteRepository() *FakeVoteRepository {
	return &FakeVoteRepository{Votes: make(map[domain.ID]*domain.Vote)}
}

func (r *FakeVoteRepository) Create(v *domain.Vote) (*domain.Vote, error) {
	for _, existing := range r.Votes {
		if existing.SessionID == v.SessionID && existing.VoterID == v.VoterID {
			return nil, domain.ErrAlreadyVoted
		}
	}
	cp := *v
	r.Votes[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeVoteRepository) Get(sessionID, voterID domain.ID) (*domain.Vote, error) {
	for _, v := range r.Votes {
		if v.SessionID == sessionID && v.VoterID == voterID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *FakeVoteRepository) ListBySession(sessionID domain.ID) ([]*domain.Vote, error) {
	var out []*domain.Vote
	for _, v := range r.Votes {
		if v.SessionID == sessionID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

// FakeDissolutionSettlementRepository is an in-memory domain.DissolutionSettlementRepository.
type FakeDissolutionSettlementRepository struct {
	Settlements map[domain.ID]*domain.DissolutionSettlement
}

func NewFakeDissolutionSettlementRepository() *FakeDissolutionSettlementRepository {
	return &FakeDissolutionSettlementRepository{Settlements: make(map[domain.ID]*domain.DissolutionSettlement)}
}

func (r *FakeDissolutionSettlementRepository) GetByFund(fundID domain.ID) (*domain.DissolutionSettlement, error) {
	s, ok := r.Settlements[fundID]
	if !ok {
		return nil, domain.ErrSettlementNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *FakeDissolutionSettlementRepository) Upsert(s *domain.DissolutionSettlement) (*domain.DissolutionSettlement, error) {
	cp := *s
	r.Settlements[cp.FundID] = &cp
	out := cp
	return &out, nil
}

// FakeOutboxRepository is an in-memory domain.OutboxRepository.
type FakeOutboxRepository struct {
	Entries map[domain.ID]*domain.OutboxEntry
}

func NewFakeOutboxRepository() *FakeOutboxRepository {
	return &FakeOutboxRepository{Entries: make(map[domain.ID]*domain.OutboxEntry)}
}

func (r *FakeOutboxRepository) Enqueue(e *domain.OutboxEntry) (*domain.OutboxEntry, error) {
	cp := *e
	r.Entries[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *FakeOutboxRepository) ListPending(limit int) ([]*domain.OutboxEntry, error) {
	var out []*domain.OutboxEntry
	for _, e := range r.Entries {
		if e.DeliveredAt == nil {
			cp := *e
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *FakeOutboxRepository) MarkDelivered(id domain.ID, deliveredAt time.Time) error {
	e, ok := r.Entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.DeliveredAt = &deliveredAt
	return nil
}

func (r *FakeOutboxRepository) MarkAttempted(id domain.ID) error {
	e, ok := r.Entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Attempts++
	return nil
}
