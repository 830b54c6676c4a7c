package api

import (
	"time"

	"github.com/billbatista/splitledger/group"
	"github.com/billbatista/splitledger/ledger"
	"github.com/billbatista/splitledger/split"
	"github.com/billbatista/splitledger/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createGroupRequest struct {
	Name      string      `json:"name"`
	MemberIDs []uuid.UUID `json:"memberIds"`
}

type addMemberRequest struct {
	UserID uuid.UUID `json:"userId"`
}

type createExpenseRequest struct {
	Description    string                        `json:"description"`
	Amount         decimal.Decimal               `json:"amount"`
	PaidByID       *uuid.UUID                    `json:"paidById"`
	GroupID        *uuid.UUID                    `json:"groupId"`
	SplitType      string                        `json:"splitType"`
	ParticipantIDs []uuid.UUID                   `json:"participantIds"`
	SplitDetails   map[uuid.UUID]decimal.Decimal `json:"splitDetails"`
}

type settlementRequest struct {
	FromUserID uuid.UUID       `json:"fromUserId"`
	ToUserID   uuid.UUID       `json:"toUserId"`
	Amount     decimal.Decimal `json:"amount"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserResponse(u user.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

type loginResponse struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type memberResponse struct {
	UserID   uuid.UUID `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

type groupResponse struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	CreatedBy uuid.UUID        `json:"createdBy"`
	CreatedAt time.Time        `json:"createdAt"`
	Members   []memberResponse `json:"members"`
}

func newGroupResponse(g *group.Group) groupResponse {
	resp := groupResponse{
		ID:        g.ID,
		Name:      g.Name,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
		Members:   make([]memberResponse, 0, len(g.Members)),
	}
	for _, m := range g.Members {
		resp.Members = append(resp.Members, memberResponse{UserID: m.UserID, JoinedAt: m.JoinedAt})
	}
	return resp
}

type shareResponse struct {
	ID        uuid.UUID  `json:"id"`
	ExpenseID uuid.UUID  `json:"expenseId"`
	UserID    uuid.UUID  `json:"userId"`
	Amount    string     `json:"amount"`
	Settled   bool       `json:"settled"`
	SettledAt *time.Time `json:"settledAt,omitempty"`
}

func newShareResponse(s ledger.ExpenseShare) shareResponse {
	return shareResponse{
		ID:        s.ID,
		ExpenseID: s.ExpenseID,
		UserID:    s.UserID,
		Amount:    money(s.Amount),
		Settled:   s.Settled,
		SettledAt: s.SettledAt,
	}
}

func newShareResponses(shares []ledger.ExpenseShare) []shareResponse {
	out := make([]shareResponse, 0, len(shares))
	for _, s := range shares {
		out = append(out, newShareResponse(s))
	}
	return out
}

type expenseResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Amount      string          `json:"amount"`
	SplitType   split.Type      `json:"splitType"`
	PaidByID    uuid.UUID       `json:"paidById"`
	GroupID     *uuid.UUID      `json:"groupId"`
	CreatedAt   time.Time       `json:"createdAt"`
	Shares      []shareResponse `json:"shares"`
}

func newExpenseResponse(e *ledger.Expense) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		Description: e.Description,
		Amount:      money(e.Amount),
		SplitType:   e.SplitType,
		PaidByID:    e.PaidBy,
		CreatedAt:   e.CreatedAt,
		Shares:      newShareResponses(e.Shares),
	}
	if e.GroupID.Valid {
		id := e.GroupID.UUID
		resp.GroupID = &id
	}
	return resp
}

func newExpenseResponses(expenses []ledger.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(expenses))
	for i := range expenses {
		out = append(out, newExpenseResponse(&expenses[i]))
	}
	return out
}

type debtResponse struct {
	UserID uuid.UUID `json:"userId"`
	Amount string    `json:"amount"`
}

type balanceResponse struct {
	UserID          uuid.UUID      `json:"userId"`
	OwedToUser      []debtResponse `json:"owedToUser"`
	OwedByUser      []debtResponse `json:"owedByUser"`
	TotalOwedToUser string         `json:"totalOwedToUser"`
	TotalOwedByUser string         `json:"totalOwedByUser"`
}

func newBalanceResponse(b ledger.Balance) balanceResponse {
	return balanceResponse{
		UserID:          b.UserID,
		OwedToUser:      newDebtResponses(b.OwedToUser),
		OwedByUser:      newDebtResponses(b.OwedByUser),
		TotalOwedToUser: money(b.TotalOwedToUser()),
		TotalOwedByUser: money(b.TotalOwedByUser()),
	}
}

func newDebtResponses(debts []ledger.Debt) []debtResponse {
	out := make([]debtResponse, 0, len(debts))
	for _, d := range debts {
		out = append(out, debtResponse{UserID: d.UserID, Amount: money(d.Amount)})
	}
	return out
}

// money renders an amount at minor-unit scale.
func money(d decimal.Decimal) string {
	return d.StringFixed(split.MinorUnitScale)
}
