package api

import (
	"fmt"
	"net/http"

	"github.com/billbatista/splitledger/ledger"
	"github.com/billbatista/splitledger/split"
	"github.com/google/uuid"
)

func (s *Server) postExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	splitType, err := split.ParseType(req.SplitType)
	if err != nil {
		writeError(w, r, err)
		return
	}

	n := ledger.NewExpense{
		PayerID:      currentUser(r),
		Description:  req.Description,
		Amount:       req.Amount,
		SplitType:    splitType,
		Participants: req.ParticipantIDs,
		SplitDetails: req.SplitDetails,
	}
	if req.PaidByID != nil {
		n.PayerID = *req.PaidByID
	}
	if req.GroupID != nil {
		n.GroupID = uuid.NullUUID{UUID: *req.GroupID, Valid: true}
	}

	expense, err := s.ledger.PostExpense(r.Context(), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newExpenseResponse(expense))
}

func (s *Server) getExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	expense, err := s.ledger.GetExpense(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseResponse(expense))
}

func (s *Server) listUserExpenses(w http.ResponseWriter, r *http.Request) {
	u, err := s.userFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	expenses, err := s.ledger.ListUserExpenses(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseResponses(expenses))
}

func (s *Server) listUnsettledShares(w http.ResponseWriter, r *http.Request) {
	u, err := s.userFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	shares, err := s.ledger.ListUnsettledShares(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newShareResponses(shares))
}

func (s *Server) settleShare(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	share, err := s.ledger.SettleShare(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newShareResponse(*share))
}

// settlePayment records a payment and answers with the payer's balance
// after it.
func (s *Server) settlePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req settlementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.FromUserID == uuid.Nil || req.ToUserID == uuid.Nil {
		writeError(w, r, fmt.Errorf("%w: fromUserId and toUserId are required", errBadRequest))
		return
	}

	if err := s.ledger.SettlePayment(ctx, req.FromUserID, req.ToUserID, req.Amount); err != nil {
		writeError(w, r, err)
		return
	}

	balance, err := s.ledger.GetConsolidatedBalance(ctx, req.FromUserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBalanceResponse(balance))
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	u, err := s.userFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	balance, err := s.ledger.GetConsolidatedBalance(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBalanceResponse(balance))
}
