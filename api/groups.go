package api

import (
	"net/http"

	"github.com/billbatista/splitledger/eventlogger"
	"github.com/billbatista/splitledger/group"
)

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.users.Resolve(ctx, req.MemberIDs...); err != nil {
		writeError(w, r, err)
		return
	}

	creator := currentUser(r)
	g, err := s.groups.Create(ctx, req.Name, creator, req.MemberIDs...)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeGroupCreated),
		eventlogger.WithData(map[string]string{
			"group_id":   g.ID.String(),
			"name":       g.Name,
			"created_by": creator.String(),
		}),
	))

	writeJSON(w, http.StatusCreated, newGroupResponse(g))
}

func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.groupFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGroupResponse(g))
}

// addGroupMember lets an existing member bring another user in.
func (s *Server) addGroupMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	g, err := s.groupFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !g.HasMember(currentUser(r)) {
		writeError(w, r, errForbidden)
		return
	}

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.users.Resolve(ctx, req.UserID); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.groups.AddMember(ctx, g.ID, req.UserID); err != nil {
		writeError(w, r, err)
		return
	}

	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventlogger.TypeGroupMemberAdded),
		eventlogger.WithData(map[string]string{
			"group_id": g.ID.String(),
			"user_id":  req.UserID.String(),
			"added_by": currentUser(r).String(),
		}),
	))

	updated, err := s.groups.GetByID(ctx, g.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGroupResponse(updated))
}

func (s *Server) listGroupExpenses(w http.ResponseWriter, r *http.Request) {
	g, err := s.groupFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	expenses, err := s.ledger.ListGroupExpenses(r.Context(), g.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseResponses(expenses))
}

func (s *Server) groupFromPath(r *http.Request) (*group.Group, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	return s.groups.GetByID(r.Context(), id)
}
