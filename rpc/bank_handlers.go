package rpc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cafichain/core"
)

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	token := chi.URLParam(r, "token")
	s.view(w, r, func(tx *core.Tx) (interface{}, error) {
		bal, err := tx.Bank.BalanceOf(token, owner)
		if err != nil {
			return nil, err
		}
		return amountJSON{Amount: bal.String()}, nil
	})
}

func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	spender, ok := pathAddress(w, r, "spender")
	if !ok {
		return
	}
	token := chi.URLParam(r, "token")
	s.view(w, r, func(tx *core.Tx) (interface{}, error) {
		allowance, err := tx.Bank.Allowance(token, owner, spender)
		if err != nil {
			return nil, err
		}
		return amountJSON{Amount: allowance.String()}, nil
	})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	spender, ok := parseAddress(w, req.Spender, "spender")
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount, "amount")
	if !ok {
		return
	}
	s.execute(w, r, "approve", func(tx *core.Tx) (interface{}, error) {
		if err := tx.Bank.Approve(req.Token, tx.Caller, spender, amount); err != nil {
			return nil, err
		}
		return amountJSON{Amount: amount.String()}, nil
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	to, ok := parseAddress(w, req.To, "to")
	if !ok {
		return
	}
	amount, ok := parseAmount(w, req.Amount, "amount")
	if !ok {
		return
	}
	s.execute(w, r, "transfer", func(tx *core.Tx) (interface{}, error) {
		if err := tx.Bank.Transfer(req.Token, tx.Caller, to, amount); err != nil {
			return nil, err
		}
		return amountJSON{Amount: amount.String()}, nil
	})
}
