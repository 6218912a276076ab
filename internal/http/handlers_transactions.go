package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	applog "centsible/internal/log"
)

const TransactionsPath = "/api/transactions"

type createdTransaction struct {
	Ref string `json:"ref"`
}

// handleCreateTransaction records an income or expense. JSON callers get
// 201 with the row reference; htmx forms get a fragment and the events
// that refresh the history card.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		fail(w, wantsJSON(r), http.StatusBadRequest, "Malformed request body")
		return
	}
	asJSON := wantsJSON(r) || p.IsJSON()

	tx, err := ParseTransaction(p, s.now())
	if err != nil {
		var fe *FieldError
		msg := "Invalid transaction: " + err.Error()
		if errors.As(err, &fe) {
			msg = fmt.Sprintf("Invalid %s", fe.Field)
		}
		fail(w, asJSON, http.StatusUnprocessableEntity, msg)
		return
	}

	logger := applog.FromContext(r.Context()).WithFields(applog.NewFields().
		WithTransaction(string(tx.Kind), tx.Description, tx.Amount.Cents, tx.Category))

	ctx, cancel := context.WithTimeout(r.Context(), backendTimeout)
	defer cancel()
	ref, err := s.transactions.Create(ctx, tx)
	if err != nil {
		logger.ErrorOp(ctx, "Transaction create failed", applog.OpCreate, err)
		fail(w, asJSON, http.StatusInternalServerError, "Could not save the transaction")
		return
	}
	logger.InfoContext(ctx, "Transaction created", "ref", ref)

	if asJSON {
		NewHTMXResponse().Status(http.StatusCreated).BodyJSON(createdTransaction{Ref: ref}).Write(w)
		return
	}
	NewHTMXResponse().
		TriggerTransactionCreated(string(tx.Kind), tx.Date.Year(), tx.Date.Month()).
		TriggerFormReset().
		TriggerSuccessNotification("Transaction saved").
		BodyHTML(`<div class="success">Saved ` + template.HTMLEscapeString(string(tx.Kind)) + `: ` +
			template.HTMLEscapeString(tx.Description) + ` ` + template.HTMLEscapeString(tx.Amount.String()) +
			` (` + template.HTMLEscapeString(tx.Category) + `)</div>`).
		Write(w)
}

func fail(w http.ResponseWriter, asJSON bool, status int, msg string) {
	if asJSON {
		JSONError(status, msg).Write(w)
		return
	}
	ErrorResponse(status, msg).Write(w)
}
