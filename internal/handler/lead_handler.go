package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/yardline/internal/apperr"
	"github.com/yardline/internal/service"
)

type leadPayload struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Business string `json:"business"`
	Request  string `json:"request"`
}

// SubmitLead forwards a contact form submission to the CRM board.
func (a *API) SubmitLead(c *gin.Context) {
	if a.leads == nil {
		a.respondError(c, apperr.Config("lead forwarding is not configured"))
		return
	}

	var payload leadPayload
	if !a.bindJSON(c, &payload) {
		return
	}

	itemID, err := a.leads.Submit(c.Request.Context(), service.LeadInput{
		FullName: payload.FullName,
		Phone:    payload.Phone,
		Email:    payload.Email,
		Business: payload.Business,
		Request:  payload.Request,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}

	respondSuccess(c, gin.H{"itemId": itemID})
}

// CRMColumns lists the configured board's columns.
func (a *API) CRMColumns(c *gin.Context) {
	if a.leads == nil {
		a.respondError(c, apperr.Config("lead forwarding is not configured"))
		return
	}

	columns, err := a.leads.Columns(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondSuccess(c, gin.H{"columns": columns})
}
