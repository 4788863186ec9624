package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/yardline/internal/apperr"
	"github.com/yardline/internal/service"
)

type chatPayload struct {
	Message string             `json:"message"`
	History []service.ChatTurn `json:"history"`
}

// Chat proxies one assistant turn. The conversation history is owned by the client.
func (a *API) Chat(c *gin.Context) {
	if a.assistant == nil {
		a.respondError(c, apperr.Config("assistant is not configured"))
		return
	}

	var payload chatPayload
	if !a.bindJSON(c, &payload) {
		return
	}

	reply, err := a.assistant.Reply(c.Request.Context(), payload.Message, payload.History)
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondSuccess(c, gin.H{"reply": reply})
}
