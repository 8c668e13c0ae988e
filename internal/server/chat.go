package server

import (
	"context"
	"net/http"

	"investai/internal/agent"
	"investai/internal/errmodel"
	"investai/internal/llm"
	"investai/internal/tool/builtin"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message             string           `json:"message" binding:"required"`
	ConversationHistory []historyMessage `json:"conversationHistory"`
}

type chatResponse struct {
	Response            runSummary    `json:"response"`
	ConversationHistory []llm.Message `json:"conversationHistory"`
}

type runSummary struct {
	FinalText  string         `json:"finalText"`
	Steps      []builtin.Step `json:"steps"`
	Messages   []llm.Message  `json:"messages"`
	Rounds     int            `json:"rounds"`
	StopReason string         `json:"stopReason"`
	State      agent.State    `json:"state"`
}

func (s *Server) handleChat(c *gin.Context) {
	if s.credential != nil {
		if err := s.credential(); err != nil {
			ce := errmodel.From(err)
			s.log.Error("Chat rejected: %s", ce.Message)
			s.fail(c, http.StatusInternalServerError, ce.Message)
			return
		}
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	history, err := decodeHistory(req.ConversationHistory)
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if s.runner == nil {
		s.fail(c, http.StatusInternalServerError, genericFailure)
		return
	}

	ctx := c.Request.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	out, err := s.runner.Run(agent.WithLogger(ctx, s.log), &agent.Input{
		Message: req.Message,
		History: history,
	})
	if err != nil {
		ce := errmodel.From(err)
		s.log.Error("Error processing chat: %s", ce.Error())
		s.fail(c, http.StatusInternalServerError, genericFailure)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Response: runSummary{
			FinalText:  out.FinalText,
			Steps:      out.Steps,
			Messages:   out.Messages,
			Rounds:     out.Rounds,
			StopReason: out.StopReason,
			State:      out.State,
		},
		ConversationHistory: out.History,
	})
}
