package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonwraymond/toolpilot/capability"
	"github.com/jonwraymond/toolpilot/dialogue"
	"github.com/jonwraymond/toolpilot/exec"
)

type executeRequest struct {
	Instruction string `json:"instruction"`
	SessionID   string `json:"session_id"`
}

type executeResponse struct {
	Success bool `json:"success"`
	exec.Outcome
	HistoryCount int `json:"historyCount"`
}

type addToolRequest struct {
	ToolName    string `json:"toolName"`
	Executable  string `json:"executable"`
	PackageName string `json:"packageName"`
}

type capabilityView struct {
	Name        string `json:"name"`
	Executable  string `json:"executable"`
	Package     string `json:"package,omitempty"`
	Risk        string `json:"risk"`
	Description string `json:"description"`
	Usage       string `json:"usage,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	historyCount := 0
	if sess, ok := s.sessions.Peek(c.Query("session")); ok {
		historyCount = sess.HistoryLen()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"apiConfigured": s.exec.Model().CheckCredential() == nil,
		"historyCount":  historyCount,
	})
}

func (s *Server) history(c *gin.Context) {
	history := []exec.HistoryEntry{}
	if sess, ok := s.sessions.Peek(c.Query("session")); ok {
		history = sess.History()
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func (s *Server) execute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	sess, out, err := s.sessions.RunInstruction(c.Request.Context(), req.SessionID, req.Instruction)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, executeResponse{Success: true, Outcome: out, HistoryCount: sess.HistoryLen()})
}

func (s *Server) addTool(c *gin.Context) {
	var req addToolRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ToolName == "" || req.PackageName == "" {
		fail(c, http.StatusBadRequest, errors.New("toolName and packageName are required"))
		return
	}

	if err := s.exec.RegisterCapability(req.ToolName, req.Executable, req.PackageName); err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Added " + req.ToolName})
}

func (s *Server) capabilities(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		list := s.exec.Registry().List()
		views := make([]capabilityView, len(list))
		for i, d := range list {
			views[i] = capabilityView{
				Name:        d.Name,
				Executable:  d.Executable,
				Package:     d.Package,
				Risk:        d.Risk.String(),
				Description: d.Description,
				Usage:       d.Usage,
			}
		}
		c.JSON(http.StatusOK, gin.H{"capabilities": views})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	results, err := s.exec.SearchCapabilities(c.Request.Context(), q, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"capabilities": results})
}

// statusFor maps orchestration errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, exec.ErrEmptyInstruction),
		errors.Is(err, dialogue.ErrConfiguration),
		errors.Is(err, capability.ErrInvalidDescriptor):
		return http.StatusBadRequest
	case errors.Is(err, capability.ErrDuplicateCapability):
		return http.StatusConflict
	case errors.Is(err, dialogue.ErrModelUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
