package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trialiq-server/internal/domain"
)

type matchRequest struct {
	Answers  map[string]any `json:"answers" binding:"required"`
	Language string         `json:"language"`
	Country  string         `json:"country"`
}

func (s *Server) handleListTrials(c *gin.Context) {
	trials := s.deps.Intake.Trials()
	c.JSON(http.StatusOK, gin.H{
		"trials": trials,
		"count":  len(trials),
	})
}

func (s *Server) handleListQuestions(c *gin.Context) {
	loc := s.requestLocale(c, c.Query("lang"), c.Query("country"))
	c.JSON(http.StatusOK, gin.H{
		"locale":    loc,
		"questions": s.renderer().questionList(loc.Code, nil),
	})
}

// handleMatch scores an answer set without creating a session or submission.
func (s *Server) handleMatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	loc := s.requestLocale(c, req.Language, req.Country)

	answers, err := s.deps.Intake.ParseAnswers(req.Answers)
	if err != nil {
		s.respondError(c, err, loc.Code)
		return
	}

	results := s.renderer().results(loc.Code, s.deps.Intake.Match(answers, loc.Country))
	c.JSON(http.StatusOK, gin.H{
		"locale":             loc,
		"answers":            rawAnswers(answers),
		"no_eligible_trials": results.NoEligibleTrials,
		"message":            results.Message,
		"matches":            results.Matches,
	})
}

func rawAnswers(answers domain.AnswerSet) map[string]any {
	out := make(map[string]any, len(answers))
	for k, v := range answers {
		out[k] = v.Raw()
	}
	return out
}
