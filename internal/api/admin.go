package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trialiq-server/internal/auth"
	"github.com/trialiq-server/internal/domain"
)

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleAdminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "password is required")
		return
	}

	token, expiresAt, err := s.deps.Gate.Login(req.Password)
	if err != nil {
		s.respondError(c, err, s.headerLocale(c))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expiresAt,
	})
}

func (s *Server) handleAdminSubmissions(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	subs, err := s.deps.Dashboard.Submissions(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err, s.headerLocale(c))
		return
	}
	if subs == nil {
		subs = []*domain.Submission{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(subs),
		"submissions": subs,
		"filter":      filter,
	})
}

func (s *Server) handleAdminSummary(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	summary, err := s.deps.Dashboard.Summary(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err, s.headerLocale(c))
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleAdminExport(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.deps.Dashboard.Export(c.Request.Context(), &buf); err != nil {
		s.respondError(c, err, s.headerLocale(c))
		return
	}

	if claims := auth.GetClaims(c); claims != nil {
		s.log.WithField("subject", claims.Subject).Info("Submissions exported")
	}
	filename := fmt.Sprintf("submissions-%s.json", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

// parseFilter reads submission filter fields from the query string.
func parseFilter(c *gin.Context) (domain.SubmissionFilter, error) {
	var f domain.SubmissionFilter

	bounds := []struct {
		name  string
		dst   **time.Time
		parse func(string) (time.Time, error)
	}{
		{"from", &f.From, domain.ParseFilterTime},
		{"to", &f.To, domain.ParseFilterEnd},
	}
	for _, b := range bounds {
		v := c.Query(b.name)
		if v == "" {
			continue
		}
		t, err := b.parse(v)
		if err != nil {
			return f, fmt.Errorf("%s: %w", b.name, err)
		}
		*b.dst = &t
	}
	for name, dst := range map[string]**int{"min_age": &f.MinAge, "max_age": &f.MaxAge} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("%s must be an integer", name)
		}
		*dst = &n
	}

	f.Gender = strings.TrimSpace(c.Query("gender"))
	f.Country = strings.ToUpper(strings.TrimSpace(c.Query("country")))
	f.TrialID = strings.TrimSpace(c.Query("trial_id"))
	return f, f.Validate()
}
