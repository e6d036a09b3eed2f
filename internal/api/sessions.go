package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trialiq-server/internal/domain"
)

type localeRequest struct {
	Language string `json:"language"`
	Country  string `json:"country"`
}

type consentRequest struct {
	Consent *bool `json:"consent" binding:"required"`
}

type answerRequest struct {
	Value any `json:"value"`
}

func (s *Server) renderer() viewRenderer {
	return viewRenderer{
		tr:        s.deps.Translator,
		questions: s.deps.Intake.Questions(),
		progress:  s.deps.Intake.Flow().Progress,
	}
}

// requestLocale resolves the caller's locale from explicit values, falling
// back to Accept-Language when neither is given.
func (s *Server) requestLocale(c *gin.Context, language, country string) domain.Locale {
	if language == "" && country == "" {
		return s.deps.Locales.ResolveAcceptLanguage(c.GetHeader("Accept-Language"))
	}
	return s.deps.Locales.Resolve(language, country)
}

func (s *Server) headerLocale(c *gin.Context) string {
	return s.requestLocale(c, "", "").Code
}

func (s *Server) respondSession(c *gin.Context, status int, sess *domain.Session, err error) {
	if err != nil {
		code := s.headerLocale(c)
		if !errors.Is(err, domain.ErrNotFound) {
			if current, getErr := s.deps.Intake.GetSession(c.Request.Context(), c.Param("id")); getErr == nil {
				code = current.Locale.Code
			}
		}
		s.respondError(c, err, code)
		return
	}
	c.JSON(status, s.renderer().session(sess))
}

func (s *Server) handleStartSession(c *gin.Context) {
	var req localeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.badRequest(c, err.Error())
			return
		}
	}
	loc := s.requestLocale(c, req.Language, req.Country)
	sess, err := s.deps.Intake.StartSession(c.Request.Context(), loc.Code, loc.Country)
	s.respondSession(c, http.StatusCreated, sess, err)
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.deps.Intake.GetSession(c.Request.Context(), c.Param("id"))
	s.respondSession(c, http.StatusOK, sess, err)
}

func (s *Server) handleAdvance(c *gin.Context) {
	sess, err := s.deps.Intake.Advance(c.Request.Context(), c.Param("id"))
	s.respondSession(c, http.StatusOK, sess, err)
}

func (s *Server) handleBack(c *gin.Context) {
	sess, err := s.deps.Intake.Back(c.Request.Context(), c.Param("id"))
	s.respondSession(c, http.StatusOK, sess, err)
}

func (s *Server) handleReset(c *gin.Context) {
	sess, err := s.deps.Intake.Reset(c.Request.Context(), c.Param("id"))
	s.respondSession(c, http.StatusOK, sess, err)
}

func (s *Server) handleConsent(c *gin.Context) {
	var req consentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	sess, err := s.deps.Intake.SetConsent(c.Request.Context(), c.Param("id"), *req.Consent)
	s.respondSession(c, http.StatusOK, sess, err)
}

func (s *Server) handlePersonalInfo(c *gin.Context) {
	var req domain.Demographics
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	sess, err := s.deps.Intake.SetDemographics(c.Request.Context(), c.Param("id"), req)
	s.respondSession(c, http.StatusOK, sess, err)
}

func (s *Server) handleChangeLocale(c *gin.Context) {
	var req localeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	sess, err := s.deps.Intake.ChangeLocale(c.Request.Context(), c.Param("id"), req.Language, req.Country)
	s.respondSession(c, http.StatusOK, sess, err)
}

func (s *Server) handleAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	sess, err := s.deps.Intake.Answer(c.Request.Context(), c.Param("id"), c.Param("key"), req.Value)
	s.respondSession(c, http.StatusOK, sess, err)
}

func (s *Server) handleClearAnswer(c *gin.Context) {
	sess, err := s.deps.Intake.ClearAnswer(c.Request.Context(), c.Param("id"), c.Param("key"))
	s.respondSession(c, http.StatusOK, sess, err)
}
