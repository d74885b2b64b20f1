package api

import (
	"fmt"
	"net/http"
	"time"

	"agritrust-workers/internal/common/errors"
	"agritrust-workers/internal/models"
	"agritrust-workers/internal/scoring"
	"agritrust-workers/internal/store"

	"github.com/gin-gonic/gin"
)

// scoreRequest uses pointers so a missing field is told apart from zero.
type scoreRequest struct {
	FarmSize      *float64 `json:"farm_size" binding:"required"`
	SoilScore     *int     `json:"soil_score" binding:"required"`
	Rainfall      *float64 `json:"rainfall" binding:"required"`
	PreviousLoans *int     `json:"previous_loans" binding:"required"`
	YieldAmount   *float64 `json:"yield_amount" binding:"required"`
}

func (r scoreRequest) toRequest() (scoring.Request, error) {
	if r.FarmSize == nil || r.SoilScore == nil || r.Rainfall == nil || r.PreviousLoans == nil || r.YieldAmount == nil {
		return scoring.Request{}, errors.NewApplicationValidationFailedError(
			"farm_size, soil_score, rainfall, previous_loans and yield_amount are required")
	}
	return scoring.Request{
		FarmSize:      *r.FarmSize,
		SoilScore:     *r.SoilScore,
		Rainfall:      *r.Rainfall,
		PreviousLoans: *r.PreviousLoans,
		YieldAmount:   *r.YieldAmount,
	}, nil
}

type applicationRequest struct {
	ApplicantName string `json:"applicant_name"`
	scoreRequest
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"modelVersion": s.deps.Pipeline.ModelVersion(),
	})
}

func (s *Server) ready(c *gin.Context) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) bindScore(c *gin.Context, dst interface{}, body *scoreRequest) (scoring.Request, bool) {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, errors.NewInputParsingFailedError(err))
		return scoring.Request{}, false
	}
	req, err := body.toRequest()
	if err != nil {
		writeError(c, err)
		return scoring.Request{}, false
	}
	return req, true
}

// evaluate validates and scores one request, writing the error response itself.
func (s *Server) evaluate(c *gin.Context, req scoring.Request) (*scoring.Outcome, bool) {
	if err := req.Validate(); err != nil {
		writeError(c, err)
		return nil, false
	}

	outcome, err := s.deps.Pipeline.Evaluate(c.Request.Context(), req)
	if err != nil {
		s.logger.Error("evaluation failed", map[string]interface{}{
			"error":     err,
			"requestId": c.GetString(ctxRequestID),
		})
		writeError(c, err)
		return nil, false
	}
	return outcome, true
}

func (s *Server) predict(c *gin.Context) {
	var body scoreRequest
	req, ok := s.bindScore(c, &body, &body)
	if !ok {
		return
	}

	outcome, ok := s.evaluate(c, req)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, errors.NewInputParsingFailedError(err))
		return
	}

	user, ok := s.deps.Authenticator.Authenticate(body.Username, body.Password)
	if !ok {
		s.logger.Warn("login rejected", map[string]interface{}{
			"username":  body.Username,
			"requestId": c.GetString(ctxRequestID),
		})
		writeError(c, errors.NewAuthenticationError("invalid credentials"))
		return
	}

	token, expires, err := s.deps.Tokens.Issue(user)
	if err != nil {
		writeError(c, err)
		return
	}

	s.logger.Info("user logged in", map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
	})
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": expires.UTC().Format(time.RFC3339),
		"user":      user,
	})
}

func (s *Server) createApplication(c *gin.Context) {
	var body applicationRequest
	req, ok := s.bindScore(c, &body, &body.scoreRequest)
	if !ok {
		return
	}

	outcome, ok := s.evaluate(c, req)
	if !ok {
		return
	}

	officer := currentUser(c)
	rec, err := s.deps.Repository.Insert(c.Request.Context(), models.ApplicationFields{
		ApplicantName: body.ApplicantName,
		FarmSize:      req.FarmSize,
		SoilScore:     req.SoilScore,
		Rainfall:      req.Rainfall,
		PreviousLoans: req.PreviousLoans,
		YieldAmount:   req.YieldAmount,
		TrustScore:    outcome.TrustScore,
		RiskCategory:  outcome.RiskCategory,
	}, officer.Username)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"application":  rec,
		"outcome":      outcome,
		"explanations": scoring.Explain(req, outcome.TrustScore),
	})
}

func (s *Server) listApplications(c *gin.Context) {
	filter, err := models.ParseRiskFilter(c.Query("risk"))
	if err != nil {
		writeError(c, errors.NewInvalidRiskFilterError(c.Query("risk")))
		return
	}

	records, err := s.deps.Repository.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"applications": records,
		"count":        len(records),
	})
}

func (s *Server) summary(c *gin.Context) {
	stats, err := s.deps.Repository.Summary(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) exportCSV(c *gin.Context) {
	records, err := s.deps.Repository.List(c.Request.Context(), "")
	if err != nil {
		writeError(c, err)
		return
	}

	filename := fmt.Sprintf("agritrust_applications_%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := store.WriteCSV(c.Writer, records); err != nil {
		s.logger.Error("csv export interrupted", map[string]interface{}{
			"error":     err,
			"requestId": c.GetString(ctxRequestID),
		})
	}
}

func (s *Server) featureImportance(c *gin.Context) {
	importance := s.deps.Pipeline.FeatureImportance()
	if importance == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{
			"code":    "IMPORTANCE_UNAVAILABLE",
			"message": "the loaded model does not report feature importance",
		}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"modelVersion": s.deps.Pipeline.ModelVersion(),
		"importance":   importance,
	})
}
