package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"compliance-packet/backend/internal/ai"
	"compliance-packet/backend/internal/audit"
	"compliance-packet/backend/internal/auth"
	"compliance-packet/backend/internal/metrics"
	"compliance-packet/backend/internal/quota"
	"compliance-packet/backend/internal/scoring"
	"compliance-packet/backend/internal/util"
)

func (s *Server) handleRegister(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, CodeRegisterInvalid, "a valid email is required")
		return
	}

	rawKey, err := auth.GenerateKey()
	if err != nil {
		logrus.WithError(err).Error("generate api key")
		s.renderInternal(c)
		return
	}

	user, key, err := s.db.RegisterKey(req.Email, req.Label, auth.HashKey(rawKey), auth.DisplayPrefix(rawKey))
	if err != nil {
		logrus.WithError(err).Error("register api key")
		s.renderInternal(c)
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"api_key_id": key.ID,
		"key_prefix": key.KeyPrefix,
	}).Info("api key registered")

	c.JSON(http.StatusCreated, RegisterResponse{
		APIKey:    rawKey,
		KeyPrefix: key.KeyPrefix,
		UserID:    user.ID,
	})
}

// handleCheck runs the full pipeline: quota, provider scoring with heuristic
// fallback, assembly, async audit. A response packet is always produced once
// the request passes quota; scoring failures never surface as errors.
func (s *Server) handleCheck(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		s.renderError(c, http.StatusUnauthorized, CodeAuthMissingKey, "missing or malformed bearer token")
		return
	}

	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, CodeCheckInvalidContent, "content must be a non-empty string")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.renderError(c, http.StatusBadRequest, CodeCheckInvalidContent, "content must be a non-empty string")
		return
	}

	timer := util.StartTimer()

	used, err := s.db.CountChecksSince(identity.APIKeyID, time.Now().UTC().Add(-quota.Window))
	if err != nil {
		logrus.WithError(err).WithField("api_key_id", identity.APIKeyID).Error("count checks in window")
		s.renderInternal(c)
		return
	}

	decision := s.tracker.Admit(used)
	if decision.Verdict == quota.Reject {
		metrics.QuotaRejections.Inc()
		s.renderErrorDetails(c, http.StatusTooManyRequests, CodeRateLimitExceeded,
			"daily check quota exceeded", gin.H{
				"limit":   decision.Limit,
				"used":    decision.Used,
				"window":  quota.Window.String(),
				"resetAt": decision.ResetAt,
			})
		return
	}

	outcome := ai.NoResult()
	if s.provider != nil && s.provider.Enabled() {
		outcome = s.provider.Evaluate(c.Request.Context(), req.Content)
	}
	if !outcome.Scored {
		metrics.HeuristicFallbacks.Inc()
	}

	pkt := s.assembler.Assemble(req.Content, outcome)
	if decision.Verdict == quota.AllowWithWarning {
		pkt = scoring.WithQuotaWarning(pkt)
	}

	elapsed := timer.ElapsedMs()
	metrics.ChecksTotal.WithLabelValues(pkt.Overall.Recommendation, pkt.Meta.ModelVersion).Inc()
	metrics.CheckDuration.Observe(float64(elapsed) / 1000)

	s.recorder.Record(audit.Entry{
		Identity:         identity,
		ContentHash:      util.HashContent(req.Content),
		Packet:           pkt,
		ProcessingTimeMs: elapsed,
	})

	c.JSON(http.StatusOK, pkt)
}

func (s *Server) handleUsage(c *gin.Context) {
	identity, ok := s.identity(c)
	if !ok {
		s.renderError(c, http.StatusUnauthorized, CodeAuthMissingKey, "missing or malformed bearer token")
		return
	}

	summary, err := s.db.SummarizeUsage(identity.APIKeyID)
	if err != nil {
		logrus.WithError(err).WithField("api_key_id", identity.APIKeyID).Error("summarize usage")
		s.renderInternal(c)
		return
	}

	rows, err := s.db.RecentChecks(identity.APIKeyID, 10)
	if err != nil {
		logrus.WithError(err).WithField("api_key_id", identity.APIKeyID).Error("list recent checks")
		s.renderInternal(c)
		return
	}

	recent := make([]RecentCheckDTO, 0, len(rows))
	for _, row := range rows {
		recent = append(recent, RecentFromModel(row))
	}

	c.JSON(http.StatusOK, UsageResponse{
		Summary: SummaryFromModel(summary),
		Recent:  recent,
	})
}
