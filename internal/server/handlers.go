package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/noema/hlr/halflife"
	hlrErrors "github.com/noema/hlr/pkg/errors"
	"github.com/noema/hlr/pkg/log"
)

type trainResponse struct {
	Updated           bool    `json:"updated"`
	RecallProbability float64 `json:"recall_probability"`
	HalfLifeDays      float64 `json:"half_life_days"`
}

type weightsResponse struct {
	Weights       map[string]float64 `json:"weights"`
	FeatureCounts map[string]int     `json:"feature_counts"`
}

// instrument records latency and error responses for a route.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next(ww, r)
		s.metrics.observe(route, start)
		if status := ww.Status(); status >= http.StatusBadRequest {
			s.metrics.RequestErrors.WithLabelValues(route, strconv.Itoa(status)).Inc()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeInvalid answers 400 for a decoding or validation failure.
func writeInvalid(w http.ResponseWriter, err error) {
	var ve *hlrErrors.ValidationError
	if hlrErrors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s %s", ve.Field, ve.Message))
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// decodeBody reads a bounded JSON body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return hlrErrors.NewValidationError("body", "invalid json: "+err.Error(), nil)
	}
	return nil
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", log.OperationKey, op, log.ErrorKey, err.Error())
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
		"version": s.version,
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeInvalid(w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeInvalid(w, err)
		return
	}

	pred, err := s.reg.Predict(r.Context(), req.Scope, toFeatureVector(req.Features), req.DeltaDays)
	if err != nil {
		s.internalError(w, log.OperationPredict, err)
		return
	}
	s.metrics.Predictions.Inc()
	writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeInvalid(w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeInvalid(w, err)
		return
	}

	obs := halflife.Observation{
		DeltaDays:      req.DeltaDays,
		ActualRecall:   req.ActualRecall,
		ActualHalfLife: req.ActualHalfLife,
	}
	res, pred, err := s.reg.Train(r.Context(), req.Scope, toFeatureVector(req.Features), obs)
	if err != nil {
		s.internalError(w, log.OperationTrain, err)
		return
	}
	if res.Rejected {
		s.metrics.TrainUpdates.WithLabelValues("rejected").Inc()
		writeError(w, http.StatusBadRequest, "observation rejected: values must be finite")
		return
	}
	s.metrics.TrainUpdates.WithLabelValues("updated").Inc()
	s.metrics.SkippedFeatures.Add(float64(len(res.Skipped)))

	writeJSON(w, http.StatusOK, trainResponse{
		Updated:           true,
		RecallProbability: pred.RecallProbability,
		HalfLifeDays:      pred.HalfLifeDays,
	})
}

func (s *Server) handleGetWeights(w http.ResponseWriter, r *http.Request) {
	weights, counts, err := s.reg.State(r.Context(), r.URL.Query().Get("scope"))
	if err != nil {
		s.internalError(w, log.OperationLoad, err)
		return
	}
	writeJSON(w, http.StatusOK, weightsResponse{Weights: weights, FeatureCounts: counts})
}

func (s *Server) handlePutWeights(w http.ResponseWriter, r *http.Request) {
	var weights map[string]float64
	if err := decodeBody(w, r, &weights); err != nil {
		writeInvalid(w, err)
		return
	}
	if err := validateWeights(weights); err != nil {
		writeInvalid(w, err)
		return
	}

	if err := s.reg.LoadWeights(r.Context(), r.URL.Query().Get("scope"), weights); err != nil {
		s.internalError(w, log.OperationLoad, err)
		return
	}
	s.metrics.WeightsLoaded.Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "weights loaded",
		"count":  len(weights),
	})
}

func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	n, err := s.reg.Flush(r.Context())
	if err != nil {
		s.metrics.Checkpoints.WithLabelValues("error").Inc()
		s.internalError(w, log.OperationCheckpoint, err)
		return
	}
	s.metrics.Checkpoints.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "checkpointed",
		"scopes": n,
	})
}
