package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/MeKo-Tech/codescan/internal/preprocess"
	"github.com/MeKo-Tech/codescan/internal/scan"
	"github.com/MeKo-Tech/codescan/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding health response: %v\n", err)
	}
}

// strategiesHandler lists the preprocessing strategy catalog in retry order.
func (s *Server) strategiesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	catalog := preprocess.Catalog()
	strategies := make([]StrategyInfo, len(catalog))
	for i, strat := range catalog {
		strategies[i] = StrategyInfo{Name: strat.String(), Class: strat.Class().String()}
	}

	response := StrategiesResponse{Strategies: strategies, Count: len(strategies)}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding strategies response: %v\n", err)
	}
}

// scanPayload shapes the response body: a single code is returned bare, more
// than one is wrapped in a Multiple object preserving decoder order.
func scanPayload(results []scan.Result) any {
	if len(results) == 1 {
		return results[0]
	}
	return MultipleResponse{Multiple: results}
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing response: %v\n", err)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
