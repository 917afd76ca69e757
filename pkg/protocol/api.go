package protocol

import (
	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/keyframes"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// REST bodies shared by the server and the Go client.

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

// MethodsResponse is returned by GET /api/methods
type MethodsResponse struct {
	Methods    []string `json:"methods"`
	Default    string   `json:"default"`
	Directions []string `json:"directions"`
	Orders     []string `json:"orders"`
}

// FilterRequest is the body of POST /api/filter
type FilterRequest struct {
	Reference rotation.AngleTriple     `json:"reference"`
	Candidate rotation.AngleTriple     `json:"candidate"`
	Method    eulerfilter.FilterMethod `json:"method"`
}

// FilterResponse carries the corrected candidate
type FilterResponse struct {
	Corrected rotation.AngleTriple     `json:"corrected"`
	Method    eulerfilter.FilterMethod `json:"method"`
}

// SequenceRequest is the body of POST /api/filter/sequence. Samples may
// arrive in any order; they are filtered in frame order.
type SequenceRequest struct {
	Samples   []keyframes.Sample       `json:"samples"`
	Method    eulerfilter.FilterMethod `json:"method"`
	Direction keyframes.Direction      `json:"direction"`
}

// SequenceResult is the filtered sequence, kept by the server under ID
type SequenceResult struct {
	ID          string                   `json:"id"`
	Method      eulerfilter.FilterMethod `json:"method"`
	Direction   keyframes.Direction      `json:"direction"`
	Samples     []keyframes.Sample       `json:"samples"`
	Corrections []keyframes.Correction   `json:"corrections"`
	Changed     int                      `json:"changed"`
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
}
