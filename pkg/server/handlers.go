package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-eulerfilter/internal/log"
	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/keyframes"
	"github.com/teslashibe/go-eulerfilter/pkg/protocol"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// changeTolerance is how far an axis must move for a sample to count as
// changed.
const changeTolerance = 1e-9

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(protocol.HealthResponse{
		Status:   "ok",
		Version:  Version,
		Sessions: s.hub.SessionCount(),
	})
}

func (s *Server) handleMethods(c *fiber.Ctx) error {
	resp := protocol.MethodsResponse{Default: eulerfilter.DefaultMethod.String()}
	for _, m := range eulerfilter.Methods() {
		resp.Methods = append(resp.Methods, m.String())
	}
	for _, d := range keyframes.Directions() {
		resp.Directions = append(resp.Directions, d.String())
	}
	for _, o := range rotation.AllOrders() {
		resp.Orders = append(resp.Orders, o.String())
	}
	return c.JSON(resp)
}

func (s *Server) handleFilter(c *fiber.Ctx) error {
	var req protocol.FilterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	corrected, err := eulerfilter.FilterRotation(req.Reference, req.Candidate, req.Method)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(protocol.FilterResponse{Corrected: corrected, Method: req.Method})
}

func (s *Server) handleSequence(c *fiber.Ctx) error {
	var req protocol.SequenceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	result, err := filterSequence(req)
	if err != nil {
		return writeError(c, err)
	}

	s.results.put(result)
	log.Debug("sequence filtered", "id", result.ID, "samples", len(result.Samples), "changed", result.Changed)
	return c.JSON(result)
}

func (s *Server) handleGetSequence(c *fiber.Ctx) error {
	result, ok := s.results.get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(protocol.ErrorResponse{Error: "sequence not found"})
	}
	return c.JSON(result)
}

// filterSequence runs a keyframes group built from the request samples.
// Duplicate frames keep the last sample given.
func filterSequence(req protocol.SequenceRequest) (*protocol.SequenceResult, error) {
	if len(req.Samples) < 2 {
		return nil, fmt.Errorf("%w: got %d", keyframes.ErrNoSamples, len(req.Samples))
	}

	g := keyframes.NewGroup("sequence", req.Samples[0].Triple.Order)
	for _, sample := range req.Samples {
		if err := g.Add(sample.Frame, sample.Triple); err != nil {
			return nil, err
		}
	}

	cfg := keyframes.Config{Method: req.Method, Direction: req.Direction}
	corrections, err := keyframes.Run(g, cfg)
	if err != nil {
		return nil, err
	}

	result := &protocol.SequenceResult{
		ID:          uuid.NewString(),
		Method:      req.Method,
		Direction:   req.Direction,
		Samples:     g.Samples(),
		Corrections: corrections,
	}
	for _, corr := range corrections {
		if corr.Changed(changeTolerance) {
			result.Changed++
		}
	}
	return result, nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(protocol.ErrorResponse{Error: err.Error()})
}

// writeError maps invalid input to 400 and everything else to 500.
func writeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, eulerfilter.ErrInvalidInput) {
		return badRequest(c, err)
	}
	log.Error("filter failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(protocol.ErrorResponse{Error: err.Error()})
}

// resultStore keeps the most recent sequence results by id.
type resultStore struct {
	mu    sync.RWMutex
	limit int
	byID  map[string]*protocol.SequenceResult
	order []string
}

func newResultStore(limit int) *resultStore {
	return &resultStore{
		limit: limit,
		byID:  make(map[string]*protocol.SequenceResult),
	}
}

func (r *resultStore) put(result *protocol.SequenceResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[result.ID] = result
	r.order = append(r.order, result.ID)
	for len(r.order) > r.limit {
		delete(r.byID, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *resultStore) get(id string) (*protocol.SequenceResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.byID[id]
	return result, ok
}

func (r *resultStore) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
