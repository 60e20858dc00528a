package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/copyleftdev/QVAR/internal/config"
	"github.com/copyleftdev/QVAR/internal/logging"
	"github.com/copyleftdev/QVAR/internal/quantum"
	"github.com/copyleftdev/QVAR/internal/vqa"
	"github.com/copyleftdev/QVAR/internal/vqa/ansatz"
	"github.com/copyleftdev/QVAR/internal/vqa/costfn"
	"github.com/copyleftdev/QVAR/internal/vqa/estimators"
	"github.com/copyleftdev/QVAR/internal/vqa/gradients"
	"github.com/copyleftdev/QVAR/internal/vqa/optimizers"
	"github.com/copyleftdev/QVAR/internal/vqa/runner"
)

// Logger defines the logging interface used by the server.
// This allows us to be flexible with our logging implementation.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// RunRequest describes a VQA run to start. Defaults come from the server
// configuration; zero values mean "use the default".
type RunRequest struct {
	// Hamiltonian is the target operator, e.g. "Z0*Z1 + 0.5*X0 - Z2".
	Hamiltonian string `json:"hamiltonian"`

	Ansatz struct {
		// Kind: "hardware_efficient" (default), "qaoa".
		Kind   string `json:"kind"`
		Qubits int    `json:"qubits"`
		Layers int    `json:"layers"`
	} `json:"ansatz"`

	Optimizer struct {
		// Kind: "gradient_descent" (default), "nelder_mead".
		Kind     string  `json:"kind"`
		Step     float64 `json:"step"`
		Momentum float64 `json:"momentum"`
		GradTol  float64 `json:"grad_tol"`
	} `json:"optimizer"`

	Estimator struct {
		// Kind: "exact" (default), "sampling", "cvar".
		Kind  string  `json:"kind"`
		Shots int     `json:"shots"`
		Alpha float64 `json:"alpha"`
	} `json:"estimator"`

	Gradient struct {
		// Kind: "parameter_shift" (default), "finite_difference".
		Kind        string  `json:"kind"`
		Shift       float64 `json:"shift"`
		Step        float64 `json:"step"`
		Concurrency int     `json:"concurrency"`
	} `json:"gradient"`

	// InitialParameters are optional; when empty they are drawn uniformly
	// from [-pi, pi) using Seed, so runs are reproducible.
	InitialParameters []float64 `json:"initial_parameters"`
	Seed              int64     `json:"seed"`

	MaxIterations  int     `json:"max_iterations"`
	MaxEvaluations int64   `json:"max_evaluations"`
	Tolerance      float64 `json:"tolerance"`
	Window         int     `json:"window"`
}

// RunState tracks one VQA run. It is guarded by the server's runs mutex;
// live history is read from the runner itself, which is concurrency-safe.
type RunState struct {
	ID          string
	Status      string // "pending", "running", or a terminal runner state
	StartTime   time.Time
	EndTime     *time.Time
	LastUpdated time.Time
	Runner      *runner.Runner
	Result      *vqa.Result
	CancelFunc  context.CancelFunc
	Err         error
}

// Server exposes the HTTP and JSON-RPC surface for starting, monitoring and
// cancelling VQA runs.
type Server struct {
	cfg     *config.Config
	logger  Logger
	metrics *vqa.Metrics

	runs   map[string]*RunState
	runsMu sync.RWMutex
}

// NewServer creates a server instance. metrics may be nil.
func NewServer(cfg *config.Config, logger Logger, metrics *vqa.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		runs:    make(map[string]*RunState),
	}
}

// RegisterRoutes mounts the API on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", s.handleStart)
		r.Get("/runs/{id}", s.handleStatus)
		r.Delete("/runs/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// handleJSONRPC handles JSON-RPC 2.0 requests.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}
	if len(request.Params) == 0 {
		s.respondWithError(w, -32602, "Invalid params", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "vqa.start":
		var req RunRequest
		if err = json.Unmarshal(request.Params[0], &req); err == nil {
			result, err = s.startRun(req)
		}
	case "vqa.status":
		var ref struct {
			RunID string `json:"run_id"`
		}
		if err = json.Unmarshal(request.Params[0], &ref); err == nil {
			result, err = s.runStatus(ref.RunID)
		}
	case "vqa.cancel":
		var ref struct {
			RunID string `json:"run_id"`
		}
		if err = json.Unmarshal(request.Params[0], &ref); err == nil {
			err = s.cancelRun(ref.RunID)
			result = map[string]string{"status": "cancellation requested"}
		}
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleStart handles POST /api/v1/runs.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	result, err := s.startRun(req)
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	s.respondJSON(w, http.StatusAccepted, result)
}

// handleStatus handles GET /api/v1/runs/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "missing run ID"})
		return
	}

	result, err := s.runStatus(id)
	if err != nil {
		s.respondJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleCancel handles DELETE /api/v1/runs/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "missing run ID"})
		return
	}

	if err := s.cancelRun(id); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

// startRun assembles the collaborators from the request and launches the
// run on a goroutine.
func (s *Server) startRun(req RunRequest) (interface{}, error) {
	run, initial, err := s.buildRunner(req)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	state := &RunState{
		ID:          id,
		Status:      "pending",
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
		Runner:      run,
		CancelFunc:  cancel,
	}

	s.runsMu.Lock()
	s.runs[id] = state
	s.runsMu.Unlock()

	s.logger.Info("run accepted", map[string]interface{}{
		"run_id":     id,
		"parameters": len(initial),
	})

	go s.executeRun(ctx, state)

	return map[string]interface{}{
		"run_id": id,
		"status": "pending",
	}, nil
}

// executeRun drives the runner to a terminal state and records the result.
func (s *Server) executeRun(ctx context.Context, state *RunState) {
	s.runsMu.Lock()
	state.Status = "running"
	state.LastUpdated = time.Now()
	s.runsMu.Unlock()

	result, err := state.Runner.Run(ctx)

	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	state.Result = result
	state.Err = err
	state.Status = string(state.Runner.State())
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	if err != nil {
		s.logger.Error("run terminated with error", map[string]interface{}{
			"run_id": state.ID,
			"status": state.Status,
			"error":  err.Error(),
		})
		return
	}
	s.logger.Info("run finished", map[string]interface{}{
		"run_id":      state.ID,
		"status":      state.Status,
		"best_cost":   result.BestCost,
		"evaluations": result.Evaluations,
	})
}

// runStatus reports the current state of a run, including the live history
// while it is still running.
func (s *Server) runStatus(id string) (interface{}, error) {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()

	state, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("run not found")
	}

	response := map[string]interface{}{
		"run_id":      state.ID,
		"status":      state.Status,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Err != nil {
		response["error"] = state.Err.Error()
	}

	if state.Result != nil {
		response["result"] = state.Result
	} else if state.Runner != nil {
		// Run still in progress: expose the history so far.
		response["history"] = state.Runner.History()
	}
	return response, nil
}

// cancelRun requests cancellation; the runner transitions between
// iterations and the run goroutine records the terminal state.
func (s *Server) cancelRun(id string) error {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	state, exists := s.runs[id]
	if !exists {
		return fmt.Errorf("run not found")
	}

	switch state.Status {
	case string(runner.StateConverged), string(runner.StateMaxIterationsReached),
		string(runner.StateFailed), string(runner.StateCancelled):
		return fmt.Errorf("cannot cancel run with status: %s", state.Status)
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}
	state.LastUpdated = time.Now()

	s.logger.Info("run cancellation requested", map[string]interface{}{
		"run_id": id,
	})
	return nil
}

// buildRunner turns a request into a configured runner plus its initial
// parameter vector.
func (s *Server) buildRunner(req RunRequest) (*runner.Runner, vqa.Parameters, error) {
	if req.Hamiltonian == "" {
		return nil, nil, fmt.Errorf("hamiltonian is required")
	}
	operator, err := quantum.ParsePauliSum(req.Hamiltonian)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid hamiltonian: %w", err)
	}
	if n := operator.NQubits(); n > s.cfg.VQA.MaxQubits {
		return nil, nil, fmt.Errorf("hamiltonian acts on %d qubits, limit is %d", n, s.cfg.VQA.MaxQubits)
	}

	theAnsatz, err := buildAnsatz(req, operator)
	if err != nil {
		return nil, nil, err
	}

	estimator, err := buildEstimator(req, s.cfg.VQA.Shots)
	if err != nil {
		return nil, nil, err
	}

	backend := quantum.NewSimulator(req.Seed + s.cfg.VQA.SimulatorSeed)
	cost := costfn.New(operator, theAnsatz, backend, costfn.WithEstimator(estimator))

	optimizer, err := buildOptimizer(req)
	if err != nil {
		return nil, nil, err
	}

	gradient, err := s.buildGradientEstimator(req)
	if err != nil {
		return nil, nil, err
	}

	initial := vqa.Parameters(req.InitialParameters)
	if len(initial) == 0 {
		rng := rand.New(rand.NewSource(req.Seed))
		initial = make(vqa.Parameters, theAnsatz.ParameterCount())
		for i := range initial {
			initial[i] = -math.Pi + 2*math.Pi*rng.Float64()
		}
	}
	if len(initial) != theAnsatz.ParameterCount() {
		return nil, nil, vqa.NewDimensionMismatch("server.buildRunner", theAnsatz.ParameterCount(), len(initial))
	}

	cfg := runner.Config{
		MaxIterations:  s.cfg.VQA.MaxIterations,
		MaxEvaluations: s.cfg.VQA.MaxEvaluations,
		Tolerance:      s.cfg.VQA.Tolerance,
		Window:         s.cfg.VQA.Window,
		EvalTimeout:    s.cfg.VQA.EvalTimeout,
	}
	if req.MaxIterations > 0 {
		cfg.MaxIterations = req.MaxIterations
	}
	if req.MaxEvaluations > 0 {
		cfg.MaxEvaluations = req.MaxEvaluations
	}
	if req.Tolerance > 0 {
		cfg.Tolerance = req.Tolerance
	}
	if req.Window > 0 {
		cfg.Window = req.Window
	}

	run, err := runner.New(cost, optimizer, initial, cfg,
		runner.WithGradientEstimator(gradient),
		runner.WithLogger(s.logger),
		runner.WithMetrics(s.metrics),
	)
	if err != nil {
		return nil, nil, err
	}
	return run, initial, nil
}

func buildAnsatz(req RunRequest, operator quantum.PauliSum) (vqa.Ansatz, error) {
	layers := req.Ansatz.Layers
	if layers == 0 {
		layers = 1
	}
	qubits := req.Ansatz.Qubits
	if qubits == 0 {
		qubits = operator.NQubits()
	}

	switch req.Ansatz.Kind {
	case "", "hardware_efficient":
		return ansatz.NewHardwareEfficient(qubits, layers)
	case "qaoa":
		return ansatz.NewQAOA(operator, layers)
	default:
		return nil, fmt.Errorf("unknown ansatz kind %q", req.Ansatz.Kind)
	}
}

func buildEstimator(req RunRequest, defaultShots int) (vqa.Estimator, error) {
	shots := req.Estimator.Shots
	if shots == 0 {
		shots = defaultShots
	}
	switch req.Estimator.Kind {
	case "", "exact":
		return estimators.Exact{}, nil
	case "sampling":
		return estimators.Sampling{Shots: shots}, nil
	case "cvar":
		alpha := req.Estimator.Alpha
		if alpha == 0 {
			alpha = 0.5
		}
		return estimators.CVaR{Alpha: alpha, Shots: shots}, nil
	default:
		return nil, fmt.Errorf("unknown estimator kind %q", req.Estimator.Kind)
	}
}

func buildOptimizer(req RunRequest) (vqa.Optimizer, error) {
	switch req.Optimizer.Kind {
	case "", "gradient_descent":
		step := req.Optimizer.Step
		if step == 0 {
			step = 0.1
		}
		return optimizers.NewGradientDescent(step, req.Optimizer.Momentum, req.Optimizer.GradTol)
	case "nelder_mead":
		return optimizers.NewNelderMead(), nil
	default:
		return nil, fmt.Errorf("unknown optimizer kind %q", req.Optimizer.Kind)
	}
}

func (s *Server) buildGradientEstimator(req RunRequest) (vqa.GradientEstimator, error) {
	concurrency := req.Gradient.Concurrency
	if concurrency == 0 {
		concurrency = s.cfg.VQA.GradientConcurrency
	}
	switch req.Gradient.Kind {
	case "", "parameter_shift":
		return gradients.ParameterShift{Shift: req.Gradient.Shift, Concurrency: concurrency}, nil
	case "finite_difference":
		return gradients.FiniteDifference{Step: req.Gradient.Step, Concurrency: concurrency}, nil
	default:
		return nil, fmt.Errorf("unknown gradient kind %q", req.Gradient.Kind)
	}
}

// respondWithError sends a JSON-RPC 2.0 error response.
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("request error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Close cancels all running optimizations.
func (s *Server) Close() error {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	for _, run := range s.runs {
		if run.CancelFunc != nil {
			run.CancelFunc()
		}
	}
	return nil
}
