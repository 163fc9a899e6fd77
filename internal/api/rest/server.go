package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/arbitrage"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/asset"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/executor"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/infra/log"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/session"
	"github.com/ruvcoindev/triangle-trading-on-stellar/internal/tradeplan"
)

// Server exposes the discovery and execution flow over JSON.
type Server struct {
	mux           *http.ServeMux
	session       *session.Session
	catalog       *asset.Catalog
	defaultAmount decimal.Decimal
	logger        log.Logger
}

func New(sess *session.Session, catalog *asset.Catalog, defaultAmount decimal.Decimal, logger log.Logger) *Server {
	s := &Server{
		mux:           http.NewServeMux(),
		session:       sess,
		catalog:       catalog,
		defaultAmount: defaultAmount,
		logger:        logger,
	}
	s.mux.HandleFunc("POST /api/scan", s.handleScan)
	s.mux.HandleFunc("GET /api/opportunities", s.handleOpportunities)
	s.mux.HandleFunc("POST /api/select", s.handleSelect)
	s.mux.HandleFunc("POST /api/execute", s.handleExecute)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/assets", s.handleAssets)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

type scanRequest struct {
	Base   string `json:"base"`
	Amount string `json:"amount"`
}

type stepDTO struct {
	From       string `json:"from"`
	To         string `json:"to"`
	FromAmount string `json:"from_amount"`
	ToAmount   string `json:"to_amount"`
}

type opportunityDTO struct {
	Cycle         string    `json:"cycle"`
	Path          []string  `json:"path"`
	InitialAmount string    `json:"initial_amount"`
	FinalAmount   string    `json:"final_amount"`
	Profit        string    `json:"profit"`
	ProfitPct     string    `json:"profit_pct"`
	Steps         []stepDTO `json:"steps"`
}

type executeResponse struct {
	Hash        string `json:"hash"`
	Ledger      int32  `json:"ledger,omitempty"`
	ExplorerURL string `json:"explorer_url,omitempty"`
}

type errorResponse struct {
	Error          string   `json:"error"`
	TxCode         string   `json:"tx_code,omitempty"`
	OperationCodes []string `json:"operation_codes,omitempty"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	base, ok := s.catalog.ByCode(req.Base)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown base asset: "+req.Base)
		return
	}
	amount := s.defaultAmount
	if req.Amount != "" {
		d, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount: "+req.Amount)
			return
		}
		amount = d
	}
	opps, err := s.session.Scan(r.Context(), base, amount)
	if err != nil {
		s.writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTOs(opps))
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toDTOs(s.session.Opportunities()))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cycle string `json:"cycle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.session.Select(req.Cycle); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.Execute(r.Context())
	if err != nil {
		s.writeExecuteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, executeResponse{Hash: res.Hash, Ledger: res.Ledger, ExplorerURL: res.ExplorerURL})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.All())
}

func (s *Server) writeScanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, arbitrage.ErrInvalidAmount), errors.Is(err, arbitrage.ErrUniverseTooSmall):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrScanInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, arbitrage.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error().Err(err).Msg("scan failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeExecuteError(w http.ResponseWriter, err error) {
	var rej *executor.RejectionError
	switch {
	case errors.Is(err, session.ErrNoSelection):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tradeplan.ErrNoAccount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, executor.ErrExecutionInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, executor.ErrSigningRejected):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &rej):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:          rej.Error(),
			TxCode:         rej.TransactionCode,
			OperationCodes: rej.OperationCodes,
		})
	default:
		s.logger.Error().Err(err).Msg("execution failed")
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func toDTOs(opps []*arbitrage.Opportunity) []opportunityDTO {
	out := make([]opportunityDTO, 0, len(opps))
	for _, op := range opps {
		dto := opportunityDTO{
			Cycle:         op.Cycle.Key(),
			InitialAmount: op.InitialAmount.String(),
			FinalAmount:   op.FinalAmount.String(),
			Profit:        op.Profit.String(),
			ProfitPct:     op.ProfitPct.String(),
		}
		for _, a := range op.Cycle.Path() {
			dto.Path = append(dto.Path, a.Code)
		}
		for _, st := range op.Steps {
			dto.Steps = append(dto.Steps, stepDTO{
				From:       st.From.Code,
				To:         st.To.Code,
				FromAmount: st.FromAmount.String(),
				ToAmount:   st.ToAmount.String(),
			})
		}
		out = append(out, dto)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
