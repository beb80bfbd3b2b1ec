package handlers

import (
	"kcc-loanhub/internal/adapters/persistence/models"
	"kcc-loanhub/internal/adapters/persistence/repositories"
	"kcc-loanhub/internal/core/domain"
	"kcc-loanhub/internal/core/services"
	"kcc-loanhub/internal/core/zkp"
	"kcc-loanhub/internal/pkg/pagination"
	"kcc-loanhub/internal/pkg/response"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles loan ledger endpoints
type LoanHandler struct {
	engine *services.Engine
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(engine *services.Engine) *LoanHandler {
	return &LoanHandler{engine: engine}
}

// ApplyLoanRequest represents loan application request body.
// Proof and Input are the output of the client prover.
type ApplyLoanRequest struct {
	Proof           zkp.ProofArtifact `json:"proof"`
	Input           []string          `json:"input"`
	RequestedAmount uint64            `json:"requested_amount"`
	LoanCategory    string            `json:"loan_category"`
}

// SanctionRequest represents sanction request body
type SanctionRequest struct {
	Amount uint64 `json:"amount"`
}

// DisburseRequest represents disbursement request body
type DisburseRequest struct {
	Amount   uint64 `json:"amount"`
	BillHash string `json:"bill_hash"`
}

// StatementResponse is the public input vector a caller must prove
type StatementResponse struct {
	Applicant string   `json:"applicant"`
	MinLand   uint64   `json:"min_land"`
	MaxIncome uint64   `json:"max_income"`
	Nonce     uint64   `json:"nonce"`
	Input     []string `json:"input"`
}

// Statement returns the expected public inputs for the caller
// @Summary Expected eligibility statement
// @Description Public inputs the caller's next proof must match
// @Tags Eligibility
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /eligibility/statement [get]
func (h *LoanHandler) Statement(c *fiber.Ctx) error {
	return withCaller(c, func(who common.Address) error {
		st, err := h.engine.ExpectedStatement(c.Context(), who)
		if err != nil {
			return respondError(c, err)
		}
		return response.Success(c, "Statement retrieved", StatementResponse{
			Applicant: who.Hex(),
			MinLand:   st.MinLand,
			MaxIncome: st.MaxIncome,
			Nonce:     st.Nonce,
			Input:     st.Strings(),
		})
	})
}

// Apply submits a loan application
// @Summary Apply for loan
// @Description Submit an eligibility proof and open a loan (credentialed farmers)
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ApplyLoanRequest true "Proof and loan data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Apply(c *fiber.Ctx) error {
	return withCaller(c, func(who common.Address) error {
		var req ApplyLoanRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}

		id, err := h.engine.ApplyForLoan(c.Context(), who, req.Proof, req.Input, req.RequestedAmount, req.LoanCategory)
		if err != nil {
			return respondError(c, err)
		}
		loan, err := h.engine.GetLoan(c.Context(), id)
		if err != nil {
			return respondError(c, err)
		}
		return response.Created(c, "Loan application submitted", models.NewLoanResponse(loan))
	})
}

// List lists loans
// @Summary List loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "IN_PROGRESS, UNDER_REVIEW, SANCTIONED or REJECTED"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /loans [get]
func (h *LoanHandler) List(c *fiber.Ctx) error {
	params, err := pagination.GetParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	filter := repositories.LoanFilter{Offset: params.Offset, Limit: params.Limit}
	if raw := c.Query("status"); raw != "" {
		status, ok := domain.ParseLoanStatus(raw)
		if !ok {
			return badRequest(c, "Invalid status")
		}
		filter.Status = &status
	}

	loans, total, err := h.engine.ListLoans(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Loans retrieved", pagination.NewResponse(models.NewLoanResponses(loans), params, total))
}

// Count returns the number of loans
// @Summary Loan count
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/count [get]
func (h *LoanHandler) Count(c *fiber.Ctx) error {
	count, err := h.engine.LoanCount(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Loan count retrieved", fiber.Map{"count": count})
}

// Mine returns the caller's loans
// @Summary My loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/mine [get]
func (h *LoanHandler) Mine(c *fiber.Ctx) error {
	return withCaller(c, func(who common.Address) error {
		return h.farmerLoans(c, who)
	})
}

// FarmerLoans returns the loans of a farmer
// @Summary Loans by farmer
// @Tags Farmers
// @Produce json
// @Security BearerAuth
// @Param address path string true "Farmer address"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /farmers/{address}/loans [get]
func (h *LoanHandler) FarmerLoans(c *fiber.Ctx) error {
	farmer, ok := addressParam(c, "address")
	if !ok {
		return badRequest(c, "Invalid address")
	}
	return h.farmerLoans(c, farmer)
}

func (h *LoanHandler) farmerLoans(c *fiber.Ctx, farmer common.Address) error {
	loans, err := h.engine.GetLoansByFarmer(c.Context(), farmer)
	if err != nil {
		return respondError(c, err)
	}
	ids := make([]uint64, len(loans))
	for i, l := range loans {
		ids[i] = l.ID
	}
	return response.Success(c, "Loans retrieved", fiber.Map{
		"farmer":   farmer.Hex(),
		"loan_ids": ids,
		"loans":    models.NewLoanResponses(loans),
	})
}

// Get returns a loan
// @Summary Get loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *fiber.Ctx) error {
	id, ok := loanIDParam(c)
	if !ok {
		return badRequest(c, "Invalid loan ID")
	}

	loan, err := h.engine.GetLoan(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Loan retrieved", models.NewLoanResponse(loan))
}

// History returns the audit events of a loan
// @Summary Loan history
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id}/history [get]
func (h *LoanHandler) History(c *fiber.Ctx) error {
	id, ok := loanIDParam(c)
	if !ok {
		return badRequest(c, "Invalid loan ID")
	}

	events, err := h.engine.GetLoanHistory(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Loan history retrieved", models.NewLoanEventResponses(events))
}

// Review moves a loan under review
// @Summary Review loan
// @Description IN_PROGRESS -> UNDER_REVIEW (Bank officer only)
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/review [post]
func (h *LoanHandler) Review(c *fiber.Ctx) error {
	return h.mutate(c, func(who common.Address, id uint64) (*domain.LoanApplication, error) {
		return h.engine.ReviewLoan(c.Context(), who, id)
	}, "Loan moved to review")
}

// Sanction approves a loan
// @Summary Sanction loan
// @Description UNDER_REVIEW -> SANCTIONED (Bank officer only)
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body SanctionRequest true "Sanctioned amount"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/sanction [post]
func (h *LoanHandler) Sanction(c *fiber.Ctx) error {
	var req SanctionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return h.mutate(c, func(who common.Address, id uint64) (*domain.LoanApplication, error) {
		return h.engine.SanctionLoan(c.Context(), who, id, req.Amount)
	}, "Loan sanctioned")
}

// Reject rejects a loan
// @Summary Reject loan
// @Description IN_PROGRESS or UNDER_REVIEW -> REJECTED (Bank officer only)
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/reject [post]
func (h *LoanHandler) Reject(c *fiber.Ctx) error {
	return h.mutate(c, func(who common.Address, id uint64) (*domain.LoanApplication, error) {
		return h.engine.RejectLoan(c.Context(), who, id)
	}, "Loan rejected")
}

// Disburse pays out an instalment
// @Summary Disburse funds
// @Description Disburse part of the sanctioned amount against a bill reference (Auditor only)
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body DisburseRequest true "Amount and bill hash"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/disburse [post]
func (h *LoanHandler) Disburse(c *fiber.Ctx) error {
	var req DisburseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return h.mutate(c, func(who common.Address, id uint64) (*domain.LoanApplication, error) {
		return h.engine.DisburseFunds(c.Context(), who, id, req.Amount, req.BillHash)
	}, "Funds disbursed")
}

// mutate resolves caller and loan id, then runs one lifecycle operation
func (h *LoanHandler) mutate(c *fiber.Ctx, op func(who common.Address, id uint64) (*domain.LoanApplication, error), message string) error {
	return withCaller(c, func(who common.Address) error {
		id, ok := loanIDParam(c)
		if !ok {
			return badRequest(c, "Invalid loan ID")
		}

		loan, err := op(who, id)
		if err != nil {
			return respondError(c, err)
		}
		return response.Success(c, message, models.NewLoanResponse(loan))
	})
}
