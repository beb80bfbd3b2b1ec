package handlers

import (
	"errors"
	"strconv"

	"kcc-loanhub/internal/adapters/http/middleware"
	"kcc-loanhub/internal/core/domain"
	"kcc-loanhub/internal/pkg/logger"
	"kcc-loanhub/internal/pkg/response"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
)

// kindStatus maps every engine error kind to its HTTP status
var kindStatus = map[domain.Kind]int{
	domain.KindUnauthorized:           fiber.StatusForbidden,
	domain.KindNoActiveCredential:     fiber.StatusForbidden,
	domain.KindProofRejected:          fiber.StatusUnprocessableEntity,
	domain.KindAlreadyActive:          fiber.StatusConflict,
	domain.KindNotIssued:              fiber.StatusConflict,
	domain.KindNotFound:               fiber.StatusNotFound,
	domain.KindInvalidTransition:      fiber.StatusConflict,
	domain.KindInvalidState:           fiber.StatusConflict,
	domain.KindAmountExceedsRemaining: fiber.StatusUnprocessableEntity,
	domain.KindInvalidApplication:     fiber.StatusBadRequest,
}

// ErrorDetails carries the loan context of a failed operation
type ErrorDetails struct {
	LoanID *uint64 `json:"loan_id,omitempty"`
	Status string  `json:"status,omitempty"`
}

// respondError writes err as a coded error response
func respondError(c *fiber.Ctx, err error) error {
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		logger.Component("http").WithError(err).WithField("path", c.Path()).Error("request failed")
		return response.Coded(c, fiber.StatusInternalServerError, string(domain.KindInternal), "Internal server error", nil)
	}

	var details *ErrorDetails
	var opErr *domain.OperationError
	if errors.As(err, &opErr) && opErr.LoanID != nil {
		details = &ErrorDetails{LoanID: opErr.LoanID}
		if opErr.Status != nil {
			details.Status = opErr.Status.String()
		}
	}
	return response.Coded(c, status, string(kind), err.Error(), details)
}

// badRequest writes a 400 with the BadRequest code
func badRequest(c *fiber.Ctx, message string) error {
	return response.Coded(c, fiber.StatusBadRequest, "BadRequest", message, nil)
}

// withCaller runs next with the authenticated caller, or answers 401
func withCaller(c *fiber.Ctx, next func(caller common.Address) error) error {
	addr, ok := middleware.CallerFrom(c)
	if !ok {
		return response.Unauthorized(c, "Access token required")
	}
	return next(addr)
}

// addressParam parses an address path parameter
func addressParam(c *fiber.Ctx, name string) (common.Address, bool) {
	addr, err := domain.ParseAddress(c.Params(name))
	if err != nil {
		return common.Address{}, false
	}
	return addr, true
}

// loanIDParam parses the :id path parameter
func loanIDParam(c *fiber.Ctx) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
