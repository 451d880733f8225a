package api

import (
	"errors"

	"dareledger/domain"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

var stateStatus = map[string]int{
	domain.ErrNotFound.Code:          fiber.StatusNotFound,
	domain.ErrNotAWinner.Code:        fiber.StatusForbidden,
	domain.ErrNotTheCreator.Code:     fiber.StatusForbidden,
	domain.ErrNotTheCompleter.Code:   fiber.StatusForbidden,
	domain.ErrWrongStatus.Code:       fiber.StatusConflict,
	domain.ErrAlreadyClaimed.Code:    fiber.StatusConflict,
	domain.ErrAlreadyCashedOut.Code:  fiber.StatusConflict,
	domain.ErrClaimInProgress.Code:   fiber.StatusConflict,
	domain.ErrCashOutPending.Code:    fiber.StatusConflict,
	domain.ErrDuplicateDeposit.Code:  fiber.StatusConflict,
	domain.ErrClaimNotResolving.Code: fiber.StatusConflict,
}

// statusFor maps a classified error to its HTTP status
func statusFor(err error) int {
	var de *domain.Error
	if !errors.As(err, &de) {
		return fiber.StatusInternalServerError
	}

	switch de.Kind {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindAuthorization:
		return fiber.StatusUnauthorized
	case domain.KindState:
		if status, ok := stateStatus[de.Code]; ok {
			return status
		}
		return fiber.StatusBadRequest
	case domain.KindCustodian:
		if de.Code == domain.ErrTransferUnknown.Code {
			return fiber.StatusGatewayTimeout
		}
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders every handler error as an ErrorResponse
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{Code: "HTTP_ERROR", Message: fe.Message})
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Code:    domain.ErrValidation.Code,
			Message: ve.Error(),
		})
	}

	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).WithError(err).Error("Request failed")
		return c.Status(status).JSON(ErrorResponse{Code: domain.CodeOf(err), Message: "internal error"})
	}

	var de *domain.Error
	errors.As(err, &de)
	return c.Status(status).JSON(ErrorResponse{Code: de.Code, Message: de.Message})
}
