package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hermeznetwork/slotauction/auction"
	"github.com/hermeznetwork/slotauction/common"
	"github.com/hermeznetwork/slotauction/ledger"
	"github.com/hermeznetwork/slotauction/log"
	"github.com/hermeznetwork/slotauction/metric"
	"github.com/hermeznetwork/tracerr"
)

type apiErrorCode uint
type apiErrorType string

const (
	// Public error messages (included in response objects)

	// ErrParamValidationFailedCode code for param validation failed error
	ErrParamValidationFailedCode apiErrorCode = 1
	// ErrParamValidationFailedType type for param validation failed error
	ErrParamValidationFailedType apiErrorType = "ErrParamValidationFailed"

	// ErrSQLTimeout error message returned when timeout due to SQL connection
	ErrSQLTimeout = "The node is under heavy pressure, please try again later"
	// ErrSQLTimeoutCode code for sql timeout error
	ErrSQLTimeoutCode apiErrorCode = 2
	// ErrSQLTimeoutType type for sql timeout type
	ErrSQLTimeoutType apiErrorType = "ErrSQLTimeout"

	// ErrSQLNoRowsCode code for no rows error
	ErrSQLNoRowsCode apiErrorCode = 3
	// ErrSQLNoRowsType type for now rows error
	ErrSQLNoRowsType apiErrorType = "ErrSQLNoRows"

	// ErrInvalidSignatureCode code for invalid signature error
	ErrInvalidSignatureCode apiErrorCode = 4
	// ErrInvalidSignatureType type for invalid signature error
	ErrInvalidSignatureType apiErrorType = "ErrInvalidSignature"

	// ErrNotAuthorizedCode code when the signer is not allowed to run the
	// operation
	ErrNotAuthorizedCode apiErrorCode = 5
	// ErrNotAuthorizedType type when the signer is not allowed to run the
	// operation
	ErrNotAuthorizedType apiErrorType = "ErrNotAuthorized"

	// ErrNotFoundCode code when the round doesn't exist
	ErrNotFoundCode apiErrorCode = 6
	// ErrNotFoundType type when the round doesn't exist
	ErrNotFoundType apiErrorType = "ErrNotFound"

	// ErrAuctionRejectedCode code when the auction rejects an operation
	// because of its current state
	ErrAuctionRejectedCode apiErrorCode = 7
	// ErrAuctionRejectedType type when the auction rejects an operation
	// because of its current state
	ErrAuctionRejectedType apiErrorType = "ErrAuctionRejected"

	// ErrLedgerRejectedCode code when the ledger refuses a deposit or a
	// payout
	ErrLedgerRejectedCode apiErrorCode = 8
	// ErrLedgerRejectedType type when the ledger refuses a deposit or a
	// payout
	ErrLedgerRejectedType apiErrorType = "ErrLedgerRejected"

	// ErrInternal error message returned for unexpected errors
	ErrInternal = "Internal server error"
	// ErrInternalCode code for unexpected errors
	ErrInternalCode apiErrorCode = 9
	// ErrInternalType type for unexpected errors
	ErrInternalType apiErrorType = "ErrInternal"

	// Internal error messages (used for logs or handling errors returned from internal components)

	// errCtxTimeout error message received internally when context reaches timeout
	errCtxTimeout = "context deadline exceeded"
)

type apiErrorResponse struct {
	Message string       `json:"message"`
	Code    apiErrorCode `json:"code"`
	Type    apiErrorType `json:"type"`
}

var (
	// errors caused by the request content
	badRequestErrors = []error{
		auction.ErrInvalidSlot,
		auction.ErrBidTooLow,
		auction.ErrWordInvalid,
		auction.ErrInvalidAmount,
		auction.ErrInvalidAddress,
		auction.ErrInvalidVariable,
		auction.ErrAllocationMismatch,
		auction.ErrWrongRound,
		common.ErrInvalidCurrency,
	}
	// errors caused by the identity of the signer
	forbiddenErrors = []error{
		auction.ErrNotOwner,
		auction.ErrNotArbiter,
	}
	notFoundErrors = []error{
		auction.ErrNoRound,
		auction.ErrRoundNotFound,
	}
	ledgerErrors = []error{
		ledger.ErrTransferRejected,
		ledger.ErrInsufficientBalance,
	}
	// errors caused by the state of the auction
	conflictErrors = []error{
		auction.ErrRoundInProgress,
		auction.ErrEmptyPrizePool,
		auction.ErrRoundNotOpen,
		auction.ErrSlotCapReached,
		auction.ErrRoundStillActive,
		auction.ErrRoundAlreadyResolved,
		auction.ErrRoundNotStarted,
		auction.ErrNeedMorePlayers,
		auction.ErrHasMultiplePlayers,
		auction.ErrEmergencyNotReady,
		auction.ErrNothingToClaim,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func retAuctionErr(err error, c *gin.Context) {
	var (
		status  int
		code    apiErrorCode
		errType apiErrorType
	)
	switch {
	case isAny(err, badRequestErrors):
		status, code, errType = http.StatusBadRequest, ErrParamValidationFailedCode, ErrParamValidationFailedType
	case isAny(err, forbiddenErrors):
		status, code, errType = http.StatusForbidden, ErrNotAuthorizedCode, ErrNotAuthorizedType
	case isAny(err, notFoundErrors):
		status, code, errType = http.StatusNotFound, ErrNotFoundCode, ErrNotFoundType
	case isAny(err, ledgerErrors):
		status, code, errType = http.StatusUnprocessableEntity, ErrLedgerRejectedCode, ErrLedgerRejectedType
	case isAny(err, conflictErrors):
		status, code, errType = http.StatusConflict, ErrAuctionRejectedCode, ErrAuctionRejectedType
	default:
		retInternalErr(err, c)
		return
	}
	c.JSON(status, apiErrorResponse{
		Message: tracerr.Unwrap(err).Error(),
		Code:    code,
		Type:    errType,
	})
}

func retInternalErr(err error, c *gin.Context) {
	log.Errorw("API internal error", "err", err)
	metric.CollectError(err)
	c.JSON(http.StatusInternalServerError, apiErrorResponse{
		Message: ErrInternal,
		Code:    ErrInternalCode,
		Type:    ErrInternalType,
	})
}

func retSQLErr(err error, c *gin.Context) {
	log.Warnw("HTTP API SQL request error", "err", err)
	unwrapErr := tracerr.Unwrap(err)
	if unwrapErr == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, apiErrorResponse{
			Message: unwrapErr.Error(),
			Code:    ErrSQLNoRowsCode,
			Type:    ErrSQLNoRowsType,
		})
	} else if strings.Contains(unwrapErr.Error(), errCtxTimeout) {
		c.JSON(http.StatusServiceUnavailable, apiErrorResponse{
			Message: ErrSQLTimeout,
			Code:    ErrSQLTimeoutCode,
			Type:    ErrSQLTimeoutType,
		})
	} else {
		retInternalErr(err, c)
	}
}

func retBadReq(err error, c *gin.Context) {
	log.Warnw("HTTP API Bad request error", "err", err)
	c.JSON(http.StatusBadRequest, apiErrorResponse{
		Message: tracerr.Unwrap(err).Error(),
		Code:    ErrParamValidationFailedCode,
		Type:    ErrParamValidationFailedType,
	})
}

func retUnauthorized(err error, c *gin.Context) {
	log.Warnw("HTTP API invalid signature", "err", err)
	c.AbortWithStatusJSON(http.StatusUnauthorized, apiErrorResponse{
		Message: tracerr.Unwrap(err).Error(),
		Code:    ErrInvalidSignatureCode,
		Type:    ErrInvalidSignatureType,
	})
}
