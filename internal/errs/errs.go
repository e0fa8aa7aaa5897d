// Package errs defines the sentinel error taxonomy shared by the
// transaction, chain, mempool and gossip layers.
package errs

import (
	"errors"
	"net/http"
)

var (
	ErrMalformedInput        = errors.New("malformed input")
	ErrInvalidSignature      = errors.New("invalid signature")
	ErrUnknownUTxO           = errors.New("unknown utxo")
	ErrConservationViolation = errors.New("input sum does not equal output sum")
	ErrBadCoinbase           = errors.New("invalid coinbase transaction")
	ErrDoubleSpendInBlock    = errors.New("double spend within block")
	ErrDoubleSpendInPool     = errors.New("double spend against mempool")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrBadBlockStructure     = errors.New("invalid block structure")
	ErrBadLinkage            = errors.New("block does not extend chain tip")
	ErrBadTimestamp          = errors.New("block timestamp out of bounds")
	ErrBadPoW                = errors.New("block does not satisfy proof of work")
	ErrWeakerChain           = errors.New("candidate chain is not strictly heavier")
	ErrPeerTransport         = errors.New("peer transport error")
	ErrAlreadyMining         = errors.New("a mine command is already in progress")
	ErrMiningCancelled       = errors.New("mining was cancelled before finding a block")
)

// StatusCode maps a taxonomy error to the HTTP status the control
// surface should answer with. Unrecognized errors default to 500.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMalformedInput),
		errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrUnknownUTxO),
		errors.Is(err, ErrConservationViolation),
		errors.Is(err, ErrBadCoinbase),
		errors.Is(err, ErrDoubleSpendInBlock),
		errors.Is(err, ErrDoubleSpendInPool),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrBadBlockStructure),
		errors.Is(err, ErrBadLinkage),
		errors.Is(err, ErrBadTimestamp),
		errors.Is(err, ErrBadPoW),
		errors.Is(err, ErrWeakerChain):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
