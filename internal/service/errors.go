package service

import (
	"errors"

	"github.com/LabMasd/craftorcrap-sub000/internal/repository"
)

var (
	ErrInvalidVerdict   = errors.New("verdict must be craft or crap")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidURL       = errors.New("url must be an absolute http(s) url")
	ErrBoardPrivate     = errors.New("board is private")
	ErrVotingDisabled   = errors.New("voting is disabled on this board")
	ErrUnsupportedVoter = errors.New("identity kind not supported by this ledger")

	// Re-exported so handlers only match against service errors.
	ErrNotFound           = repository.ErrNotFound
	ErrCategoryAlreadySet = repository.ErrCategoryAlreadySet
)
