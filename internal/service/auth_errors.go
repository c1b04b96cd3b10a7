package service

import "errors"

// Auth flow specific errors used by handlers for stable error_type mapping.
var (
	ErrThreefoldVerificationFailed = errors.New("threefold_verification_failed")
	ErrUnsupportedAuthType         = errors.New("unsupported_auth_type")
)

// membershipClaimedMessage is the user-facing message for a redemption conflict.
const membershipClaimedMessage = "This user is already a member of the project."
