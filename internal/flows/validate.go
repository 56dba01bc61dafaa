package flows

import (
	"context"

	"github.com/dkovalenko/tokenkit/jwt"
)

// ValidateFailureKind classifies access-token validation failures.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureCodec
	ValidateFailureDenylist
	ValidateFailureRevoked
)

// ValidateResult returns the decoded claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.AccessClaims
}

// ValidateDeps captures validation dependencies. No store access: the hot
// path is signature + claims + one denylist probe.
type ValidateDeps struct {
	ParseAccess      func(string) (*jwt.AccessClaims, error)
	DenylistContains func(ctx context.Context, jti string) (bool, error)
}

// RunValidate verifies an access token and checks the revocation denylist.
// A denylist backend failure fails closed: a token that cannot be checked is
// not accepted.
func RunValidate(ctx context.Context, accessToken string, deps ValidateDeps) ValidateResult {
	claims, err := deps.ParseAccess(accessToken)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureCodec, Err: err}
	}

	denied, err := deps.DenylistContains(ctx, claims.ID)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureDenylist, Err: err, Claims: claims}
	}
	if denied {
		return ValidateResult{Failure: ValidateFailureRevoked, Claims: claims}
	}

	return ValidateResult{Claims: claims}
}
