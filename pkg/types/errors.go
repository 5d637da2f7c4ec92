package types

import "github.com/cuemby/warpgraph/pkg/werrors"

func errMissingPayload(kind OpKind) error {
	return werrors.New(werrors.EUsage, "op payload missing for kind").With("kind", string(kind))
}

func errEmptyField(kind OpKind, field string) error {
	return werrors.New(werrors.EUsage, "op field must not be empty").
		With("kind", string(kind)).With("field", field)
}

func errUnknownOpKind(kind OpKind) error {
	return werrors.New(werrors.EUsage, "unknown op kind").With("kind", string(kind))
}
