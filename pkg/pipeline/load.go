package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matzehuels/dopflow/pkg/cache"
	pkgerrors "github.com/matzehuels/dopflow/pkg/errors"
	"github.com/matzehuels/dopflow/pkg/flow"
	"github.com/matzehuels/dopflow/pkg/tabulation"
)

// Load decodes a tabulation in the given format and validates it.
func Load(data []byte, format string) (*tabulation.Result, error) {
	res, err := tabulation.Parse(data, format)
	if err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// Build derives the flow graph of a tabulation. Builder failures are mapped
// onto error codes so API responses carry a useful status.
func Build(res *tabulation.Result) (*flow.Graph, error) {
	g, err := flow.BuildResult(res)
	if err != nil {
		return nil, classifyBuildError(err)
	}
	return g, nil
}

// classifyBuildError maps flow sentinel errors onto coded errors.
func classifyBuildError(err error) error {
	switch {
	case errors.Is(err, flow.ErrInconsistentRound):
		return pkgerrors.Wrap(pkgerrors.ErrCodeInconsistentRound, err, "inconsistent rounds")
	case errors.Is(err, flow.ErrEmptyFlow),
		errors.Is(err, flow.ErrFirstRound),
		errors.Is(err, flow.ErrVoteCount),
		errors.Is(err, flow.ErrZeroTotal):
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidTabulation, err, "invalid tabulation")
	default:
		return pkgerrors.Wrap(pkgerrors.ErrCodeInternal, err, "build flow graph")
	}
}

// inputHash hashes the canonical JSON form of a tabulation, so the same
// tabulation in JSON or TOML shares one cache entry.
func inputHash(res *tabulation.Result) (string, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("hash input: %w", err)
	}
	return cache.Hash(data), nil
}
