package tables

import "github.com/arloliu/bufr/errs"

// Select picks the registry for a requested master table version.
//
// It returns the first candidate whose MasterVersion equals version. When none matches,
// the first candidate is returned with exact set to false; callers are expected to log
// or otherwise observe the fallback.
//
// Parameters:
//   - candidates: registries in order of preference
//   - version: the master table version declared by the message
//
// Returns:
//   - *Registry: the selected registry
//   - bool: whether the version matched exactly
//   - error: errs.ErrNoCandidates when candidates is empty
func Select(candidates []*Registry, version int) (*Registry, bool, error) {
	if len(candidates) == 0 {
		return nil, false, errs.ErrNoCandidates
	}

	for _, r := range candidates {
		if r != nil && r.MasterVersion() == version {
			return r, true, nil
		}
	}

	return candidates[0], false, nil
}
