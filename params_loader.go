package crcsim

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// LoadParameters decodes a TOML parameter bundle and validates it, the
// same decode-then-validate shape every config loader in this codebase
// follows.
func LoadParameters(path string) (*Parameters, error) {
	var p Parameters
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return nil, errors.Wrapf(err, "cannot decode parameters from %s", path)
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrapf(err, "cannot validate parameters from %s", path)
	}
	return &p, nil
}
