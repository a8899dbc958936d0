package cli

import (
	"github.com/Makisuo/confect-plus/internal/demo"
	"github.com/Makisuo/confect-plus/internal/funcs"
	"github.com/Makisuo/confect-plus/internal/harness"
)

// deployment is what the CLI hosts. The tool ships with the message
// board example wired in; the platform host proper lives elsewhere.
func deployment() harness.Deployment {
	return harness.Deployment{
		Tables:        demo.Tables(),
		VectorIndexes: []string{demo.VectorIndex},
		Register:      demo.Register,
	}
}

// buildRegistry compiles and registers the deployment's functions.
func buildRegistry() (*funcs.Registry, error) {
	reg := funcs.NewRegistry()
	if err := deployment().Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
